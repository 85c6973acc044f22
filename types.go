package accountgate

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/accountgate/internal/attempts"
	internalaudit "github.com/MrEthical07/accountgate/internal/audit"
	"github.com/MrEthical07/accountgate/internal/listing"
	internalmetrics "github.com/MrEthical07/accountgate/internal/metrics"
)

// Account is a stored user record. SecretHash never leaves the process in
// JSON form.
type Account struct {
	ID         string    `json:"id"`
	Identifier string    `json:"email"`
	Name       string    `json:"name"`
	SecretHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// Page is one page of listed accounts with navigation metadata. Count is the
// number of accounts in Data.
type Page struct {
	PageNumber      int       `json:"page_number"`
	PageSize        int       `json:"page_size"`
	Count           int       `json:"count"`
	TotalPages      int64     `json:"total_pages"`
	HasPreviousPage bool      `json:"has_previous_page"`
	HasNextPage     bool      `json:"has_next_page"`
	Data            []Account `json:"data"`
}

/*
====================================
SORTING
====================================
*/

// SortSpec is a validated sort field and direction.
type SortSpec = listing.Sort

// SortOrder is a sort direction.
type SortOrder = listing.Order

const (
	SortAsc  SortOrder = listing.Asc
	SortDesc SortOrder = listing.Desc
)

// Sortable fields accepted by ListAccounts.
const (
	SortFieldEmail     = listing.FieldEmail
	SortFieldName      = listing.FieldName
	SortFieldID        = listing.FieldID
	SortFieldCreatedAt = listing.FieldCreatedAt
)

// ParseSortSpec parses "field:order". Failures wrap ErrInvalidParameter.
func ParseSortSpec(raw string) (SortSpec, error) {
	s, err := listing.ParseSort(raw)
	if err != nil {
		return SortSpec{}, invalidParameter(err)
	}
	return s, nil
}

// ListQuery selects one page of accounts. When SortString is non-empty it is
// parsed as "field:order" and overrides Sort. A zero Sort means email:asc.
type ListQuery struct {
	PageNumber int
	PageSize   int
	Search     string
	Sort       SortSpec
	SortString string
}

// DefaultListQuery returns page 1 of 10 ordered by email ascending with no
// search term.
func DefaultListQuery() ListQuery {
	return ListQuery{
		PageNumber: DefaultPageNumber,
		PageSize:   DefaultPageSize,
		Sort:       listing.DefaultSort(),
	}
}

/*
====================================
STORE CONTRACTS
====================================
*/

// RecordFilter narrows a record query. An empty Search matches everything;
// otherwise a record matches when Search is a case-insensitive substring of
// its identifier or its name.
type RecordFilter struct {
	Search string
}

// Matches applies the filter to a in memory.
func (f RecordFilter) Matches(a Account) bool {
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	return strings.Contains(strings.ToLower(a.Identifier), needle) ||
		strings.Contains(strings.ToLower(a.Name), needle)
}

// RecordQuery is a filtered, ordered, windowed read.
type RecordQuery struct {
	Filter RecordFilter
	Sort   SortSpec
	Skip   int64
	Limit  int64
}

// RecordStore is the read side every engine needs.
type RecordStore interface {
	// FindAccountByIdentifier returns found=false, not an error, when no
	// account owns identifier.
	FindAccountByIdentifier(ctx context.Context, identifier string) (Account, bool, error)
	// CountRecords counts records matching filter; an empty filter counts all.
	CountRecords(ctx context.Context, filter RecordFilter) (int64, error)
	QueryRecords(ctx context.Context, query RecordQuery) ([]Account, error)
}

// AccountStore adds the writes needed for account management. Writes return
// ErrAccountExists (possibly wrapped) on identifier conflicts and
// ErrAccountNotFound when the id does not exist.
type AccountStore interface {
	RecordStore
	FindAccountByID(ctx context.Context, id string) (Account, bool, error)
	InsertAccount(ctx context.Context, account Account) error
	UpdateAccountProfile(ctx context.Context, account Account) error
	UpdateSecretHash(ctx context.Context, id, secretHash string, updatedAt time.Time) error
	DeleteAccount(ctx context.Context, id string) error
}

// AttemptCounter is the failure streak tracked for one identifier.
type AttemptCounter = attempts.Counter

// AttemptStore keeps AttemptCounters. Increment and Clear must each be atomic
// per identifier.
type AttemptStore interface {
	Get(ctx context.Context, identifier string) (AttemptCounter, bool, error)
	Increment(ctx context.Context, identifier string, now time.Time) (AttemptCounter, error)
	Clear(ctx context.Context, identifier string) error
}

// CredentialIssuer produces the session credential returned by Login.
type CredentialIssuer interface {
	IssueCredential(identifier, accountID string) (string, error)
}

// AttemptStatus is the lockout state of one identifier.
type AttemptStatus struct {
	Failures int  `json:"failures"`
	Locked   bool `json:"locked"`
}

// CreateAccountRequest registers a new account.
type CreateAccountRequest struct {
	Name            string `json:"name"`
	Identifier      string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// UpdateAccountRequest changes profile fields. Empty fields are left as is.
type UpdateAccountRequest struct {
	Name       string `json:"name"`
	Identifier string `json:"email"`
}

// ChangePasswordRequest replaces an account secret.
type ChangePasswordRequest struct {
	OldPassword     string `json:"password_old"`
	NewPassword     string `json:"password_new"`
	ConfirmPassword string `json:"password_confirm"`
}

/*
====================================
AUDIT
====================================
*/

// AuditEvent is one login or account-management outcome.
type AuditEvent = internalaudit.Event

// AuditSink receives events from the engine's background dispatcher.
type AuditSink = internalaudit.Sink

type NoOpSink = internalaudit.NoOpSink

type ChannelSink = internalaudit.ChannelSink

type JSONWriterSink = internalaudit.JSONWriterSink

type ZerologSink = internalaudit.ZerologSink

// NewChannelSink returns a sink that buffers up to buffer events.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON line per event to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZerologSink logs events through logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return internalaudit.NewZerologSink(logger)
}

const (
	AuditLoginSuccess           = internalaudit.TypeLoginSuccess
	AuditLoginFailure           = internalaudit.TypeLoginFailure
	AuditLoginRateLimited       = internalaudit.TypeLoginRateLimited
	AuditLockoutExpired         = internalaudit.TypeLockoutExpired
	AuditAccountCreated         = internalaudit.TypeAccountCreated
	AuditAccountUpdated         = internalaudit.TypeAccountUpdated
	AuditAccountDeleted         = internalaudit.TypeAccountDeleted
	AuditPasswordChangeSuccess  = internalaudit.TypePasswordChangeSuccess
	AuditPasswordChangeRejected = internalaudit.TypePasswordChangeRejected
)

/*
====================================
METRICS
====================================
*/

// MetricID identifies a counter or histogram in MetricsSnapshot.
type MetricID = internalmetrics.ID

// MetricsSnapshot is a point-in-time copy of engine metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// HistogramSnapshot holds non-cumulative bucket counts and the observed sum.
type HistogramSnapshot = internalmetrics.Histogram

// MetricBucketCount is the number of latency buckets, +Inf included.
const MetricBucketCount = internalmetrics.BucketCount

const (
	MetricLoginSuccess             = internalmetrics.LoginSuccess
	MetricLoginFailure             = internalmetrics.LoginFailure
	MetricLoginRateLimited         = internalmetrics.LoginRateLimited
	MetricLoginLockoutExpired      = internalmetrics.LoginLockoutExpired
	MetricLoginUnknownIdentifier   = internalmetrics.LoginUnknownIdentifier
	MetricAttemptStoreError        = internalmetrics.AttemptStoreError
	MetricListRequest              = internalmetrics.ListRequest
	MetricListInvalid              = internalmetrics.ListInvalid
	MetricAccountCreated           = internalmetrics.AccountCreated
	MetricAccountDuplicate         = internalmetrics.AccountDuplicate
	MetricAccountUpdated           = internalmetrics.AccountUpdated
	MetricAccountDeleted           = internalmetrics.AccountDeleted
	MetricPasswordChangeSuccess    = internalmetrics.PasswordChangeSuccess
	MetricPasswordChangeInvalidOld = internalmetrics.PasswordChangeInvalidOld
	MetricPasswordChangeReuse      = internalmetrics.PasswordChangeReuse
	MetricLoginLatency             = internalmetrics.LoginLatency
	MetricListLatency              = internalmetrics.ListLatency
)
