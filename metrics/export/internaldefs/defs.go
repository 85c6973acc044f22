package internaldefs

import (
	"time"

	"github.com/MrEthical07/accountgate"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   accountgate.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   accountgate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: accountgate.MetricLoginSuccess, Name: "accountgate_login_success_total", Help: "Successful logins."},
	{ID: accountgate.MetricLoginFailure, Name: "accountgate_login_failure_total", Help: "Logins rejected with invalid credentials."},
	{ID: accountgate.MetricLoginRateLimited, Name: "accountgate_login_rate_limited_total", Help: "Logins refused because the identifier is locked out."},
	{ID: accountgate.MetricLoginLockoutExpired, Name: "accountgate_login_lockout_expired_total", Help: "Lockouts cleared lazily after their window elapsed."},
	{ID: accountgate.MetricLoginUnknownIdentifier, Name: "accountgate_login_unknown_identifier_total", Help: "Logins for identifiers with no account."},
	{ID: accountgate.MetricAttemptStoreError, Name: "accountgate_attempt_store_error_total", Help: "Failure counter backend errors."},
	{ID: accountgate.MetricListRequest, Name: "accountgate_list_request_total", Help: "Listing requests."},
	{ID: accountgate.MetricListInvalid, Name: "accountgate_list_invalid_total", Help: "Listing requests rejected for invalid parameters."},
	{ID: accountgate.MetricAccountCreated, Name: "accountgate_account_created_total", Help: "Accounts created."},
	{ID: accountgate.MetricAccountDuplicate, Name: "accountgate_account_duplicate_total", Help: "Account writes rejected for a taken identifier."},
	{ID: accountgate.MetricAccountUpdated, Name: "accountgate_account_updated_total", Help: "Account profile updates."},
	{ID: accountgate.MetricAccountDeleted, Name: "accountgate_account_deleted_total", Help: "Accounts deleted."},
	{ID: accountgate.MetricPasswordChangeSuccess, Name: "accountgate_password_change_success_total", Help: "Successful password changes."},
	{ID: accountgate.MetricPasswordChangeInvalidOld, Name: "accountgate_password_change_invalid_old_total", Help: "Password changes with a wrong current password."},
	{ID: accountgate.MetricPasswordChangeReuse, Name: "accountgate_password_change_reuse_total", Help: "Password changes rejected for reusing the current password."},
}

var HistogramDefs = []HistogramDef{
	{ID: accountgate.MetricLoginLatency, Name: "accountgate_login_latency_seconds", Help: "Login latency."},
	{ID: accountgate.MetricListLatency, Name: "accountgate_list_latency_seconds", Help: "Listing latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "accountgate_audit_dropped_total"

// HistogramBounds are the upper bounds, in seconds, of the engine buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names the bounds for exporters that cannot use labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [accountgate.MetricBucketCount]uint64 {
	var out [accountgate.MetricBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals, the form
// both exporters publish.
func CumulativeBuckets(raw [accountgate.MetricBucketCount]uint64) [accountgate.MetricBucketCount]uint64 {
	var out [accountgate.MetricBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// SumSeconds converts a histogram sum for exposition.
func SumSeconds(sum time.Duration) float64 {
	return sum.Seconds()
}
