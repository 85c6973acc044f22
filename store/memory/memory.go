// Package memory is an in-process account store, mainly for tests, demos and
// the load generator.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/accountgate"
)

// Store keeps accounts in maps guarded by a RWMutex. Identifiers are unique
// and compared exactly.
type Store struct {
	mu           sync.RWMutex
	byID         map[string]accountgate.Account
	byIdentifier map[string]string
}

var _ accountgate.AccountStore = (*Store)(nil)

// New returns a store seeded with accounts. Seeding fails on duplicate ids or
// identifiers.
func New(accounts ...accountgate.Account) (*Store, error) {
	s := &Store{
		byID:         make(map[string]accountgate.Account, len(accounts)),
		byIdentifier: make(map[string]string, len(accounts)),
	}
	for _, a := range accounts {
		if err := s.InsertAccount(context.Background(), a); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FindAccountByIdentifier looks up an account by exact identifier.
func (s *Store) FindAccountByIdentifier(ctx context.Context, identifier string) (accountgate.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byIdentifier[identifier]
	if !ok {
		return accountgate.Account{}, false, nil
	}
	return s.byID[id], true, nil
}

// FindAccountByID looks up an account by id.
func (s *Store) FindAccountByID(ctx context.Context, id string) (accountgate.Account, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	return a, ok, nil
}

// CountRecords counts accounts matching filter.
func (s *Store) CountRecords(ctx context.Context, filter accountgate.RecordFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter.Search == "" {
		return int64(len(s.byID)), nil
	}
	var n int64
	for _, a := range s.byID {
		if filter.Matches(a) {
			n++
		}
	}
	return n, nil
}

// QueryRecords filters, sorts and windows a copy of the accounts.
func (s *Store) QueryRecords(ctx context.Context, q accountgate.RecordQuery) ([]accountgate.Account, error) {
	s.mu.RLock()
	matched := make([]accountgate.Account, 0, len(s.byID))
	for _, a := range s.byID {
		if q.Filter.Matches(a) {
			matched = append(matched, a)
		}
	}
	s.mu.RUnlock()

	sortAccounts(matched, q.Sort)

	if q.Skip >= int64(len(matched)) {
		return []accountgate.Account{}, nil
	}
	end := int64(len(matched))
	if q.Limit > 0 && q.Skip+q.Limit < end {
		end = q.Skip + q.Limit
	}
	return matched[q.Skip:end], nil
}

// InsertAccount stores a, rejecting a duplicate id or identifier with
// accountgate.ErrAccountExists.
func (s *Store) InsertAccount(ctx context.Context, a accountgate.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[a.ID]; ok {
		return fmt.Errorf("%w: id %q", accountgate.ErrAccountExists, a.ID)
	}
	if _, ok := s.byIdentifier[a.Identifier]; ok {
		return accountgate.ErrAccountExists
	}
	s.byID[a.ID] = a
	s.byIdentifier[a.Identifier] = a.ID
	return nil
}

// UpdateAccountProfile replaces the name and identifier of an existing
// account, re-indexing it when the identifier changes.
func (s *Store) UpdateAccountProfile(ctx context.Context, a accountgate.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[a.ID]
	if !ok {
		return accountgate.ErrAccountNotFound
	}
	if owner, taken := s.byIdentifier[a.Identifier]; taken && owner != a.ID {
		return accountgate.ErrAccountExists
	}

	delete(s.byIdentifier, cur.Identifier)
	cur.Identifier = a.Identifier
	cur.Name = a.Name
	cur.UpdatedAt = a.UpdatedAt
	s.byID[a.ID] = cur
	s.byIdentifier[cur.Identifier] = cur.ID
	return nil
}

// UpdateSecretHash replaces the stored secret hash.
func (s *Store) UpdateSecretHash(ctx context.Context, id, secretHash string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[id]
	if !ok {
		return accountgate.ErrAccountNotFound
	}
	cur.SecretHash = secretHash
	cur.UpdatedAt = updatedAt
	s.byID[id] = cur
	return nil
}

// DeleteAccount removes the account with id.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[id]
	if !ok {
		return accountgate.ErrAccountNotFound
	}
	delete(s.byID, id)
	delete(s.byIdentifier, cur.Identifier)
	return nil
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// sortAccounts orders by the requested field with id as the tiebreak so pages
// are stable.
func sortAccounts(accounts []accountgate.Account, spec accountgate.SortSpec) {
	if spec.Field == "" {
		spec = accountgate.DefaultListQuery().Sort
	}
	desc := spec.Descending()

	sort.SliceStable(accounts, func(i, j int) bool {
		a, b := accounts[i], accounts[j]
		c := compareField(a, b, spec.Field)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareField(a, b accountgate.Account, field string) int {
	switch field {
	case accountgate.SortFieldName:
		return strings.Compare(a.Name, b.Name)
	case accountgate.SortFieldID:
		return strings.Compare(a.ID, b.ID)
	case accountgate.SortFieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return strings.Compare(a.Identifier, b.Identifier)
	}
}
