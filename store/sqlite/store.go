// Package sqlite provides a SQLite-backed account store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/MrEthical07/accountgate"
)

const schema = `CREATE TABLE IF NOT EXISTS accounts (
	id          TEXT PRIMARY KEY,
	email       TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	secret_hash TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
)`

const selectColumns = `SELECT id, email, name, secret_hash, created_at, updated_at FROM accounts`

// searchClause matches the search term against email or name. lower() only
// folds ASCII.
const searchClause = ` WHERE (? = '' OR instr(lower(email), lower(?)) > 0 OR instr(lower(name), lower(?)) > 0)`

// sortColumns is the ORDER BY allowlist.
var sortColumns = map[string]string{
	accountgate.SortFieldEmail:     "email",
	accountgate.SortFieldName:      "name",
	accountgate.SortFieldID:        "id",
	accountgate.SortFieldCreatedAt: "created_at",
}

// Store persists accounts in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ accountgate.AccountStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (or creates) a database file and ensures the schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	store, err := New(context.Background(), sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an existing handle, typically opened on ":memory:" with a single
// connection in tests.
func New(ctx context.Context, sqlDB *sql.DB) (*Store, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sqlite handle is required")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// FindAccountByIdentifier looks up an account by its unique email.
func (s *Store) FindAccountByIdentifier(ctx context.Context, identifier string) (accountgate.Account, bool, error) {
	return s.findOne(ctx, selectColumns+` WHERE email = ?`, identifier)
}

// FindAccountByID looks up an account by primary key.
func (s *Store) FindAccountByID(ctx context.Context, id string) (accountgate.Account, bool, error) {
	return s.findOne(ctx, selectColumns+` WHERE id = ?`, id)
}

func (s *Store) findOne(ctx context.Context, query string, arg string) (accountgate.Account, bool, error) {
	row := s.sqlDB.QueryRowContext(ctx, query, arg)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accountgate.Account{}, false, nil
		}
		return accountgate.Account{}, false, fmt.Errorf("get account: %w", err)
	}
	return a, true, nil
}

// CountRecords counts rows matching filter.
func (s *Store) CountRecords(ctx context.Context, filter accountgate.RecordFilter) (int64, error) {
	var n int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts`+searchClause,
		filter.Search, filter.Search, filter.Search,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// QueryRecords runs one windowed SELECT ordered by an allowlisted column.
func (s *Store) QueryRecords(ctx context.Context, q accountgate.RecordQuery) ([]accountgate.Account, error) {
	column, ok := sortColumns[q.Sort.Field]
	if q.Sort.Field == "" {
		column, ok = "email", true
	}
	if !ok {
		return nil, fmt.Errorf("unsupported sort field %q", q.Sort.Field)
	}
	direction := "ASC"
	if q.Sort.Descending() {
		direction = "DESC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}

	query := selectColumns + searchClause +
		` ORDER BY ` + column + ` ` + direction + `, id ` + direction +
		` LIMIT ? OFFSET ?`
	rows, err := s.sqlDB.QueryContext(ctx, query,
		q.Filter.Search, q.Filter.Search, q.Filter.Search,
		limit, q.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]accountgate.Account, 0, max(q.Limit, 0))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

// InsertAccount inserts a row. A unique-constraint violation maps to
// accountgate.ErrAccountExists.
func (s *Store) InsertAccount(ctx context.Context, a accountgate.Account) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO accounts (id, email, name, secret_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Identifier, a.Name, a.SecretHash, toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return accountgate.ErrAccountExists
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// UpdateAccountProfile updates name, email and updated_at.
func (s *Store) UpdateAccountProfile(ctx context.Context, a accountgate.Account) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE accounts SET email = ?, name = ?, updated_at = ? WHERE id = ?`,
		a.Identifier, a.Name, toMillis(a.UpdatedAt), a.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return accountgate.ErrAccountExists
		}
		return fmt.Errorf("update account: %w", err)
	}
	return requireRow(res)
}

// UpdateSecretHash updates the secret hash column.
func (s *Store) UpdateSecretHash(ctx context.Context, id, secretHash string, updatedAt time.Time) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE accounts SET secret_hash = ?, updated_at = ? WHERE id = ?`,
		secretHash, toMillis(updatedAt), id,
	)
	if err != nil {
		return fmt.Errorf("update secret: %w", err)
	}
	return requireRow(res)
}

// DeleteAccount deletes the row with id.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return requireRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (accountgate.Account, error) {
	var a accountgate.Account
	var createdAt, updatedAt int64
	if err := row.Scan(&a.ID, &a.Identifier, &a.Name, &a.SecretHash, &createdAt, &updatedAt); err != nil {
		return accountgate.Account{}, err
	}
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return a, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return accountgate.ErrAccountNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
