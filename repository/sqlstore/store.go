// Package sqlstore is a [goRecover.UserRepository] over database/sql. It
// speaks SQLite through modernc.org/sqlite and PostgreSQL through lib/pq.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goRecover "github.com/MrEthical07/goRecover"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect selects the driver and placeholder style.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type Store struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Open connects with the dialect's driver, pings, and migrates.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlstore: dsn is required")
	}
	switch dialect {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("sqlstore: unknown dialect %q", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// One writer avoids SQLITE_BUSY under concurrent updates.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping %s: %w", dialect, err)
	}

	s, err := New(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open handle and runs pending migrations.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: db is required")
	}
	s := &Store{db: db, dialect: dialect, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("sqlstore: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, account goRecover.Account) error {
	if strings.TrimSpace(account.Name) == "" {
		return fmt.Errorf("sqlstore: account name is required")
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := s.now().Unix()

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO accounts (id, name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
		account.ID, account.Name, account.Email, account.PasswordHash, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", goRecover.ErrAccountExists, account.Name)
		}
		return fmt.Errorf("sqlstore: insert account: %w", err)
	}
	return nil
}

func (s *Store) FindByName(ctx context.Context, name string) (goRecover.Account, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, name, email, password_hash FROM accounts WHERE name = ?`), name)

	var account goRecover.Account
	if err := row.Scan(&account.ID, &account.Name, &account.Email, &account.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goRecover.Account{}, fmt.Errorf("%w: %s", goRecover.ErrAccountNotFound, name)
		}
		return goRecover.Account{}, fmt.Errorf("sqlstore: find by name: %w", err)
	}
	return account, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) ([]goRecover.Account, error) {
	if strings.TrimSpace(email) == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, name, email, password_hash FROM accounts WHERE lower(email) = lower(?) ORDER BY name`), email)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find by email: %w", err)
	}
	defer rows.Close()

	var out []goRecover.Account
	for rows.Next() {
		var account goRecover.Account
		if err := rows.Scan(&account.ID, &account.Name, &account.Email, &account.PasswordHash); err != nil {
			return nil, fmt.Errorf("sqlstore: scan account: %w", err)
		}
		out = append(out, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: find by email: %w", err)
	}
	return out, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, name, hash string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE name = ?`), hash, s.now().Unix(), name)
	if err != nil {
		return fmt.Errorf("sqlstore: update password hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: update password hash: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", goRecover.ErrAccountNotFound, name)
	}
	return nil
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

var _ goRecover.UserRepository = (*Store)(nil)
