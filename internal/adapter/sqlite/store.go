// Package sqlite is the embedded single-node backend. Every write runs in a
// BEGIN IMMEDIATE transaction, so SQLite's database-level write lock is the
// arbitration point that Postgres row locks provide in the repo package.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY,
	balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS vouchers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	code TEXT NOT NULL UNIQUE,
	points INTEGER NOT NULL CHECK (points > 0),
	redeemed INTEGER NOT NULL DEFAULT 0,
	redeemed_by INTEGER REFERENCES accounts (id),
	redeemed_at DATETIME,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS generation_jobs (
	external_id TEXT PRIMARY KEY,
	account_id INTEGER NOT NULL REFERENCES accounts (id),
	prompt TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL,
	aspect_ratio TEXT NOT NULL,
	cost INTEGER NOT NULL,
	status TEXT NOT NULL,
	result_url TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	polled_at DATETIME
);
`

// Store implements domain.Store on a single SQLite file.
type Store struct {
	db     *sql.DB
	logger infra.Logger
	now    func() time.Time
}

// Open creates the parent directory if needed and opens path.
func Open(path string, logger infra.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		logger: infra.WithComponent(logger, "sqlite"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) Ledger() domain.LedgerStore    { return &ledger{s: s} }
func (s *Store) Vouchers() domain.VoucherStore { return &vouchers{s: s} }
func (s *Store) Jobs() domain.JobRepository    { return &jobs{s: s} }

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// inTx runs fn in an immediate transaction and commits when fn returns nil.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error().Err(rbErr).Str("op", op).Msg("sqlite rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	s.logger.Debug().Str("op", op).Msg("sqlite tx ok")
	return nil
}

func ensureAccount(ctx context.Context, tx *sql.Tx, accountID int64, now time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (id, balance, created_at, updated_at) VALUES (?, 0, ?, ?) ON CONFLICT (id) DO NOTHING`,
		accountID, now, now)
	return err
}

var _ domain.Store = (*Store)(nil)
