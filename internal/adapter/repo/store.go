package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
	"mrwiat/internal/sqlinline"
)

// Store bundles the PostgreSQL repositories over one pool.
type Store struct {
	pool    *pgxpool.Pool
	runner  infra.TxRunner
	ledger  *LedgerRepositoryPG
	voucher *VoucherRepositoryPG
	jobs    *JobRepositoryPG
}

// NewStore wires the repositories over an SQLRunner built on pool.
func NewStore(pool *pgxpool.Pool, logger infra.Logger) *Store {
	runner := infra.NewSQLRunner(pool, infra.WithComponent(logger, "postgres"))
	s := NewStoreWithRunner(runner)
	s.pool = pool
	return s
}

// NewStoreWithRunner is used by tests and tools that provide their own executor.
func NewStoreWithRunner(runner infra.TxRunner) *Store {
	return &Store{
		runner:  runner,
		ledger:  NewLedgerRepository(runner),
		voucher: NewVoucherRepository(runner),
		jobs:    NewJobRepository(runner),
	}
}

func (s *Store) Ledger() domain.LedgerStore    { return s.ledger }
func (s *Store) Vouchers() domain.VoucherStore { return s.voucher }
func (s *Store) Jobs() domain.JobRepository    { return s.jobs }

// Runner exposes the executor for collaborators such as credentials.Store.
func (s *Store) Runner() infra.TxRunner { return s.runner }

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.runner.Exec(ctx, sqlinline.QSchema)
	return err
}

// Ping checks the pool, or the runner when the store was built without one.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	var one int
	return s.runner.QueryRow(ctx, sqlinline.QPing).Scan(&one)
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

var _ domain.Store = (*Store)(nil)
