package domain

import (
	"context"
	"time"
)

// LedgerStore persists account balances. Every mutation is a single atomic
// statement or transaction; implementations never read then write separately.
type LedgerStore interface {
	// Balance returns the balance, creating the account at zero if absent.
	Balance(ctx context.Context, accountID int64) (int64, error)
	// DebitIfSufficient subtracts amount only when balance >= amount.
	DebitIfSufficient(ctx context.Context, accountID, amount int64) (DebitResult, error)
	// Credit unconditionally adds amount and returns the new balance.
	Credit(ctx context.Context, accountID, amount int64) (int64, error)
	// Adjust applies delta, clamping the result at zero.
	Adjust(ctx context.Context, accountID, delta int64) (Adjustment, error)
	// SetBalance overwrites the balance (negative values clamp to zero).
	SetBalance(ctx context.Context, accountID, balance int64) (Adjustment, error)
}

// VoucherStore persists redemption codes.
type VoucherStore interface {
	// Redeem atomically marks the voucher redeemed and credits its points to
	// accountID within one transaction. It returns ErrVoucherNotFound or
	// ErrAlreadyRedeemed without mutating anything.
	Redeem(ctx context.Context, code string, accountID int64, at time.Time) (Redemption, error)
	Get(ctx context.Context, code string) (*Voucher, error)
	// InsertBatch inserts vouchers, skipping codes that already exist, and
	// returns the codes actually inserted.
	InsertBatch(ctx context.Context, vouchers []Voucher) ([]string, error)
}

// JobRepository persists the last observed state of generation jobs.
type JobRepository interface {
	Create(ctx context.Context, job *GenerationJob) error
	GetByExternalID(ctx context.Context, externalID string) (*GenerationJob, error)
	UpdateStatus(ctx context.Context, update JobUpdate) error
	// ClaimStale leases up to limit non-terminal jobs not polled since olderThan.
	ClaimStale(ctx context.Context, olderThan time.Time, limit int) ([]GenerationJob, error)
}

// Store bundles the persistence contracts a backend provides.
type Store interface {
	Ledger() LedgerStore
	Vouchers() VoucherStore
	Jobs() JobRepository
	Migrate(ctx context.Context) error
	// Ping reports whether the backing database answers.
	Ping(ctx context.Context) error
	Close() error
}
