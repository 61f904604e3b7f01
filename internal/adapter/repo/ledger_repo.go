package repo

import (
	"context"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
	"mrwiat/internal/sqlinline"
)

// LedgerRepositoryPG implements domain.LedgerStore backed by PostgreSQL.
type LedgerRepositoryPG struct {
	sql infra.TxRunner
}

// NewLedgerRepository creates a new LedgerRepositoryPG.
func NewLedgerRepository(sql infra.TxRunner) *LedgerRepositoryPG {
	return &LedgerRepositoryPG{sql: sql}
}

func (r *LedgerRepositoryPG) Balance(ctx context.Context, accountID int64) (int64, error) {
	var balance int64
	if err := r.sql.QueryRow(ctx, sqlinline.QLedgerBalance, accountID).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// DebitIfSufficient runs the compare-and-subtract as a single statement.
func (r *LedgerRepositoryPG) DebitIfSufficient(ctx context.Context, accountID, amount int64) (domain.DebitResult, error) {
	var res domain.DebitResult
	if err := r.sql.QueryRow(ctx, sqlinline.QLedgerDebit, accountID, amount).Scan(&res.OK, &res.Balance); err != nil {
		return domain.DebitResult{}, err
	}
	return res, nil
}

func (r *LedgerRepositoryPG) Credit(ctx context.Context, accountID, amount int64) (int64, error) {
	return credit(ctx, r.sql, accountID, amount)
}

// Adjust applies delta under a row lock, clamping at zero.
func (r *LedgerRepositoryPG) Adjust(ctx context.Context, accountID, delta int64) (domain.Adjustment, error) {
	return r.overwrite(ctx, accountID, func(before int64) int64 { return before + delta })
}

func (r *LedgerRepositoryPG) SetBalance(ctx context.Context, accountID, balance int64) (domain.Adjustment, error) {
	return r.overwrite(ctx, accountID, func(int64) int64 { return balance })
}

func (r *LedgerRepositoryPG) overwrite(ctx context.Context, accountID int64, next func(before int64) int64) (domain.Adjustment, error) {
	adj := domain.Adjustment{AccountID: accountID}
	err := r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if _, err := tx.Exec(ctx, sqlinline.QLedgerEnsureAccount, accountID); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, sqlinline.QLedgerLockBalance, accountID).Scan(&adj.Before); err != nil {
			return err
		}
		return tx.QueryRow(ctx, sqlinline.QLedgerSetBalance, accountID, next(adj.Before)).Scan(&adj.After)
	})
	if err != nil {
		return domain.Adjustment{}, err
	}
	return adj, nil
}

func credit(ctx context.Context, sql infra.SQLExecutor, accountID, amount int64) (int64, error) {
	var balance int64
	if err := sql.QueryRow(ctx, sqlinline.QLedgerCredit, accountID, amount).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

var _ domain.LedgerStore = (*LedgerRepositoryPG)(nil)
