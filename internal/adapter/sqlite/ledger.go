package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"mrwiat/internal/domain"
)

type ledger struct {
	s *Store
}

func (l *ledger) Balance(ctx context.Context, accountID int64) (int64, error) {
	var balance int64
	err := l.s.inTx(ctx, "balance", func(tx *sql.Tx) error {
		if err := ensureAccount(ctx, tx, accountID, l.s.now()); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&balance)
	})
	return balance, err
}

func (l *ledger) DebitIfSufficient(ctx context.Context, accountID, amount int64) (domain.DebitResult, error) {
	var res domain.DebitResult
	err := l.s.inTx(ctx, "debit", func(tx *sql.Tx) error {
		now := l.s.now()
		if err := ensureAccount(ctx, tx, accountID, now); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx,
			`UPDATE accounts SET balance = balance - ?, updated_at = ? WHERE id = ? AND balance >= ? RETURNING balance`,
			amount, now, accountID, amount).Scan(&res.Balance)
		switch {
		case err == nil:
			res.OK = true
			return nil
		case errors.Is(err, sql.ErrNoRows):
			return tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&res.Balance)
		default:
			return err
		}
	})
	if err != nil {
		return domain.DebitResult{}, err
	}
	return res, nil
}

func (l *ledger) Credit(ctx context.Context, accountID, amount int64) (int64, error) {
	var balance int64
	err := l.s.inTx(ctx, "credit", func(tx *sql.Tx) error {
		var err error
		balance, err = creditTx(ctx, tx, accountID, amount, l.s.now())
		return err
	})
	return balance, err
}

func (l *ledger) Adjust(ctx context.Context, accountID, delta int64) (domain.Adjustment, error) {
	return l.overwrite(ctx, "adjust", accountID, func(before int64) int64 { return before + delta })
}

func (l *ledger) SetBalance(ctx context.Context, accountID, balance int64) (domain.Adjustment, error) {
	return l.overwrite(ctx, "set_balance", accountID, func(int64) int64 { return balance })
}

func (l *ledger) overwrite(ctx context.Context, op string, accountID int64, next func(int64) int64) (domain.Adjustment, error) {
	adj := domain.Adjustment{AccountID: accountID}
	err := l.s.inTx(ctx, op, func(tx *sql.Tx) error {
		now := l.s.now()
		if err := ensureAccount(ctx, tx, accountID, now); err != nil {
			return err
		}
		if err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&adj.Before); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx,
			`UPDATE accounts SET balance = max(?, 0), updated_at = ? WHERE id = ? RETURNING balance`,
			next(adj.Before), now, accountID).Scan(&adj.After)
	})
	if err != nil {
		return domain.Adjustment{}, err
	}
	return adj, nil
}
