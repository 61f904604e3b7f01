package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mrwiat/internal/domain"
)

type vouchers struct {
	s *Store
}

// Redeem holds the database write lock from the first read, so the redeemed
// check and the flip cannot interleave with another redeemer.
func (v *vouchers) Redeem(ctx context.Context, code string, accountID int64, at time.Time) (domain.Redemption, error) {
	red := domain.Redemption{Code: code, AccountID: accountID, At: at}
	err := v.s.inTx(ctx, "redeem", func(tx *sql.Tx) error {
		var (
			id       int64
			redeemed bool
		)
		err := tx.QueryRowContext(ctx, `SELECT id, points, redeemed FROM vouchers WHERE code = ?`, code).
			Scan(&id, &red.Points, &redeemed)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrVoucherNotFound
		}
		if err != nil {
			return err
		}
		if redeemed {
			return domain.ErrAlreadyRedeemed
		}

		balance, err := creditTx(ctx, tx, accountID, red.Points, v.s.now())
		if err != nil {
			return err
		}
		red.Balance = balance

		res, err := tx.ExecContext(ctx,
			`UPDATE vouchers SET redeemed = 1, redeemed_by = ?, redeemed_at = ? WHERE id = ? AND redeemed = 0`,
			accountID, at.UTC(), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return domain.ErrAlreadyRedeemed
		}
		return nil
	})
	if err != nil {
		return domain.Redemption{}, err
	}
	return red, nil
}

func (v *vouchers) Get(ctx context.Context, code string) (*domain.Voucher, error) {
	var (
		out        domain.Voucher
		redeemedBy sql.NullInt64
		redeemedAt sql.NullTime
	)
	err := v.s.db.QueryRowContext(ctx,
		`SELECT id, code, points, redeemed, redeemed_by, redeemed_at, created_at FROM vouchers WHERE code = ?`, code).
		Scan(&out.ID, &out.Code, &out.Points, &out.Redeemed, &redeemedBy, &redeemedAt, &out.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}
	if redeemedBy.Valid {
		id := redeemedBy.Int64
		out.RedeemedBy = &id
	}
	if redeemedAt.Valid {
		at := redeemedAt.Time
		out.RedeemedAt = &at
	}
	return &out, nil
}

func (v *vouchers) InsertBatch(ctx context.Context, batch []domain.Voucher) ([]string, error) {
	var inserted []string
	err := v.s.inTx(ctx, "insert_vouchers", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO vouchers (code, points, created_at) VALUES (?, ?, ?) ON CONFLICT (code) DO NOTHING`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := v.s.now()
		for _, item := range batch {
			if item.Points <= 0 {
				return fmt.Errorf("voucher %s: %w", item.Code, domain.ErrInvalidAmount)
			}
			res, err := stmt.ExecContext(ctx, item.Code, item.Points, now)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 1 {
				inserted = append(inserted, item.Code)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func creditTx(ctx context.Context, tx *sql.Tx, accountID, amount int64, now time.Time) (int64, error) {
	var balance int64
	err := tx.QueryRowContext(ctx, `
INSERT INTO accounts (id, balance, created_at, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET balance = accounts.balance + excluded.balance, updated_at = excluded.updated_at
RETURNING balance`, accountID, amount, now, now).Scan(&balance)
	return balance, err
}
