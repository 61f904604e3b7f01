package repo

import (
	"context"
	"fmt"
	"time"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
	"mrwiat/internal/sqlinline"
)

// VoucherRepositoryPG implements domain.VoucherStore backed by PostgreSQL.
type VoucherRepositoryPG struct {
	sql infra.TxRunner
}

// NewVoucherRepository creates a new VoucherRepositoryPG.
func NewVoucherRepository(sql infra.TxRunner) *VoucherRepositoryPG {
	return &VoucherRepositoryPG{sql: sql}
}

// Redeem locks the voucher row, credits the account and flips the voucher in
// one transaction. Concurrent callers queue on the row lock and observe the
// committed redeemed flag once they acquire it.
func (r *VoucherRepositoryPG) Redeem(ctx context.Context, code string, accountID int64, at time.Time) (domain.Redemption, error) {
	red := domain.Redemption{Code: code, AccountID: accountID, At: at}
	err := r.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		var (
			id       int64
			redeemed bool
		)
		if err := tx.QueryRow(ctx, sqlinline.QVoucherLockByCode, code).Scan(&id, &red.Points, &redeemed); err != nil {
			if infra.IsNoRows(err) {
				return domain.ErrVoucherNotFound
			}
			return err
		}
		if redeemed {
			return domain.ErrAlreadyRedeemed
		}

		balance, err := credit(ctx, tx, accountID, red.Points)
		if err != nil {
			return err
		}
		red.Balance = balance

		tag, err := tx.Exec(ctx, sqlinline.QVoucherMarkRedeemed, id, accountID, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return domain.ErrAlreadyRedeemed
		}
		return nil
	})
	if err != nil {
		return domain.Redemption{}, err
	}
	return red, nil
}

func (r *VoucherRepositoryPG) Get(ctx context.Context, code string) (*domain.Voucher, error) {
	var v domain.Voucher
	err := r.sql.QueryRow(ctx, sqlinline.QVoucherGet, code).Scan(
		&v.ID,
		&v.Code,
		&v.Points,
		&v.Redeemed,
		&v.RedeemedBy,
		&v.RedeemedAt,
		&v.CreatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrVoucherNotFound
		}
		return nil, err
	}
	return &v, nil
}

// InsertBatch skips codes that already exist and returns the inserted ones.
func (r *VoucherRepositoryPG) InsertBatch(ctx context.Context, vouchers []domain.Voucher) ([]string, error) {
	if len(vouchers) == 0 {
		return nil, nil
	}
	codes := make([]string, 0, len(vouchers))
	points := make([]int64, 0, len(vouchers))
	for _, v := range vouchers {
		if v.Points <= 0 {
			return nil, fmt.Errorf("voucher %s: %w", v.Code, domain.ErrInvalidAmount)
		}
		codes = append(codes, v.Code)
		points = append(points, v.Points)
	}

	rows, err := r.sql.Query(ctx, sqlinline.QVoucherInsertBatch, codes, points)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inserted []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		inserted = append(inserted, code)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return inserted, nil
}

var _ domain.VoucherStore = (*VoucherRepositoryPG)(nil)
