// Package redeem turns pre-sold voucher codes into wallet credit exactly once.
package redeem

import (
	"context"
	"errors"
	"time"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
)

type Options struct {
	Prefixes []string
	Logger   *infra.Logger
	Now      func() time.Time
}

type Service struct {
	vouchers domain.VoucherStore
	prefixes []string
	logger   infra.Logger
	now      func() time.Time
}

func NewService(vouchers domain.VoucherStore, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	prefixes := opts.Prefixes
	if prefixes == nil {
		prefixes = DefaultPrefixes
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		vouchers: vouchers,
		prefixes: prefixes,
		logger:   infra.WithComponent(*logger, "redeem"),
		now:      now,
	}
}

// Redeem normalises code and claims it for accountID. The claim and the
// credit commit together inside the voucher store. Outcomes are
// domain.ErrVoucherNotFound, domain.ErrAlreadyRedeemed or
// domain.ErrStorageUnavailable.
func (s *Service) Redeem(ctx context.Context, code string, accountID int64) (domain.Redemption, error) {
	normalized := NormalizeCode(code, s.prefixes)
	if normalized == "" || len(normalized) > MaxCodeLength {
		return domain.Redemption{}, domain.ErrVoucherNotFound
	}

	red, err := s.vouchers.Redeem(ctx, normalized, accountID, s.now())
	switch {
	case err == nil:
		s.logger.Info().
			Str("code", normalized).
			Int64("account_id", accountID).
			Int64("points", red.Points).
			Int64("balance", red.Balance).
			Msg("voucher redeemed")
		return red, nil
	case errors.Is(err, domain.ErrVoucherNotFound), errors.Is(err, domain.ErrAlreadyRedeemed):
		s.logger.Info().Str("code", normalized).Int64("account_id", accountID).Err(err).Msg("voucher rejected")
		return domain.Redemption{}, err
	default:
		return domain.Redemption{}, domain.StorageError("redeem voucher", err)
	}
}
