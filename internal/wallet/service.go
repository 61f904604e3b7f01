// Package wallet exposes balance queries and atomic debit/credit over a
// domain.LedgerStore. It holds no balance state of its own.
package wallet

import (
	"context"
	"fmt"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
)

type Service struct {
	store  domain.LedgerStore
	logger infra.Logger
}

func NewService(store domain.LedgerStore, logger *infra.Logger) *Service {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Service{store: store, logger: infra.WithComponent(*logger, "wallet")}
}

// GetBalance returns the balance, creating the account at zero if absent.
func (s *Service) GetBalance(ctx context.Context, accountID int64) (int64, error) {
	balance, err := s.store.Balance(ctx, accountID)
	if err != nil {
		return 0, domain.StorageError("wallet balance", err)
	}
	return balance, nil
}

// TryDebit reports whether amount was subtracted.
func (s *Service) TryDebit(ctx context.Context, accountID, amount int64) (bool, error) {
	res, err := s.Debit(ctx, accountID, amount)
	if err != nil {
		return false, err
	}
	return res.OK, nil
}

// Debit is TryDebit that also reports the resulting (or untouched) balance.
// A zero amount always succeeds and leaves the balance as it is.
func (s *Service) Debit(ctx context.Context, accountID, amount int64) (domain.DebitResult, error) {
	if amount < 0 {
		return domain.DebitResult{}, fmt.Errorf("debit %d: %w", amount, domain.ErrInvalidAmount)
	}
	if amount == 0 {
		balance, err := s.GetBalance(ctx, accountID)
		if err != nil {
			return domain.DebitResult{}, err
		}
		return domain.DebitResult{OK: true, Balance: balance}, nil
	}
	res, err := s.store.DebitIfSufficient(ctx, accountID, amount)
	if err != nil {
		return domain.DebitResult{}, domain.StorageError("wallet debit", err)
	}
	s.logger.Debug().
		Int64("account_id", accountID).
		Int64("amount", amount).
		Bool("ok", res.OK).
		Int64("balance", res.Balance).
		Msg("debit")
	return res, nil
}

// Credit unconditionally adds amount and returns the new balance.
func (s *Service) Credit(ctx context.Context, accountID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit %d: %w", amount, domain.ErrInvalidAmount)
	}
	balance, err := s.store.Credit(ctx, accountID, amount)
	if err != nil {
		return 0, domain.StorageError("wallet credit", err)
	}
	s.logger.Debug().Int64("account_id", accountID).Int64("amount", amount).Int64("balance", balance).Msg("credit")
	return balance, nil
}

// Adjust applies an administrative delta; negative results clamp to zero.
func (s *Service) Adjust(ctx context.Context, accountID, delta int64) (domain.Adjustment, error) {
	adj, err := s.store.Adjust(ctx, accountID, delta)
	if err != nil {
		return domain.Adjustment{}, domain.StorageError("wallet adjust", err)
	}
	s.logger.Info().Int64("account_id", accountID).Int64("before", adj.Before).Int64("after", adj.After).Msg("balance adjusted")
	return adj, nil
}

func (s *Service) SetBalance(ctx context.Context, accountID, balance int64) (domain.Adjustment, error) {
	adj, err := s.store.SetBalance(ctx, accountID, balance)
	if err != nil {
		return domain.Adjustment{}, domain.StorageError("wallet set", err)
	}
	s.logger.Info().Int64("account_id", accountID).Int64("before", adj.Before).Int64("after", adj.After).Msg("balance set")
	return adj, nil
}
