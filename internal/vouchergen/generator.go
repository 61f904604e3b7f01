// Package vouchergen mints batches of random voucher codes for the storefront.
package vouchergen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
)

const (
	Alphabet      = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultLength = 12
	maxRounds     = 8
)

// Tier asks for Count fresh codes worth Points each.
type Tier struct {
	Points int64
	Count  int
}

// DefaultTiers mirrors the storefront's standard print run.
var DefaultTiers = []Tier{{Points: 50, Count: 10}, {Points: 100, Count: 10}, {Points: 500, Count: 5}}

// ParseTier parses "points=count".
func ParseTier(raw string) (Tier, error) {
	pts, cnt, ok := strings.Cut(strings.TrimSpace(raw), "=")
	if !ok {
		return Tier{}, fmt.Errorf("tier %q: expected points=count", raw)
	}
	points, err := strconv.ParseInt(strings.TrimSpace(pts), 10, 64)
	if err != nil || points <= 0 {
		return Tier{}, fmt.Errorf("tier %q: invalid points", raw)
	}
	count, err := strconv.Atoi(strings.TrimSpace(cnt))
	if err != nil || count <= 0 {
		return Tier{}, fmt.Errorf("tier %q: invalid count", raw)
	}
	return Tier{Points: points, Count: count}, nil
}

type Generator struct {
	store  domain.VoucherStore
	length int
	logger infra.Logger
}

func New(store domain.VoucherStore, length int, logger *infra.Logger) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &Generator{store: store, length: length, logger: infra.WithComponent(*logger, "vouchergen")}
}

// Generate inserts every tier, regenerating codes that collide with existing
// ones until each tier's count is met.
func (g *Generator) Generate(ctx context.Context, tiers []Tier) ([]domain.Voucher, error) {
	var out []domain.Voucher
	for _, tier := range tiers {
		need := tier.Count
		for round := 0; need > 0; round++ {
			if round == maxRounds {
				return out, fmt.Errorf("tier %d: %d codes still colliding after %d rounds", tier.Points, need, maxRounds)
			}
			batch := make([]domain.Voucher, 0, need)
			for i := 0; i < need; i++ {
				code, err := RandomCode(g.length)
				if err != nil {
					return out, err
				}
				batch = append(batch, domain.Voucher{Code: code, Points: tier.Points})
			}
			inserted, err := g.store.InsertBatch(ctx, batch)
			if err != nil {
				return out, domain.StorageError("insert vouchers", err)
			}
			for _, code := range inserted {
				out = append(out, domain.Voucher{Code: code, Points: tier.Points})
			}
			need -= len(inserted)
			if need > 0 {
				g.logger.Debug().Int64("points", tier.Points).Int("collisions", need).Msg("regenerating colliding codes")
			}
		}
		g.logger.Info().Int64("points", tier.Points).Int("count", tier.Count).Msg("tier generated")
	}
	return out, nil
}

// RandomCode returns length characters drawn uniformly from Alphabet.
func RandomCode(length int) (string, error) {
	size := big.NewInt(int64(len(Alphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}
