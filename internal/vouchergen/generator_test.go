package vouchergen

import (
	"context"
	"strings"
	"testing"
	"time"

	"mrwiat/internal/domain"
)

// collidingStore rejects the first `collide` codes it is offered.
type collidingStore struct {
	collide int
	codes   map[string]int64
}

func (s *collidingStore) Redeem(ctx context.Context, code string, account int64, at time.Time) (domain.Redemption, error) {
	return domain.Redemption{}, domain.ErrVoucherNotFound
}

func (s *collidingStore) Get(ctx context.Context, code string) (*domain.Voucher, error) {
	return nil, domain.ErrVoucherNotFound
}

func (s *collidingStore) InsertBatch(ctx context.Context, batch []domain.Voucher) ([]string, error) {
	var inserted []string
	for _, v := range batch {
		if s.collide > 0 {
			s.collide--
			continue
		}
		s.codes[v.Code] = v.Points
		inserted = append(inserted, v.Code)
	}
	return inserted, nil
}

func TestGenerateFillsEveryTierDespiteCollisions(t *testing.T) {
	store := &collidingStore{collide: 3, codes: map[string]int64{}}
	gen := New(store, 12, nil)

	out, err := gen.Generate(context.Background(), DefaultTiers)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(out) != 25 || len(store.codes) != 25 {
		t.Fatalf("expected 25 codes, got %d (stored %d)", len(out), len(store.codes))
	}
	perTier := map[int64]int{}
	for _, v := range out {
		perTier[v.Points]++
		if len(v.Code) != 12 {
			t.Fatalf("code %q has wrong length", v.Code)
		}
	}
	if perTier[50] != 10 || perTier[100] != 10 || perTier[500] != 5 {
		t.Fatalf("unexpected tier counts %v", perTier)
	}
}

func TestRandomCodeAlphabet(t *testing.T) {
	code, err := RandomCode(64)
	if err != nil {
		t.Fatalf("RandomCode error: %v", err)
	}
	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			t.Fatalf("unexpected rune %q in %q", r, code)
		}
	}
}

func TestParseTier(t *testing.T) {
	tier, err := ParseTier(" 100 = 7 ")
	if err != nil || tier.Points != 100 || tier.Count != 7 {
		t.Fatalf("unexpected tier %+v %v", tier, err)
	}
	for _, bad := range []string{"100", "x=1", "100=0", "-5=2"} {
		if _, err := ParseTier(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
