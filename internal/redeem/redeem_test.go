package redeem

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mrwiat/internal/domain"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trim and upper", "  abc123xyz  ", "ABC123XYZ"},
		{"salla prefix", "salla-ABCD1234", "ABCD1234"},
		{"mrw prefix", "Mrw-k9k9", "K9K9"},
		{"full width", "ＡＢＣ１２３", "ABC123"},
		{"arabic indic digits", "AB٣٤", "AB34"},
		{"extended arabic digits", "ZZ۱۲", "ZZ12"},
		{"inner spaces", "AB CD 12", "ABCD12"},
		{"only first prefix", "SALLA-MRW-X1", "MRW-X1"},
		{"empty", "   ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeCode(tc.in, DefaultPrefixes); got != tc.want {
				t.Fatalf("NormalizeCode(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

type memVouchers struct {
	mu       sync.Mutex
	points   map[string]int64
	used     map[string]int64
	balances map[int64]int64
	err      error
	seen     []string
}

func newMemVouchers() *memVouchers {
	return &memVouchers{points: map[string]int64{}, used: map[string]int64{}, balances: map[int64]int64{}}
}

func (m *memVouchers) Redeem(ctx context.Context, code string, account int64, at time.Time) (domain.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, code)
	if m.err != nil {
		return domain.Redemption{}, m.err
	}
	pts, ok := m.points[code]
	if !ok {
		return domain.Redemption{}, domain.ErrVoucherNotFound
	}
	if _, done := m.used[code]; done {
		return domain.Redemption{}, domain.ErrAlreadyRedeemed
	}
	m.used[code] = account
	m.balances[account] += pts
	return domain.Redemption{Code: code, AccountID: account, Points: pts, Balance: m.balances[account], At: at}, nil
}

func (m *memVouchers) Get(ctx context.Context, code string) (*domain.Voucher, error) {
	return nil, domain.ErrVoucherNotFound
}

func (m *memVouchers) InsertBatch(ctx context.Context, v []domain.Voucher) ([]string, error) {
	return nil, nil
}

func TestRedeemNormalizesBeforeLookup(t *testing.T) {
	store := newMemVouchers()
	store.points["ABC123"] = 100
	svc := NewService(store, Options{})

	red, err := svc.Redeem(context.Background(), " salla-abc123 ", 5)
	if err != nil {
		t.Fatalf("Redeem error: %v", err)
	}
	if red.Points != 100 || red.Balance != 100 {
		t.Fatalf("unexpected redemption %+v", red)
	}
	if store.seen[0] != "ABC123" {
		t.Fatalf("store saw %q", store.seen[0])
	}
}

func TestRedeemEmptyCodeSkipsStore(t *testing.T) {
	store := newMemVouchers()
	svc := NewService(store, Options{})
	if _, err := svc.Redeem(context.Background(), "SALLA-", 1); !errors.Is(err, domain.ErrVoucherNotFound) {
		t.Fatalf("expected ErrVoucherNotFound, got %v", err)
	}
	if len(store.seen) != 0 {
		t.Fatalf("store should not be called")
	}
}

func TestRedeemConcurrentExactlyOnce(t *testing.T) {
	store := newMemVouchers()
	store.points["ONCE"] = 50
	svc := NewService(store, Options{})

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		already int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(account int64) {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), "once", account)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, domain.ErrAlreadyRedeemed) {
				already++
			}
		}(int64(i))
	}
	wg.Wait()
	if ok != 1 || already != n-1 {
		t.Fatalf("got %d ok and %d already redeemed", ok, already)
	}
}

func TestRedeemWrapsStorageFailures(t *testing.T) {
	store := newMemVouchers()
	store.err = errors.New("db down")
	svc := NewService(store, Options{})
	_, err := svc.Redeem(context.Background(), "ANY", 1)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
