package repo

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"mrwiat/internal/domain"
	"mrwiat/internal/infra"
	"mrwiat/internal/sqlinline"
)

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("scan arity mismatch")
	}
	for i, v := range r.values {
		if v == nil {
			continue
		}
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

type call struct {
	query string
	args  []any
}

type scriptedExecutor struct {
	rows  map[string]stubRow
	tags  map[string]pgconn.CommandTag
	calls []call
	txs   int
}

func newScriptedExecutor() *scriptedExecutor {
	return &scriptedExecutor{rows: map[string]stubRow{}, tags: map[string]pgconn.CommandTag{}}
}

func (s *scriptedExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, call{query: query, args: args})
	return s.tags[query], nil
}

func (s *scriptedExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, call{query: query, args: args})
	row, ok := s.rows[query]
	if !ok {
		return stubRow{err: pgx.ErrNoRows}
	}
	return row
}

func (s *scriptedExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (s *scriptedExecutor) InTx(ctx context.Context, fn func(tx infra.SQLExecutor) error) error {
	s.txs++
	return fn(s)
}

func (s *scriptedExecutor) ran(query string) bool {
	for _, c := range s.calls {
		if c.query == query {
			return true
		}
	}
	return false
}

func TestLedgerDebitScansOutcome(t *testing.T) {
	exec := newScriptedExecutor()
	exec.rows[sqlinline.QLedgerDebit] = stubRow{values: []any{false, int64(40)}}
	repo := NewLedgerRepository(exec)

	res, err := repo.DebitIfSufficient(context.Background(), 7, 60)
	if err != nil {
		t.Fatalf("DebitIfSufficient error: %v", err)
	}
	if res.OK || res.Balance != 40 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := exec.calls[0].args; got[0] != int64(7) || got[1] != int64(60) {
		t.Fatalf("unexpected args %v", got)
	}
}

func TestLedgerAdjustRunsInTransaction(t *testing.T) {
	exec := newScriptedExecutor()
	exec.rows[sqlinline.QLedgerLockBalance] = stubRow{values: []any{int64(30)}}
	exec.rows[sqlinline.QLedgerSetBalance] = stubRow{values: []any{int64(0)}}
	repo := NewLedgerRepository(exec)

	adj, err := repo.Adjust(context.Background(), 9, -50)
	if err != nil {
		t.Fatalf("Adjust error: %v", err)
	}
	if exec.txs != 1 {
		t.Fatalf("expected one transaction, got %d", exec.txs)
	}
	if adj.Before != 30 || adj.After != 0 {
		t.Fatalf("unexpected adjustment %+v", adj)
	}
	last := exec.calls[len(exec.calls)-1]
	if last.query != sqlinline.QLedgerSetBalance || last.args[1] != int64(-20) {
		t.Fatalf("expected set balance with -20 (clamped in SQL), got %v", last.args)
	}
}

func TestVoucherRedeemNotFound(t *testing.T) {
	exec := newScriptedExecutor()
	repo := NewVoucherRepository(exec)

	_, err := repo.Redeem(context.Background(), "MISSING", 1, time.Now())
	if !errors.Is(err, domain.ErrVoucherNotFound) {
		t.Fatalf("expected ErrVoucherNotFound, got %v", err)
	}
	if exec.ran(sqlinline.QLedgerCredit) {
		t.Fatalf("credit must not run for a missing voucher")
	}
}

func TestVoucherRedeemAlreadyRedeemed(t *testing.T) {
	exec := newScriptedExecutor()
	exec.rows[sqlinline.QVoucherLockByCode] = stubRow{values: []any{int64(3), int64(100), true}}
	repo := NewVoucherRepository(exec)

	_, err := repo.Redeem(context.Background(), "ABC", 1, time.Now())
	if !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Fatalf("expected ErrAlreadyRedeemed, got %v", err)
	}
	if exec.ran(sqlinline.QLedgerCredit) || exec.ran(sqlinline.QVoucherMarkRedeemed) {
		t.Fatalf("no writes expected for a redeemed voucher")
	}
}

func TestVoucherRedeemCreditsAndMarks(t *testing.T) {
	exec := newScriptedExecutor()
	exec.rows[sqlinline.QVoucherLockByCode] = stubRow{values: []any{int64(3), int64(100), false}}
	exec.rows[sqlinline.QLedgerCredit] = stubRow{values: []any{int64(150)}}
	exec.tags[sqlinline.QVoucherMarkRedeemed] = pgconn.NewCommandTag("UPDATE 1")
	repo := NewVoucherRepository(exec)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	red, err := repo.Redeem(context.Background(), "ABC", 42, at)
	if err != nil {
		t.Fatalf("Redeem error: %v", err)
	}
	if red.Points != 100 || red.Balance != 150 || red.AccountID != 42 || !red.At.Equal(at) {
		t.Fatalf("unexpected redemption %+v", red)
	}
	if exec.txs != 1 {
		t.Fatalf("expected a single transaction, got %d", exec.txs)
	}
}

func TestVoucherInsertBatchRejectsNonPositivePoints(t *testing.T) {
	repo := NewVoucherRepository(newScriptedExecutor())
	_, err := repo.InsertBatch(context.Background(), []domain.Voucher{{Code: "X", Points: 0}})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestJobUpdateStatusMissingJob(t *testing.T) {
	exec := newScriptedExecutor()
	exec.tags[sqlinline.QJobUpdateStatus] = pgconn.NewCommandTag("UPDATE 0")
	repo := NewJobRepository(exec)

	err := repo.UpdateStatus(context.Background(), domain.JobUpdate{ExternalID: "job", Status: domain.JobStatusRunning})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobUpdateStatusLeavesTerminalJob(t *testing.T) {
	exec := newScriptedExecutor()
	exec.tags[sqlinline.QJobUpdateStatus] = pgconn.NewCommandTag("UPDATE 0")
	exec.rows[sqlinline.QJobStatus] = stubRow{values: []any{"SUCCEEDED"}}
	repo := NewJobRepository(exec)

	err := repo.UpdateStatus(context.Background(), domain.JobUpdate{ExternalID: "job", Status: domain.JobStatusTimedOut})
	if !errors.Is(err, domain.ErrJobTerminal) {
		t.Fatalf("expected ErrJobTerminal, got %v", err)
	}
}

func TestJobGetByExternalIDNotFound(t *testing.T) {
	repo := NewJobRepository(newScriptedExecutor())
	if _, err := repo.GetByExternalID(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorePingWithoutPool(t *testing.T) {
	exec := newScriptedExecutor()
	store := NewStoreWithRunner(exec)
	if err := store.Ping(context.Background()); err == nil {
		t.Fatalf("expected error when the database does not answer")
	}
	exec.rows[sqlinline.QPing] = stubRow{values: []any{1}}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping error: %v", err)
	}
}

func TestLedgerBalanceIsOneUpsert(t *testing.T) {
	exec := newScriptedExecutor()
	exec.rows[sqlinline.QLedgerBalance] = stubRow{values: []any{int64(25)}}
	repo := NewLedgerRepository(exec)

	balance, err := repo.Balance(context.Background(), 5)
	if err != nil {
		t.Fatalf("Balance error: %v", err)
	}
	if balance != 25 || len(exec.calls) != 1 {
		t.Fatalf("balance=%d calls=%d", balance, len(exec.calls))
	}
	if !strings.Contains(sqlinline.QLedgerBalance, "on conflict (id) do update") {
		t.Fatalf("balance lookup must return the row for existing accounts")
	}
}
