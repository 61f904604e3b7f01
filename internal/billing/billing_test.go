package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mrwiat/internal/domain"
	"mrwiat/internal/providers/video"
)

func TestParsePriceTable(t *testing.T) {
	table, err := ParsePriceTable("5:30, 10:60,15:85,*:110")
	if err != nil {
		t.Fatalf("ParsePriceTable error: %v", err)
	}
	cases := map[int]int64{1: 30, 5: 30, 6: 60, 10: 60, 15: 85, 16: 110, 60: 110}
	for secs, want := range cases {
		if got := table.Cost(secs); got != want {
			t.Fatalf("Cost(%d) = %d, want %d", secs, got, want)
		}
	}
	for _, bad := range []string{"5:30", "5:30,3:40,*:50", "5:30,10:20,*:50", "x:1,*:2", "5:30,*:10"} {
		if _, err := ParsePriceTable(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

type fakeWallet struct {
	mu       sync.Mutex
	balance  int64
	credits  int
	debitErr error
}

func (w *fakeWallet) Debit(ctx context.Context, id, amount int64) (domain.DebitResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debitErr != nil {
		return domain.DebitResult{}, w.debitErr
	}
	if w.balance < amount {
		return domain.DebitResult{Balance: w.balance}, nil
	}
	w.balance -= amount
	return domain.DebitResult{OK: true, Balance: w.balance}, nil
}

func (w *fakeWallet) Credit(ctx context.Context, id, amount int64) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.credits++
	w.balance += amount
	return w.balance, nil
}

type fakeSubmitter struct {
	calls int
	err   error
	last  video.SubmitRequest
	id    string

	// onSubmit runs before the handle is returned.
	onSubmit func()
}

func (s *fakeSubmitter) Submit(ctx context.Context, req video.SubmitRequest) (video.JobHandle, error) {
	s.calls++
	s.last = req
	if s.onSubmit != nil {
		s.onSubmit()
	}
	if s.err != nil {
		return video.JobHandle{}, s.err
	}
	id := s.id
	if id == "" {
		id = "task-1"
	}
	return video.JobHandle{ID: id, DurationSeconds: video.QuantizeDuration(req.DurationSeconds), Ratio: video.RendererRatio(req.AspectRatio)}, nil
}

type fakeJobs struct {
	created []domain.GenerationJob
	err     error
}

func (f *fakeJobs) Create(ctx context.Context, job *domain.GenerationJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *job)
	return nil
}
func (f *fakeJobs) GetByExternalID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	return nil, domain.ErrNotFound
}
func (f *fakeJobs) UpdateStatus(ctx context.Context, u domain.JobUpdate) error { return nil }
func (f *fakeJobs) ClaimStale(ctx context.Context, t time.Time, n int) ([]domain.GenerationJob, error) {
	return nil, nil
}

type fakeTracker struct {
	tracked []domain.GenerationJob
}

func (f *fakeTracker) Track(job domain.GenerationJob) { f.tracked = append(f.tracked, job) }

func TestChargeAndGenerateScenario(t *testing.T) {
	wallet := &fakeWallet{balance: 100}
	sub := &fakeSubmitter{}
	jobs := &fakeJobs{}
	tr := &fakeTracker{}
	o := NewOrchestrator(wallet, sub, jobs, tr, Options{})

	started, err := o.ChargeAndGenerate(context.Background(), Request{AccountID: 1, Prompt: "sunset", DurationSeconds: 7, AspectRatio: "16:9"})
	if err != nil {
		t.Fatalf("first generation error: %v", err)
	}
	if started.Cost != 60 || started.Balance != 40 || started.Handle.DurationSeconds != 6 {
		t.Fatalf("unexpected start %+v", started)
	}
	if len(jobs.created) != 1 || len(tr.tracked) != 1 || tr.tracked[0].ExternalID != "task-1" {
		t.Fatalf("job not recorded and tracked")
	}

	_, err = o.ChargeAndGenerate(context.Background(), Request{AccountID: 1, Prompt: "sunset", DurationSeconds: 7})
	var funds *domain.InsufficientFundsError
	if !errors.As(err, &funds) || !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected InsufficientFundsError, got %v", err)
	}
	if funds.Shortfall() != 20 || wallet.balance != 40 {
		t.Fatalf("shortfall %d balance %d", funds.Shortfall(), wallet.balance)
	}
	if sub.calls != 1 {
		t.Fatalf("submit must not run without a successful debit, calls=%d", sub.calls)
	}
}

func TestSubmissionFailureKeepsDebitByDefault(t *testing.T) {
	wallet := &fakeWallet{balance: 100}
	sub := &fakeSubmitter{err: errors.New("renderer 500")}
	tr := &fakeTracker{}
	o := NewOrchestrator(wallet, sub, &fakeJobs{}, tr, Options{})

	_, err := o.ChargeAndGenerate(context.Background(), Request{AccountID: 1, Prompt: "x", DurationSeconds: 3})
	var subErr *domain.SubmissionError
	if !errors.As(err, &subErr) || !errors.Is(err, domain.ErrSubmissionFailed) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if subErr.Refunded || wallet.balance != 70 || wallet.credits != 0 {
		t.Fatalf("debit should stand: refunded=%v balance=%d", subErr.Refunded, wallet.balance)
	}
	if len(tr.tracked) != 0 {
		t.Fatalf("nothing should be tracked")
	}
}

func TestSubmissionFailureRefundsWhenEnabled(t *testing.T) {
	wallet := &fakeWallet{balance: 100}
	sub := &fakeSubmitter{err: errors.New("renderer 500")}
	o := NewOrchestrator(wallet, sub, &fakeJobs{}, &fakeTracker{}, Options{RefundOnSubmitFailure: true})

	_, err := o.ChargeAndGenerate(context.Background(), Request{AccountID: 1, Prompt: "x", DurationSeconds: 12})
	var subErr *domain.SubmissionError
	if !errors.As(err, &subErr) || !subErr.Refunded {
		t.Fatalf("expected refunded SubmissionError, got %v", err)
	}
	if wallet.balance != 100 {
		t.Fatalf("expected balance restored to 100, got %d", wallet.balance)
	}
}

func TestChargeAndGenerateValidatesInput(t *testing.T) {
	wallet := &fakeWallet{balance: 100}
	o := NewOrchestrator(wallet, &fakeSubmitter{}, &fakeJobs{}, &fakeTracker{}, Options{})

	if _, err := o.ChargeAndGenerate(context.Background(), Request{AccountID: 1, Prompt: "  ", DurationSeconds: 5}); !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("expected ErrInvalidPrompt, got %v", err)
	}
	if _, err := o.ChargeAndGenerate(context.Background(), Request{AccountID: 1, Prompt: "x", DurationSeconds: 0}); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if wallet.balance != 100 {
		t.Fatalf("validation failures must not debit")
	}
}

func TestStorageFailurePropagates(t *testing.T) {
	wallet := &fakeWallet{debitErr: domain.StorageError("wallet debit", errors.New("down"))}
	sub := &fakeSubmitter{}
	o := NewOrchestrator(wallet, sub, &fakeJobs{}, &fakeTracker{}, Options{})

	_, err := o.ChargeAndGenerate(context.Background(), Request{AccountID: 1, Prompt: "x", DurationSeconds: 5})
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if sub.calls != 0 {
		t.Fatalf("submit must not run")
	}
}

func TestJobRecordedWhenCallerCancelsDuringSubmit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wallet := &fakeWallet{balance: 100}
	sub := &fakeSubmitter{id: "task-9", onSubmit: cancel}
	jobs := &fakeJobs{}
	tr := &fakeTracker{}
	o := NewOrchestrator(wallet, sub, jobs, tr, Options{})

	started, err := o.ChargeAndGenerate(ctx, Request{AccountID: 4, Prompt: "harbour at dawn", DurationSeconds: 5})
	if err != nil {
		t.Fatalf("ChargeAndGenerate error: %v", err)
	}
	if started.Handle.ID != "task-9" {
		t.Fatalf("handle = %q", started.Handle.ID)
	}
	if len(jobs.created) != 1 || jobs.created[0].ExternalID != "task-9" || jobs.created[0].AccountID != 4 {
		t.Fatalf("job not recorded after cancellation: %+v", jobs.created)
	}
	if len(tr.tracked) != 1 {
		t.Fatalf("job not tracked")
	}
}

func TestRecordFailureReturnsJobID(t *testing.T) {
	wallet := &fakeWallet{balance: 100}
	sub := &fakeSubmitter{id: "task-9"}
	jobs := &fakeJobs{err: errors.New("disk full")}
	tr := &fakeTracker{}
	o := NewOrchestrator(wallet, sub, jobs, tr, Options{})

	started, err := o.ChargeAndGenerate(context.Background(), Request{AccountID: 4, Prompt: "x", DurationSeconds: 5})
	var recErr *domain.RecordError
	if !errors.As(err, &recErr) || !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected RecordError, got %v", err)
	}
	if recErr.JobID != "task-9" || recErr.AccountID != 4 || recErr.Cost != 30 {
		t.Fatalf("unexpected record error %+v", recErr)
	}
	if started.Handle.ID != "task-9" || started.Balance != 70 {
		t.Fatalf("started should still describe the submitted job: %+v", started)
	}
	if len(tr.tracked) != 0 {
		t.Fatalf("unrecorded job must not be tracked")
	}
}
