package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/polymarket-lp/internal/events"
	"github.com/mselser95/polymarket-lp/internal/selection"
	"github.com/mselser95/polymarket-lp/pkg/config"
	"github.com/mselser95/polymarket-lp/pkg/types"
	"go.uber.org/zap"
)

// fakeBooks serves a fixed healthy book for every token.
type fakeBooks struct {
	mu    sync.Mutex
	books map[string]*types.ParsedBook
}

func healthyBook(tokenID string) *types.ParsedBook {
	return &types.ParsedBook{
		TokenID: tokenID,
		Bids:    []types.Level{{Price: 0.49, Size: 200}},
		Asks:    []types.Level{{Price: 0.51, Size: 200}},
	}
}

func (f *fakeBooks) FetchBook(_ context.Context, tokenID string) (*types.ParsedBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.books != nil {
		if book, ok := f.books[tokenID]; ok {
			return book, nil
		}
	}
	return healthyBook(tokenID), nil
}

// recordingExec counts ReplaceQuote calls per slot.
type recordingExec struct {
	mu       sync.Mutex
	calls    map[string]int
	fail     bool
	shutdown int
}

func newRecordingExec() *recordingExec {
	return &recordingExec{calls: make(map[string]int)}
}

func (r *recordingExec) ReplaceQuote(_ context.Context, outcome, _, side string, _, _ float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("exchange unavailable")
	}
	r.calls[outcome+"/"+side]++
	return nil
}

func (r *recordingExec) NeedsRefresh(context.Context, string, string, float64) bool { return false }

func (r *recordingExec) Shutdown(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdown++
}

func (r *recordingExec) totalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.calls {
		total += n
	}
	return total
}

func testEntry() selection.SnapshotEntry {
	return selection.SnapshotEntry{
		Slug:             "will-it-rain",
		ConditionID:      "0xcond",
		RewardsMinSize:   50,
		RewardsMaxSpread: 0.035,
		OutcomeTokenMap:  map[string]string{"Yes": "tok-yes", "No": "tok-no"},
	}
}

func quoteCfg() config.QuoteConfig {
	return config.QuoteConfig{SizeBuffer: 1.1, HalfSpreadFrac: 0.85, UpdateMinTicks: 2}
}

func newTestWorker(exec Executor, books selection.BookFetcher) *Worker {
	return New(testEntry(), books, exec, quoteCfg(), time.Hour, events.NopRecorder{}, zap.NewNop())
}

func TestWorkerQuotesBothSidesOfEachOutcome(t *testing.T) {
	exec := newRecordingExec()
	w := newTestWorker(exec, &fakeBooks{})

	w.iterate(context.Background())

	for _, slot := range []string{"Yes/BUY", "Yes/SELL", "No/BUY", "No/SELL"} {
		if exec.calls[slot] != 1 {
			t.Errorf("slot %s quoted %d times, want 1", slot, exec.calls[slot])
		}
	}
}

func TestWorkerHoldsQuotesOnStableBook(t *testing.T) {
	exec := newRecordingExec()
	w := newTestWorker(exec, &fakeBooks{})

	w.iterate(context.Background())
	first := exec.totalCalls()

	// Same book, same targets: churn control holds every quote.
	w.iterate(context.Background())
	if exec.totalCalls() != first {
		t.Errorf("stable book caused %d extra replacements", exec.totalCalls()-first)
	}
}

func TestWorkerRepricesOnLargeMove(t *testing.T) {
	books := &fakeBooks{books: map[string]*types.ParsedBook{
		"tok-yes": healthyBook("tok-yes"),
		"tok-no":  healthyBook("tok-no"),
	}}
	exec := newRecordingExec()
	w := newTestWorker(exec, books)

	w.iterate(context.Background())
	first := exec.calls["Yes/BUY"]

	// Move the Yes book far enough that the old quotes fall out of band.
	books.mu.Lock()
	books.books["tok-yes"] = &types.ParsedBook{
		TokenID: "tok-yes",
		Bids:    []types.Level{{Price: 0.59, Size: 200}},
		Asks:    []types.Level{{Price: 0.61, Size: 200}},
	}
	books.mu.Unlock()

	w.iterate(context.Background())
	if exec.calls["Yes/BUY"] != first+1 {
		t.Errorf("Yes/BUY calls = %d, want %d", exec.calls["Yes/BUY"], first+1)
	}
	// The No book did not move.
	if exec.calls["No/BUY"] != 1 {
		t.Errorf("No/BUY calls = %d, want 1", exec.calls["No/BUY"])
	}
}

func TestWorkerSkipsOutcomeWithoutMidpoint(t *testing.T) {
	books := &fakeBooks{books: map[string]*types.ParsedBook{
		"tok-yes": {
			TokenID: "tok-yes",
			Bids:    []types.Level{{Price: 0.49, Size: 5}}, // never reaches min size
			Asks:    []types.Level{{Price: 0.51, Size: 200}},
		},
	}}
	exec := newRecordingExec()
	w := newTestWorker(exec, books)

	w.iterate(context.Background())

	if exec.calls["Yes/BUY"] != 0 || exec.calls["Yes/SELL"] != 0 {
		t.Error("outcome without a midpoint must be skipped")
	}
	if exec.calls["No/BUY"] != 1 {
		t.Error("healthy outcome should still be quoted")
	}
}

func TestWorkerRetriesAfterFailedReplace(t *testing.T) {
	exec := newRecordingExec()
	exec.fail = true
	w := newTestWorker(exec, &fakeBooks{})

	w.iterate(context.Background())
	if exec.totalCalls() != 0 {
		t.Fatal("failed replacements should not be recorded")
	}

	// Failure cleared the prior quote, so the next iteration retries.
	exec.mu.Lock()
	exec.fail = false
	exec.mu.Unlock()

	w.iterate(context.Background())
	if exec.calls["Yes/BUY"] != 1 {
		t.Errorf("Yes/BUY not retried after failure: %d calls", exec.calls["Yes/BUY"])
	}
}

func TestWorkerRunShutdownOnCancel(t *testing.T) {
	exec := newRecordingExec()
	w := New(testEntry(), &fakeBooks{}, exec, quoteCfg(), 10*time.Millisecond, events.NopRecorder{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if exec.shutdown != 1 {
		t.Errorf("executor shutdown ran %d times, want 1", exec.shutdown)
	}
}
