package rotation

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/mselser95/polymarket-lp/internal/events"
	"github.com/mselser95/polymarket-lp/internal/selection"
	"github.com/mselser95/polymarket-lp/internal/storage"
	"go.uber.org/zap"
)

func testConfig() Config {
	return Config{
		Cooldown:        12 * time.Hour,
		MinTenure:       6 * time.Hour,
		ScoreMultiplier: 1.25,
		NumMarkets:      3,
	}
}

func newTestEngine(t *testing.T, ledger storage.Ledger, now time.Time) *Engine {
	t.Helper()
	engine := NewEngine(testConfig(), ledger, events.NopRecorder{}, zap.NewNop())
	engine.now = func() time.Time { return now }
	return engine
}

func snapshotOf(entries ...selection.SnapshotEntry) *selection.Snapshot {
	return &selection.Snapshot{Timestamp: time.Now(), TopN: entries}
}

func entry(slug string, score float64) selection.SnapshotEntry {
	return selection.SnapshotEntry{Slug: slug, ConditionID: "0x" + slug, Score: score}
}

func activeEntry(slug string, enteredAt time.Time, score float64) storage.ActiveMarket {
	return storage.ActiveMarket{
		ConditionID:  "0x" + slug,
		Slug:         slug,
		EnteredAt:    enteredAt,
		ScoreAtEntry: score,
	}
}

func TestSeedingFillsEmptySlots(t *testing.T) {
	ledger := storage.NewMemoryLedger()
	now := time.Now()
	engine := newTestEngine(t, ledger, now)

	result, err := engine.Evaluate(context.Background(),
		snapshotOf(entry("a", 9), entry("b", 8), entry("c", 7), entry("d", 6)))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if result.Seeded != 3 {
		t.Errorf("Seeded = %d, want 3 (capped at num_markets)", result.Seeded)
	}
	active, _ := ledger.ListActiveMarkets(context.Background())
	if len(active) != 3 {
		t.Fatalf("active = %d markets, want 3", len(active))
	}

	// Seeding is not a rotation; the cooldown timestamp stays unset.
	if _, err := ledger.GetState(context.Background(), storage.KeyLastRotation); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("last rotation timestamp set by seeding: %v", err)
	}
}

func TestReplacementRequiresTenureAndMargin(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name        string
		enteredAt   time.Time
		entryScore  float64
		candScore   float64
		wantReplace bool
	}{
		{"both satisfied", now.Add(-7 * time.Hour), 4.0, 5.5, true},
		{"tenure too short", now.Add(-time.Hour), 4.0, 5.5, false},
		{"margin too small", now.Add(-7 * time.Hour), 4.0, 4.5, false},
		{"margin exactly met", now.Add(-7 * time.Hour), 4.0, 5.0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := storage.NewMemoryLedger()
			ctx := context.Background()
			for _, slug := range []string{"inc1", "inc2"} {
				ledger.InsertActiveMarket(ctx, activeEntry(slug, now.Add(-8*time.Hour), 9))
			}
			ledger.InsertActiveMarket(ctx, activeEntry("target", tc.enteredAt, tc.entryScore))

			engine := newTestEngine(t, ledger, now)
			result, err := engine.Evaluate(ctx, snapshotOf(entry("cand", tc.candScore)))
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}

			if got := len(result.Decisions) == 1; got != tc.wantReplace {
				t.Fatalf("replaced = %v, want %v (decisions %+v)", got, tc.wantReplace, result.Decisions)
			}
			if tc.wantReplace {
				d := result.Decisions[0]
				if d.OutSlug != "target" || d.InSlug != "cand" {
					t.Errorf("decision = %+v", d)
				}
			}
		})
	}
}

func TestCooldownBlocksRotation(t *testing.T) {
	ledger := storage.NewMemoryLedger()
	ctx := context.Background()
	now := time.Now()

	ledger.InsertActiveMarket(ctx, activeEntry("inc1", now.Add(-24*time.Hour), 2))
	ledger.InsertActiveMarket(ctx, activeEntry("inc2", now.Add(-24*time.Hour), 2))
	ledger.InsertActiveMarket(ctx, activeEntry("inc3", now.Add(-24*time.Hour), 2))

	// Last rotation one hour ago; cooldown is 12h.
	ledger.SetState(ctx, storage.KeyLastRotation, strconv.FormatInt(now.Add(-time.Hour).Unix(), 10))

	engine := newTestEngine(t, ledger, now)
	result, err := engine.Evaluate(ctx, snapshotOf(entry("cand", 100)))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(result.Decisions) != 0 {
		t.Errorf("rotation fired inside cooldown: %+v", result.Decisions)
	}
}

func TestFirstRotationAlwaysEligible(t *testing.T) {
	ledger := storage.NewMemoryLedger()
	ctx := context.Background()
	now := time.Now()

	ledger.InsertActiveMarket(ctx, activeEntry("inc1", now.Add(-24*time.Hour), 2))
	ledger.InsertActiveMarket(ctx, activeEntry("inc2", now.Add(-24*time.Hour), 2))
	ledger.InsertActiveMarket(ctx, activeEntry("inc3", now.Add(-24*time.Hour), 2))

	engine := newTestEngine(t, ledger, now)
	result, err := engine.Evaluate(ctx, snapshotOf(entry("cand", 100)))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(result.Decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(result.Decisions))
	}
}

func TestOneCandidatePerIncumbent(t *testing.T) {
	ledger := storage.NewMemoryLedger()
	ctx := context.Background()
	now := time.Now()

	// Only one incumbent is old enough to replace.
	ledger.InsertActiveMarket(ctx, activeEntry("old", now.Add(-24*time.Hour), 2))
	ledger.InsertActiveMarket(ctx, activeEntry("young1", now.Add(-time.Hour), 2))
	ledger.InsertActiveMarket(ctx, activeEntry("young2", now.Add(-time.Hour), 2))

	engine := newTestEngine(t, ledger, now)
	result, err := engine.Evaluate(ctx, snapshotOf(entry("cand1", 100), entry("cand2", 100)))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if len(result.Decisions) != 1 {
		t.Fatalf("decisions = %d, want 1 (one candidate per incumbent)", len(result.Decisions))
	}
	if result.Decisions[0].OutSlug != "old" || result.Decisions[0].InSlug != "cand1" {
		t.Errorf("decision = %+v", result.Decisions[0])
	}
}

func TestTimestampMovesOnlyOnAppliedDecisions(t *testing.T) {
	ledger := storage.NewMemoryLedger()
	ctx := context.Background()
	now := time.Now()

	ledger.InsertActiveMarket(ctx, activeEntry("inc1", now.Add(-24*time.Hour), 50))
	ledger.InsertActiveMarket(ctx, activeEntry("inc2", now.Add(-24*time.Hour), 50))
	ledger.InsertActiveMarket(ctx, activeEntry("inc3", now.Add(-24*time.Hour), 50))

	engine := newTestEngine(t, ledger, now)

	// Candidate score too low: no decision, no timestamp.
	if _, err := engine.Evaluate(ctx, snapshotOf(entry("weak", 10))); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if _, err := ledger.GetState(ctx, storage.KeyLastRotation); !errors.Is(err, storage.ErrNotFound) {
		t.Fatal("timestamp written without any applied decision")
	}

	// Strong candidate: decision applied, timestamp written.
	if _, err := engine.Evaluate(ctx, snapshotOf(entry("strong", 100))); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	value, err := ledger.GetState(ctx, storage.KeyLastRotation)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if value != strconv.FormatInt(now.Unix(), 10) {
		t.Errorf("timestamp = %q, want %d", value, now.Unix())
	}
}

func TestSnapshotMarketsAlreadyActiveAreSkipped(t *testing.T) {
	ledger := storage.NewMemoryLedger()
	ctx := context.Background()
	now := time.Now()

	ledger.InsertActiveMarket(ctx, activeEntry("a", now.Add(-24*time.Hour), 2))
	ledger.InsertActiveMarket(ctx, activeEntry("b", now.Add(-24*time.Hour), 2))
	ledger.InsertActiveMarket(ctx, activeEntry("c", now.Add(-24*time.Hour), 2))

	engine := newTestEngine(t, ledger, now)
	result, err := engine.Evaluate(ctx, snapshotOf(entry("a", 100), entry("b", 100), entry("c", 100)))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Seeded != 0 || len(result.Decisions) != 0 {
		t.Errorf("active markets should never rotate themselves out: %+v", result)
	}
}
