package selection

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/mselser95/polymarket-lp/internal/events"
	"github.com/mselser95/polymarket-lp/pkg/config"
	"github.com/mselser95/polymarket-lp/pkg/types"
	"go.uber.org/zap"
)

func eligibleMarket(slug string) types.MarketRecord {
	return types.MarketRecord{
		ID:               "1",
		Slug:             slug,
		ConditionID:      "0x" + slug,
		Active:           true,
		Closed:           false,
		AcceptingOrders:  true,
		OrderBookEnabled: true,
		Restricted:       false,
		RewardsMinSize:   50,
		RewardsMaxSpread: 0.03,
		Volume24h:        1000,
		Liquidity:        5000,
		EndDate:          time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339),
		Outcomes:         []string{"Yes", "No"},
		TokenIDs:         []string{slug + "-yes", slug + "-no"},
	}
}

func defaultEligCfg() EligibilityConfig {
	return EligibilityConfig{
		ExcludeRestricted: true,
		EndDateBufferDays: 7,
		MinVolume24h:      500,
	}
}

func TestEligibleSingleFlagFlips(t *testing.T) {
	now := time.Now()
	cfg := defaultEligCfg()

	base := eligibleMarket("base")
	if !Eligible(&base, cfg, now) {
		t.Fatal("base market should be eligible")
	}

	cases := []struct {
		name   string
		mutate func(*types.MarketRecord)
	}{
		{"inactive", func(m *types.MarketRecord) { m.Active = false }},
		{"closed", func(m *types.MarketRecord) { m.Closed = true }},
		{"not accepting orders", func(m *types.MarketRecord) { m.AcceptingOrders = false }},
		{"order book disabled", func(m *types.MarketRecord) { m.OrderBookEnabled = false }},
		{"zero min size", func(m *types.MarketRecord) { m.RewardsMinSize = 0 }},
		{"zero max spread", func(m *types.MarketRecord) { m.RewardsMaxSpread = 0 }},
		{"restricted", func(m *types.MarketRecord) { m.Restricted = true }},
		{"ends too soon", func(m *types.MarketRecord) {
			m.EndDate = now.Add(24 * time.Hour).Format(time.RFC3339)
		}},
		{"unparsable end date", func(m *types.MarketRecord) { m.EndDate = "soon" }},
		{"low volume", func(m *types.MarketRecord) { m.Volume24h = 100 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := eligibleMarket("base")
			tc.mutate(&m)
			if Eligible(&m, cfg, now) {
				t.Errorf("market should be ineligible when %s", tc.name)
			}
		})
	}
}

func TestEligibleNullEndDate(t *testing.T) {
	m := eligibleMarket("open-ended")
	m.EndDate = ""
	if !Eligible(&m, defaultEligCfg(), time.Now()) {
		t.Error("empty end date should not disqualify")
	}
}

func TestEligibleRestrictedAllowedByPolicy(t *testing.T) {
	cfg := defaultEligCfg()
	cfg.ExcludeRestricted = false

	m := eligibleMarket("restricted")
	m.Restricted = true
	if !Eligible(&m, cfg, time.Now()) {
		t.Error("restricted market should pass when the policy allows it")
	}
}

func TestFeasibility(t *testing.T) {
	cfg := CapitalConfig{
		TotalCapital:   1000,
		UsableFraction: 0.85,
		NumMarkets:     3,
		SizeBuffer:     1.1,
	}

	wantBudget := 1000 * 0.85 / 3.0
	if got := cfg.PerMarketBudget(); math.Abs(got-wantBudget) > 1e-9 {
		t.Errorf("PerMarketBudget = %v, want %v", got, wantBudget)
	}

	small := eligibleMarket("small")
	small.RewardsMinSize = 50
	cap := Feasibility(&small, cfg)
	if wantRequired := 3.0 * 1.1 * 50; math.Abs(cap.RequiredCapital-wantRequired) > 1e-9 {
		t.Errorf("RequiredCapital = %v, want %v", cap.RequiredCapital, wantRequired)
	}
	if !cap.Feasible {
		t.Error("50-share minimum should be feasible at this budget")
	}

	big := eligibleMarket("big")
	big.RewardsMinSize = 200
	if Feasibility(&big, cfg).Feasible {
		t.Error("200-share minimum should exceed the per-market budget")
	}
}

func TestScoreCapitalTermZeroBudget(t *testing.T) {
	m := eligibleMarket("m")

	withBudget := Score(&m, CapFeasibility{RequiredCapital: 100, PerMarketBudget: 200})
	noBudget := Score(&m, CapFeasibility{RequiredCapital: 100, PerMarketBudget: 0})

	if noBudget <= withBudget {
		t.Error("zero budget should drop the capital penalty, not fault")
	}
	if math.IsNaN(noBudget) || math.IsInf(noBudget, 0) {
		t.Errorf("score with zero budget = %v", noBudget)
	}
}

func TestScorePrefersWiderSpread(t *testing.T) {
	narrow := eligibleMarket("narrow")
	narrow.RewardsMaxSpread = 0.01
	wide := eligibleMarket("wide")
	wide.RewardsMaxSpread = 0.05

	cap := CapFeasibility{RequiredCapital: 100, PerMarketBudget: 283}
	if Score(&wide, cap) <= Score(&narrow, cap) {
		t.Error("wider permitted spread should score higher, all else equal")
	}
}

func TestScorePenalizesVolatility(t *testing.T) {
	calm := eligibleMarket("calm")
	jumpy := eligibleMarket("jumpy")
	jumpy.OneHourPriceChange = -0.2

	cap := CapFeasibility{RequiredCapital: 100, PerMarketBudget: 283}
	if Score(&jumpy, cap) >= Score(&calm, cap) {
		t.Error("recent price movement should lower the score")
	}
}

// fakeBooks serves canned parsed books keyed by token id.
type fakeBooks struct {
	books map[string]*types.ParsedBook
	errs  map[string]error
}

func twoSidedBook(tokenID string) *types.ParsedBook {
	return &types.ParsedBook{
		TokenID: tokenID,
		Bids:    []types.Level{{Price: 0.48, Size: 100}},
		Asks:    []types.Level{{Price: 0.52, Size: 100}},
	}
}

func (f *fakeBooks) FetchBook(_ context.Context, tokenID string) (*types.ParsedBook, error) {
	if err, ok := f.errs[tokenID]; ok {
		return nil, err
	}
	if book, ok := f.books[tokenID]; ok {
		return book, nil
	}
	return twoSidedBook(tokenID), nil
}

func TestPreflightRejectsOneSidedBook(t *testing.T) {
	books := &fakeBooks{books: map[string]*types.ParsedBook{
		"m-yes": {TokenID: "m-yes", Bids: []types.Level{{Price: 0.48, Size: 100}}},
	}}

	ok, reason := Preflight(context.Background(), books, map[string]string{"Yes": "m-yes", "No": "m-no"}, 0.8)
	if ok {
		t.Fatal("one-sided book should fail preflight")
	}
	if reason == "" {
		t.Error("rejection should carry a reason")
	}
}

func TestPreflightRejectsWideBook(t *testing.T) {
	books := &fakeBooks{books: map[string]*types.ParsedBook{
		"m-yes": {
			TokenID: "m-yes",
			Bids:    []types.Level{{Price: 0.05, Size: 100}},
			Asks:    []types.Level{{Price: 0.95, Size: 100}},
		},
	}}

	ok, _ := Preflight(context.Background(), books, map[string]string{"Yes": "m-yes"}, 0.8)
	if ok {
		t.Fatal("0.90 spread should exceed the 0.8 threshold")
	}

	// Threshold 0 disables the width check.
	ok, _ = Preflight(context.Background(), books, map[string]string{"Yes": "m-yes"}, 0)
	if !ok {
		t.Error("width check should be skipped when no threshold is set")
	}
}

func TestPreflightFetchFailureRejectsWithoutError(t *testing.T) {
	books := &fakeBooks{errs: map[string]error{"m-yes": fmt.Errorf("boom")}}

	ok, reason := Preflight(context.Background(), books, map[string]string{"Yes": "m-yes"}, 0.8)
	if ok {
		t.Fatal("fetch failure should reject the market")
	}
	if reason == "" {
		t.Error("rejection should carry a reason")
	}
}

func TestPreflightPasses(t *testing.T) {
	books := &fakeBooks{}
	ok, reason := Preflight(context.Background(), books, map[string]string{"Yes": "m-yes", "No": "m-no"}, 0.8)
	if !ok {
		t.Fatalf("healthy books should pass, got reason %q", reason)
	}
}

// fakeFeed returns a fixed catalog.
type fakeFeed struct {
	markets []types.MarketRecord
}

func (f *fakeFeed) FetchMarkets(context.Context, bool, int) ([]types.MarketRecord, error) {
	return f.markets, nil
}

func TestPipelineFunnel(t *testing.T) {
	// 20 markets: 15 fail eligibility, 2 of the rest fail capital
	// feasibility, 2 of the survivors fail preflight. Exactly 1 remains.
	var markets []types.MarketRecord
	for i := 0; i < 15; i++ {
		m := eligibleMarket(fmt.Sprintf("closed-%d", i))
		m.Closed = true
		markets = append(markets, m)
	}
	for _, slug := range []string{"too-big-1", "too-big-2"} {
		m := eligibleMarket(slug)
		m.RewardsMinSize = 200
		markets = append(markets, m)
	}
	markets = append(markets,
		eligibleMarket("one-sided-1"),
		eligibleMarket("one-sided-2"),
		eligibleMarket("winner"),
	)

	books := &fakeBooks{books: map[string]*types.ParsedBook{
		"one-sided-1-yes": {TokenID: "one-sided-1-yes", Asks: []types.Level{{Price: 0.52, Size: 100}}},
		"one-sided-2-yes": {TokenID: "one-sided-2-yes", Asks: []types.Level{{Price: 0.52, Size: 100}}},
	}}

	cfg := config.Default()
	cfg.SnapshotPath = t.TempDir() + "/target_markets.json"

	pipeline := NewPipeline(cfg, &fakeFeed{markets: markets}, books, events.NopRecorder{}, zap.NewNop())

	snapshot, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if snapshot.TotalFetched != 20 {
		t.Errorf("TotalFetched = %d, want 20", snapshot.TotalFetched)
	}
	if snapshot.TotalEligible != 5 {
		t.Errorf("TotalEligible = %d, want 5", snapshot.TotalEligible)
	}
	if snapshot.TotalFeasible != 3 {
		t.Errorf("TotalFeasible = %d, want 3", snapshot.TotalFeasible)
	}
	if len(snapshot.TopN) != 1 || snapshot.TopN[0].Slug != "winner" {
		t.Fatalf("TopN = %+v, want exactly [winner]", snapshot.TopN)
	}

	// The persisted snapshot matches what Run returned.
	loaded, err := LoadSnapshot(cfg.SnapshotPath)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(loaded.TopN) != 1 || loaded.TopN[0].Slug != "winner" {
		t.Errorf("persisted TopN = %+v", loaded.TopN)
	}
	if loaded.TopN[0].OutcomeTokenMap["Yes"] != "winner-yes" {
		t.Errorf("token map = %v", loaded.TopN[0].OutcomeTokenMap)
	}
}

func TestPipelineRanksByScoreDescending(t *testing.T) {
	low := eligibleMarket("low")
	low.RewardsMaxSpread = 0.01
	low.Volume24h = 600
	high := eligibleMarket("high")
	high.RewardsMaxSpread = 0.05
	high.Volume24h = 50000

	cfg := config.Default()
	cfg.NumMarkets = 2
	cfg.SnapshotPath = t.TempDir() + "/target_markets.json"

	pipeline := NewPipeline(cfg, &fakeFeed{markets: []types.MarketRecord{low, high}}, &fakeBooks{}, events.NopRecorder{}, zap.NewNop())

	snapshot, err := pipeline.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(snapshot.TopN) != 2 {
		t.Fatalf("TopN size = %d, want 2", len(snapshot.TopN))
	}
	if snapshot.TopN[0].Slug != "high" || snapshot.TopN[1].Slug != "low" {
		t.Errorf("ranking = [%s, %s], want [high, low]", snapshot.TopN[0].Slug, snapshot.TopN[1].Slug)
	}
}

func TestSnapshotFullReplace(t *testing.T) {
	path := t.TempDir() + "/target_markets.json"

	first := &Snapshot{Timestamp: time.Now(), TopN: []SnapshotEntry{{Slug: "a"}, {Slug: "b"}}}
	if err := WriteSnapshot(path, first); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	second := &Snapshot{Timestamp: time.Now(), TopN: []SnapshotEntry{{Slug: "c"}}}
	if err := WriteSnapshot(path, second); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(loaded.TopN) != 1 || loaded.TopN[0].Slug != "c" {
		t.Errorf("snapshot not fully replaced: %+v", loaded.TopN)
	}

	if _, ok := loaded.Entry("c"); !ok {
		t.Error("Entry lookup failed for c")
	}
	if _, ok := loaded.Entry("a"); ok {
		t.Error("stale entry a still present")
	}
}
