package selection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mselser95/polymarket-lp/internal/events"
	"github.com/mselser95/polymarket-lp/pkg/config"
	"github.com/mselser95/polymarket-lp/pkg/types"
	"go.uber.org/zap"
)

// MarketFetcher retrieves the normalized market catalog.
type MarketFetcher interface {
	FetchMarkets(ctx context.Context, closed bool, max int) ([]types.MarketRecord, error)
}

// ScoredMarket is one market that survived the full funnel, with its score
// and the data workers need. Lives for one selection cycle.
type ScoredMarket struct {
	Market   types.MarketRecord
	Tokens   map[string]string
	Cap      CapFeasibility
	Score    float64
	Features Features
}

// Pipeline runs the selection funnel end to end: fetch, eligibility,
// capital feasibility, book preflight, scoring, ranking, snapshot.
type Pipeline struct {
	cfg      *config.Config
	markets  MarketFetcher
	books    BookFetcher
	recorder events.Recorder
	logger   *zap.Logger
}

// NewPipeline creates a selection pipeline.
func NewPipeline(cfg *config.Config, markets MarketFetcher, books BookFetcher, recorder events.Recorder, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		markets:  markets,
		books:    books,
		recorder: recorder,
		logger:   logger,
	}
}

// Run executes one selection cycle and writes the resulting snapshot to the
// configured path, fully replacing the previous one.
func (p *Pipeline) Run(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	defer func() {
		SelectionDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	fetched, err := p.markets.FetchMarkets(ctx, false, p.cfg.MaxMarketsFetch)
	if err != nil {
		SelectionErrorsTotal.Inc()
		return nil, fmt.Errorf("fetch markets: %w", err)
	}

	eligCfg := EligibilityConfig{
		ExcludeRestricted: p.cfg.ExcludeRestricted,
		EndDateBufferDays: p.cfg.EndDateBufferDays,
		MinVolume24h:      p.cfg.MinVolume24h,
	}
	capCfg := CapitalConfig{
		TotalCapital:   p.cfg.TotalCapUSDC,
		UsableFraction: p.cfg.UsableCapFrac,
		NumMarkets:     p.cfg.NumMarkets,
		SizeBuffer:     p.cfg.Quote.SizeBuffer,
	}

	now := time.Now()

	var eligible []types.MarketRecord
	for _, m := range fetched {
		if Eligible(&m, eligCfg, now) {
			eligible = append(eligible, m)
		}
	}

	var feasible []ScoredMarket
	for _, m := range eligible {
		cap := Feasibility(&m, capCfg)
		if !cap.Feasible {
			continue
		}
		tokens, ok := m.OutcomeTokenMap()
		if !ok {
			continue
		}
		feasible = append(feasible, ScoredMarket{Market: m, Tokens: tokens, Cap: cap})
	}

	var passed []ScoredMarket
	for _, sm := range feasible {
		ok, reason := Preflight(ctx, p.books, sm.Tokens, p.cfg.MaxBookSpread)
		if !ok {
			p.logger.Debug("preflight-rejected",
				zap.String("slug", sm.Market.Slug),
				zap.String("reason", reason))
			continue
		}
		sm.Score = Score(&sm.Market, sm.Cap)
		sm.Features = FeaturesOf(&sm.Market)
		passed = append(passed, sm)
	}

	// Stable sort keeps discovery order as the tie-break.
	sort.SliceStable(passed, func(i, j int) bool {
		return passed[i].Score > passed[j].Score
	})

	topN := passed
	if len(topN) > p.cfg.NumMarkets {
		topN = topN[:p.cfg.NumMarkets]
	}

	snapshot := &Snapshot{
		Timestamp:       now.UTC(),
		TotalFetched:    len(fetched),
		TotalEligible:   len(eligible),
		TotalFeasible:   len(feasible),
		TotalPreflight:  len(passed),
		PerMarketBudget: capCfg.PerMarketBudget(),
		TopN:            make([]SnapshotEntry, 0, len(topN)),
	}
	for _, sm := range topN {
		snapshot.TopN = append(snapshot.TopN, SnapshotEntry{
			Slug:             sm.Market.Slug,
			ConditionID:      sm.Market.ConditionID,
			RewardsMinSize:   sm.Market.RewardsMinSize,
			RewardsMaxSpread: sm.Market.RewardsMaxSpread,
			TickSize:         sm.Market.TickSize,
			OutcomeTokenMap:  sm.Tokens,
			Score:            sm.Score,
			Features:         sm.Features,
		})
	}

	if err := WriteSnapshot(p.cfg.SnapshotPath, snapshot); err != nil {
		SelectionErrorsTotal.Inc()
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}

	SelectionCyclesTotal.Inc()
	MarketsEligibleGauge.Set(float64(len(eligible)))
	MarketsSelectedGauge.Set(float64(len(snapshot.TopN)))

	p.logger.Info("selection-complete",
		zap.Int("fetched", snapshot.TotalFetched),
		zap.Int("eligible", snapshot.TotalEligible),
		zap.Int("feasible", snapshot.TotalFeasible),
		zap.Int("preflight_passed", snapshot.TotalPreflight),
		zap.Int("selected", len(snapshot.TopN)),
		zap.Float64("per_market_budget", snapshot.PerMarketBudget))

	slugs := make([]string, 0, len(snapshot.TopN))
	for _, entry := range snapshot.TopN {
		slugs = append(slugs, entry.Slug)
	}
	p.recorder.Record(events.TypeSelection, map[string]any{
		"total_fetched":     snapshot.TotalFetched,
		"total_eligible":    snapshot.TotalEligible,
		"total_feasible":    snapshot.TotalFeasible,
		"preflight_passed":  snapshot.TotalPreflight,
		"per_market_budget": snapshot.PerMarketBudget,
		"selected":          slugs,
	})

	return snapshot, nil
}
