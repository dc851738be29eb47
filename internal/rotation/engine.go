// Package rotation decides when the active-market set changes. Replacement
// is gated by a global cooldown, a minimum incumbent tenure, and a score
// margin over the incumbent's entry score, so the traded set does not
// oscillate on small score movements.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mselser95/polymarket-lp/internal/events"
	"github.com/mselser95/polymarket-lp/internal/selection"
	"github.com/mselser95/polymarket-lp/internal/storage"
	"go.uber.org/zap"
)

// Decision is one applied replacement.
type Decision struct {
	OutConditionID string
	OutSlug        string
	InConditionID  string
	InSlug         string
	InScore        float64
}

// Result summarizes one rotation evaluation.
type Result struct {
	Seeded    int
	Decisions []Decision
}

// Config holds the rotation policy parameters.
type Config struct {
	Cooldown        time.Duration
	MinTenure       time.Duration
	ScoreMultiplier float64
	NumMarkets      int
}

// Engine owns all writes to the active-market ledger and the rotation
// timestamp.
type Engine struct {
	cfg      Config
	ledger   storage.Ledger
	recorder events.Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates a rotation engine.
func NewEngine(cfg Config, ledger storage.Ledger, recorder events.Recorder, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		ledger:   ledger,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Evaluate compares the fresh selection snapshot against the active-market
// ledger. Empty slots are seeded from the top of the ranking; replacements
// happen only past the cooldown and under the tenure/margin rules. The
// rotation timestamp moves only when at least one replacement was applied.
func (e *Engine) Evaluate(ctx context.Context, snapshot *selection.Snapshot) (*Result, error) {
	active, err := e.ledger.ListActiveMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active markets: %w", err)
	}

	activeSet := make(map[string]bool, len(active))
	for _, m := range active {
		activeSet[m.ConditionID] = true
	}

	result := &Result{}
	now := e.now()

	// Fill empty slots first. Seeding is not a rotation: no incumbent
	// leaves, so the cooldown neither applies nor resets.
	for _, entry := range snapshot.TopN {
		if len(active)+result.Seeded >= e.cfg.NumMarkets {
			break
		}
		if activeSet[entry.ConditionID] {
			continue
		}

		if err := e.ledger.InsertActiveMarket(ctx, storage.ActiveMarket{
			ConditionID:  entry.ConditionID,
			Slug:         entry.Slug,
			EnteredAt:    now,
			ScoreAtEntry: entry.Score,
		}); err != nil {
			return result, fmt.Errorf("seed market %s: %w", entry.Slug, err)
		}

		activeSet[entry.ConditionID] = true
		result.Seeded++
		MarketsSeededTotal.Inc()

		e.logger.Info("market-seeded",
			zap.String("slug", entry.Slug),
			zap.Float64("score", entry.Score))
		e.recorder.Record(events.TypeRotation, map[string]any{
			"action": "seed",
			"slug":   entry.Slug,
			"score":  entry.Score,
		})
	}

	ok, err := e.cooldownElapsed(ctx, now)
	if err != nil {
		return result, err
	}
	if !ok {
		e.logger.Debug("rotation-cooldown-active")
		return result, nil
	}

	replaced := make(map[string]bool)
	for _, candidate := range snapshot.TopN {
		if activeSet[candidate.ConditionID] {
			continue
		}

		for _, incumbent := range active {
			if replaced[incumbent.ConditionID] {
				continue
			}
			if now.Sub(incumbent.EnteredAt) < e.cfg.MinTenure {
				continue
			}
			if candidate.Score < incumbent.ScoreAtEntry*e.cfg.ScoreMultiplier {
				continue
			}

			if err := e.apply(ctx, incumbent, candidate, now); err != nil {
				return result, err
			}

			replaced[incumbent.ConditionID] = true
			activeSet[candidate.ConditionID] = true
			result.Decisions = append(result.Decisions, Decision{
				OutConditionID: incumbent.ConditionID,
				OutSlug:        incumbent.Slug,
				InConditionID:  candidate.ConditionID,
				InSlug:         candidate.Slug,
				InScore:        candidate.Score,
			})
			break
		}
	}

	if len(result.Decisions) > 0 {
		ts := strconv.FormatInt(now.Unix(), 10)
		if err := e.ledger.SetState(ctx, storage.KeyLastRotation, ts); err != nil {
			return result, fmt.Errorf("update rotation timestamp: %w", err)
		}
	}

	return result, nil
}

// cooldownElapsed reports whether enough time has passed since the last
// rotation. A missing timestamp means no rotation has ever happened.
func (e *Engine) cooldownElapsed(ctx context.Context, now time.Time) (bool, error) {
	value, err := e.ledger.GetState(ctx, storage.KeyLastRotation)
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read rotation timestamp: %w", err)
	}

	last, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse rotation timestamp %q: %w", value, err)
	}

	return now.Sub(time.Unix(last, 0)) >= e.cfg.Cooldown, nil
}

func (e *Engine) apply(ctx context.Context, incumbent storage.ActiveMarket, candidate selection.SnapshotEntry, now time.Time) error {
	if err := e.ledger.DeleteActiveMarket(ctx, incumbent.ConditionID); err != nil {
		return fmt.Errorf("rotate out %s: %w", incumbent.Slug, err)
	}
	if err := e.ledger.InsertActiveMarket(ctx, storage.ActiveMarket{
		ConditionID:  candidate.ConditionID,
		Slug:         candidate.Slug,
		EnteredAt:    now,
		ScoreAtEntry: candidate.Score,
	}); err != nil {
		return fmt.Errorf("rotate in %s: %w", candidate.Slug, err)
	}

	RotationsAppliedTotal.Inc()

	e.logger.Info("market-rotated",
		zap.String("out", incumbent.Slug),
		zap.String("in", candidate.Slug),
		zap.Float64("in_score", candidate.Score),
		zap.Float64("out_entry_score", incumbent.ScoreAtEntry))
	e.recorder.Record(events.TypeRotation, map[string]any{
		"action":          "replace",
		"out":             incumbent.Slug,
		"in":              candidate.Slug,
		"in_score":        candidate.Score,
		"out_entry_score": incumbent.ScoreAtEntry,
	})

	return nil
}
