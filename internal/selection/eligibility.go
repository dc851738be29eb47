// Package selection implements market discovery scoring: eligibility
// filtering, capital feasibility, order-book preflight, and the ranked
// top-N snapshot consumed by the rotation engine and quote workers.
package selection

import (
	"time"

	"github.com/mselser95/polymarket-lp/pkg/types"
)

// EligibilityConfig holds the policy thresholds for reward eligibility.
type EligibilityConfig struct {
	ExcludeRestricted bool
	EndDateBufferDays int
	MinVolume24h      float64
}

// Eligible reports whether a market qualifies for the liquidity rewards
// program under the configured policy. Pure and deterministic.
func Eligible(m *types.MarketRecord, cfg EligibilityConfig, now time.Time) bool {
	if !m.Active || m.Closed {
		return false
	}
	if !m.AcceptingOrders || !m.OrderBookEnabled {
		return false
	}
	if m.RewardsMinSize <= 0 || m.RewardsMaxSpread <= 0 {
		return false
	}
	if cfg.ExcludeRestricted && m.Restricted {
		return false
	}
	if m.EndDate != "" {
		end, ok := m.ParseEndDate()
		if !ok {
			// Cannot tell how close resolution is; keep it out.
			return false
		}
		buffer := time.Duration(cfg.EndDateBufferDays) * 24 * time.Hour
		if end.Before(now.Add(buffer)) {
			return false
		}
	}
	if m.Volume24h < cfg.MinVolume24h {
		return false
	}
	return true
}
