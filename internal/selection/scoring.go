package selection

import (
	"math"

	"github.com/mselser95/polymarket-lp/pkg/types"
)

// Score weights. The score rewards wide permitted spread and market depth,
// and penalizes recent volatility, competitive pressure, and capital
// intensity relative to the slot budget.
const (
	spreadWeight      = 2.0
	liquidityWeight   = 0.5
	volatilityPenalty = 4.0
	competePenalty    = 1.5
	capitalPenalty    = 0.8
)

// Features is the per-market input snapshot the score was computed from,
// carried into the selection snapshot for observability.
type Features struct {
	MaxSpread          float64 `json:"max_spread"`
	Volume24h          float64 `json:"volume_24h"`
	Liquidity          float64 `json:"liquidity"`
	OneHourPriceChange float64 `json:"one_hour_price_change"`
	Competitive        float64 `json:"competitive"`
}

// Score computes the stability-weighted profitability score for a market.
// Higher is better. A zero per-market budget zeroes the capital term
// instead of dividing by zero.
func Score(m *types.MarketRecord, cap CapFeasibility) float64 {
	score := spreadWeight * math.Log(1+100*m.RewardsMaxSpread)
	score += math.Log(1 + m.Volume24h)
	score += liquidityWeight * math.Log(1+m.Liquidity)
	score -= volatilityPenalty * math.Abs(m.OneHourPriceChange)
	score -= competePenalty * m.Competitive

	if cap.PerMarketBudget > 0 {
		score -= capitalPenalty * (cap.RequiredCapital / cap.PerMarketBudget)
	}

	return score
}

// FeaturesOf extracts the score inputs from a market record.
func FeaturesOf(m *types.MarketRecord) Features {
	return Features{
		MaxSpread:          m.RewardsMaxSpread,
		Volume24h:          m.Volume24h,
		Liquidity:          m.Liquidity,
		OneHourPriceChange: m.OneHourPriceChange,
		Competitive:        m.Competitive,
	}
}
