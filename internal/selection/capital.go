package selection

import "github.com/mselser95/polymarket-lp/pkg/types"

// capitalFactor covers simultaneously resting bid and ask on two outcome
// tokens plus a buffer against partial fills.
const capitalFactor = 3.0

// CapFeasibility is the per-market capital check, recomputed every cycle.
type CapFeasibility struct {
	RequiredCapital float64
	PerMarketBudget float64
	Feasible        bool
}

// CapitalConfig holds the capital allocation parameters.
type CapitalConfig struct {
	TotalCapital   float64
	UsableFraction float64
	NumMarkets     int
	SizeBuffer     float64
}

// PerMarketBudget returns the capital budget allocated to each slot.
func (c CapitalConfig) PerMarketBudget() float64 {
	if c.NumMarkets <= 0 {
		return 0
	}
	return c.TotalCapital * c.UsableFraction / float64(c.NumMarkets)
}

// Feasibility computes the capital requirement for quoting one market and
// checks it against the per-market budget.
func Feasibility(m *types.MarketRecord, cfg CapitalConfig) CapFeasibility {
	requiredSize := cfg.SizeBuffer * m.RewardsMinSize
	required := capitalFactor * requiredSize
	budget := cfg.PerMarketBudget()

	return CapFeasibility{
		RequiredCapital: required,
		PerMarketBudget: budget,
		Feasible:        required <= budget,
	}
}
