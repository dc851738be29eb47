// Package worker runs one quoting loop per active market: it derives a
// size-cutoff midpoint from the order book, computes reward-eligible
// two-sided quotes, and applies churn control so resting orders are only
// replaced when it matters.
package worker

import (
	"math"

	"github.com/mselser95/polymarket-lp/pkg/types"
)

// roundEps absorbs float error so prices already on a tick boundary do not
// round across it.
const roundEps = 1e-9

// SizeCutoffMidpoint walks each side of the book accumulating level size
// until it reaches minSize, and averages the two cutoff prices. This tracks
// where real depth sits instead of a thin best bid/ask. ok is false when
// either side never accumulates enough size.
func SizeCutoffMidpoint(book *types.ParsedBook, minSize float64) (mid float64, ok bool) {
	bidCutoff, ok := sizeCutoff(book.Bids, minSize)
	if !ok {
		return 0, false
	}
	askCutoff, ok := sizeCutoff(book.Asks, minSize)
	if !ok {
		return 0, false
	}
	return (bidCutoff + askCutoff) / 2, true
}

func sizeCutoff(levels []types.Level, minSize float64) (float64, bool) {
	var cumulative float64
	for _, level := range levels {
		cumulative += level.Size
		if cumulative >= minSize {
			return level.Price, true
		}
	}
	return 0, false
}

// TickFor returns the price increment: the market's explicit hint when
// present, else 0.001 for longshot prices below 0.1, else 0.01.
func TickFor(hint, mid float64) float64 {
	if hint > 0 {
		return hint
	}
	if mid < 0.1 {
		return 0.001
	}
	return 0.01
}

// RoundDownToTick rounds a price down to the nearest tick.
func RoundDownToTick(price, tick float64) float64 {
	return math.Floor(price/tick+roundEps) * tick
}

// RoundUpToTick rounds a price up to the nearest tick.
func RoundUpToTick(price, tick float64) float64 {
	return math.Ceil(price/tick-roundEps) * tick
}

// Quote is the target two-sided quote for one outcome.
type Quote struct {
	Mid  float64
	Bid  float64
	Ask  float64
	Size float64
	Tick float64
}

// ComputeQuote derives the target quote from a midpoint. The half spread
// sits inside the rewarded band (maxSpread scaled by halfSpreadFrac); bids
// round down and asks round up so the quoted spread never narrows past the
// target.
func ComputeQuote(mid, maxSpread, halfSpreadFrac, minSize, sizeBuffer, tickHint float64) Quote {
	tick := TickFor(tickHint, mid)
	halfSpread := maxSpread * halfSpreadFrac

	return Quote{
		Mid:  mid,
		Bid:  RoundDownToTick(mid-halfSpread, tick),
		Ask:  RoundUpToTick(mid+halfSpread, tick),
		Size: minSize * sizeBuffer,
		Tick: tick,
	}
}

// ShouldReplace decides whether an existing resting quote must be replaced
// by the target price. A prior quote survives while it stays inside the
// rewarded band around the midpoint and the target has not drifted by at
// least updateMinTicks ticks.
func ShouldReplace(prior, target, mid, maxSpread, tick float64, updateMinTicks int) bool {
	if math.Abs(prior-mid) > maxSpread {
		return true // out of the rewarded band
	}
	tickDistance := math.Abs(target-prior) / tick
	return tickDistance+roundEps >= float64(updateMinTicks)
}
