package selection

import (
	"context"
	"fmt"

	"github.com/mselser95/polymarket-lp/pkg/types"
)

// BookFetcher reads one outcome token's order book.
type BookFetcher interface {
	FetchBook(ctx context.Context, tokenID string) (*types.ParsedBook, error)
}

// Preflight checks that every outcome book in the token map is two-sided
// and, when maxBookSpread > 0, not wider than the threshold. It returns
// pass/fail plus a rejection reason and never returns an error: a failed
// book fetch rejects the market with a reason.
func Preflight(ctx context.Context, books BookFetcher, tokens map[string]string, maxBookSpread float64) (bool, string) {
	for outcome, tokenID := range tokens {
		book, err := books.FetchBook(ctx, tokenID)
		if err != nil {
			return false, fmt.Sprintf("book fetch failed for %s: %v", outcome, err)
		}

		if !book.TwoSided() {
			return false, fmt.Sprintf("one-sided book for %s", outcome)
		}

		if maxBookSpread > 0 {
			if spread, ok := book.Spread(); ok && spread > maxBookSpread {
				return false, fmt.Sprintf("book spread %.4f for %s exceeds %.4f", spread, outcome, maxBookSpread)
			}
		}
	}

	return true, ""
}
