package types

import (
	"sort"
	"strconv"
)

// BookLevel is a single price level as returned by the CLOB REST API.
// Prices and sizes arrive as decimal strings.
type BookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// Book is the order book for one outcome token.
type Book struct {
	Market  string      `json:"market"`
	AssetID string      `json:"asset_id"`
	Bids    []BookLevel `json:"bids"`
	Asks    []BookLevel `json:"asks"`
}

// Level is a parsed price level.
type Level struct {
	Price float64
	Size  float64
}

// ParsedBook holds numeric levels sorted best-first: bids descending by
// price, asks ascending. Malformed levels are dropped during parsing.
type ParsedBook struct {
	TokenID string
	Bids    []Level
	Asks    []Level
}

// Parse converts the wire book into numeric levels sorted best-first.
// Levels that fail to parse are skipped rather than failing the book.
func (b *Book) Parse() *ParsedBook {
	parsed := &ParsedBook{TokenID: b.AssetID}

	for _, lvl := range b.Bids {
		price, err1 := strconv.ParseFloat(lvl.Price, 64)
		size, err2 := strconv.ParseFloat(lvl.Size, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		parsed.Bids = append(parsed.Bids, Level{Price: price, Size: size})
	}
	for _, lvl := range b.Asks {
		price, err1 := strconv.ParseFloat(lvl.Price, 64)
		size, err2 := strconv.ParseFloat(lvl.Size, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		parsed.Asks = append(parsed.Asks, Level{Price: price, Size: size})
	}

	sort.Slice(parsed.Bids, func(i, j int) bool { return parsed.Bids[i].Price > parsed.Bids[j].Price })
	sort.Slice(parsed.Asks, func(i, j int) bool { return parsed.Asks[i].Price < parsed.Asks[j].Price })

	return parsed
}

// BestBid returns the highest bid price. ok is false on an empty side.
func (p *ParsedBook) BestBid() (price float64, ok bool) {
	if len(p.Bids) == 0 {
		return 0, false
	}
	return p.Bids[0].Price, true
}

// BestAsk returns the lowest ask price. ok is false on an empty side.
func (p *ParsedBook) BestAsk() (price float64, ok bool) {
	if len(p.Asks) == 0 {
		return 0, false
	}
	return p.Asks[0].Price, true
}

// TwoSided reports whether the book has at least one bid and one ask.
func (p *ParsedBook) TwoSided() bool {
	return len(p.Bids) > 0 && len(p.Asks) > 0
}

// Spread returns best ask minus best bid. ok is false when either side is
// empty.
func (p *ParsedBook) Spread() (spread float64, ok bool) {
	bid, okBid := p.BestBid()
	ask, okAsk := p.BestAsk()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask - bid, true
}
