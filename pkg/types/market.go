package types

import (
	"time"

	json "github.com/goccy/go-json"
)

// MarketRecord is an immutable snapshot of one market from the Gamma catalog.
// It is built once at ingestion by UnmarshalJSON and never mutated downstream.
type MarketRecord struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	ConditionID string `json:"conditionId"`

	Active           bool `json:"active"`
	Closed           bool `json:"closed"`
	AcceptingOrders  bool `json:"acceptingOrders"`
	OrderBookEnabled bool `json:"enableOrderBook"`
	Restricted       bool `json:"restricted"`

	// RewardsMaxSpread is always stored in price units: catalog values above 1
	// are cents and get divided by 100 during unmarshal.
	RewardsMinSize   float64 `json:"rewardsMinSize"`
	RewardsMaxSpread float64 `json:"rewardsMaxSpread"`

	Competitive        float64 `json:"competitive"`
	OneHourPriceChange float64 `json:"oneHourPriceChange"`
	Volume24h          float64 `json:"volume24hrClob"`
	Liquidity          float64 `json:"liquidityClob"`

	// EndDate is kept as the raw catalog string; consumers parse it and treat
	// unparsable values conservatively.
	EndDate  string  `json:"endDate"`
	TickSize float64 `json:"orderPriceMinTickSize"`

	Outcomes []string `json:"-"` // parsed from outcomes
	TokenIDs []string `json:"-"` // parsed from clobTokenIds
}

// UnmarshalJSON decodes a raw Gamma market object. The catalog encodes the
// outcomes and clobTokenIds arrays as JSON strings, so they are decoded in a
// second pass, and rewardsMaxSpread is normalized to price units.
func (m *MarketRecord) UnmarshalJSON(data []byte) error {
	type Alias MarketRecord
	aux := &struct {
		OutcomesRaw   string `json:"outcomes"`
		ClobTokensRaw string `json:"clobTokenIds"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.RewardsMaxSpread = NormalizeMaxSpread(m.RewardsMaxSpread)

	if aux.OutcomesRaw != "" {
		var outcomes []string
		if err := json.Unmarshal([]byte(aux.OutcomesRaw), &outcomes); err == nil {
			m.Outcomes = outcomes
		}
	}
	if aux.ClobTokensRaw != "" {
		var tokenIDs []string
		if err := json.Unmarshal([]byte(aux.ClobTokensRaw), &tokenIDs); err == nil {
			m.TokenIDs = tokenIDs
		}
	}

	return nil
}

// NormalizeMaxSpread converts a rewardsMaxSpread value to price units.
// The catalog reports it in cents for some markets (e.g. 3.5 means $0.035);
// values at or below 1 are already in price units. Idempotent.
func NormalizeMaxSpread(v float64) float64 {
	if v > 1 {
		return v / 100
	}
	return v
}

// OutcomeTokenMap pairs each outcome label with its CLOB token id.
// Returns false when the catalog arrays are missing or of unequal length.
func (m *MarketRecord) OutcomeTokenMap() (map[string]string, bool) {
	if len(m.Outcomes) == 0 || len(m.Outcomes) != len(m.TokenIDs) {
		return nil, false
	}

	tokens := make(map[string]string, len(m.Outcomes))
	for i, outcome := range m.Outcomes {
		tokens[outcome] = m.TokenIDs[i]
	}

	return tokens, true
}

// ParseEndDate parses the catalog end date. ok is false for empty or
// unparsable values; callers decide how conservative to be.
func (m *MarketRecord) ParseEndDate() (t time.Time, ok bool) {
	if m.EndDate == "" {
		return time.Time{}, false
	}

	t, err := time.Parse(time.RFC3339, m.EndDate)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}
