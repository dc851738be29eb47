package selection

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

// SnapshotEntry is one ranked market in the selection snapshot, carrying
// everything a quote worker needs to trade it.
type SnapshotEntry struct {
	Slug             string            `json:"slug"`
	ConditionID      string            `json:"conditionId"`
	RewardsMinSize   float64           `json:"rewardsMinSize"`
	RewardsMaxSpread float64           `json:"rewardsMaxSpread"`
	TickSize         float64           `json:"tickSize,omitempty"`
	OutcomeTokenMap  map[string]string `json:"outcome_token_map"`
	Score            float64           `json:"score"`
	Features         Features          `json:"features"`
}

// Snapshot is the output of one selection cycle: funnel counts plus the
// ranked top-N. It fully replaces the previous snapshot on write.
type Snapshot struct {
	Timestamp       time.Time       `json:"timestamp"`
	TotalFetched    int             `json:"total_fetched"`
	TotalEligible   int             `json:"total_eligible"`
	TotalFeasible   int             `json:"total_feasible"`
	TotalPreflight  int             `json:"total_preflight_passed"`
	PerMarketBudget float64         `json:"per_market_budget"`
	TopN            []SnapshotEntry `json:"topN"`
}

// Entry returns the ranked entry for a slug.
func (s *Snapshot) Entry(slug string) (SnapshotEntry, bool) {
	for _, entry := range s.TopN {
		if entry.Slug == slug {
			return entry, true
		}
	}
	return SnapshotEntry{}, false
}

// WriteSnapshot persists a snapshot to path atomically (temp file plus
// rename), so readers never observe a partial document.
func WriteSnapshot(path string, snapshot *Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot reads the current snapshot from path.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
