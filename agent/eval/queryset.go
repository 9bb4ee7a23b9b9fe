package eval

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

//go:embed data/queryset.json
var querySetRaw []byte

// Query is one evaluation input: the customer text plus the intent a correct
// triage should assign to it.
type Query struct {
	QueryID     string        `json:"query_id"`
	Text        string        `json:"text"`
	GroundTruth statex.Intent `json:"ground_truth_intent"`
}

// DefaultQuerySet returns the embedded query set. Its order is fixed;
// samples and aggregates are comparable across runs and configurations
// because every run sees the same queries in the same order.
func DefaultQuerySet() ([]Query, error) {
	return ParseQuerySet(querySetRaw)
}

// LoadQuerySet reads a query set from a JSON file.
func LoadQuerySet(path string) ([]Query, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query set: %w", err)
	}
	return ParseQuerySet(raw)
}

// ParseQuerySet decodes and validates raw query-set JSON.
func ParseQuerySet(raw []byte) ([]Query, error) {
	var queries []Query
	if err := json.Unmarshal(raw, &queries); err != nil {
		return nil, fmt.Errorf("decode query set: %w", err)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("query set has no queries")
	}

	seen := make(map[string]struct{}, len(queries))
	for i, q := range queries {
		if strings.TrimSpace(q.QueryID) == "" {
			return nil, fmt.Errorf("query %d has no id", i)
		}
		if strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("query %s has no text", q.QueryID)
		}
		if !validIntent(q.GroundTruth) {
			return nil, fmt.Errorf("query %s has unknown ground-truth intent %q", q.QueryID, q.GroundTruth)
		}
		if _, dup := seen[q.QueryID]; dup {
			return nil, fmt.Errorf("duplicate query id %s", q.QueryID)
		}
		seen[q.QueryID] = struct{}{}
	}
	return queries, nil
}

func validIntent(intent statex.Intent) bool {
	switch intent {
	case statex.IntentInformationRequest, statex.IntentActionRequest, statex.IntentUnresolved:
		return true
	}
	return false
}
