package eval

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultQuerySet(t *testing.T) {
	t.Parallel()

	queries, err := DefaultQuerySet()
	if err != nil {
		t.Fatalf("DefaultQuerySet() error = %v", err)
	}
	if len(queries) != 13 {
		t.Fatalf("len(queries) = %d, want 13", len(queries))
	}
	if queries[0].QueryID != "Q001" {
		t.Errorf("queries[0].QueryID = %q, want Q001", queries[0].QueryID)
	}
	if queries[len(queries)-1].QueryID != "Q013" {
		t.Errorf("last query id = %q, want Q013", queries[len(queries)-1].QueryID)
	}
}

func TestParseQuerySetRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{name: "malformed json", raw: `{"query_id"`},
		{name: "empty set", raw: `[]`},
		{name: "missing id", raw: `[{"query_id": "", "text": "hi", "ground_truth_intent": "information_request"}]`},
		{name: "missing text", raw: `[{"query_id": "Q1", "text": " ", "ground_truth_intent": "information_request"}]`},
		{name: "unknown intent", raw: `[{"query_id": "Q1", "text": "hi", "ground_truth_intent": "smalltalk"}]`},
		{
			name: "duplicate id",
			raw: `[{"query_id": "Q1", "text": "hi", "ground_truth_intent": "information_request"},
			       {"query_id": "Q1", "text": "again", "ground_truth_intent": "information_request"}]`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseQuerySet([]byte(tc.raw)); err == nil {
				t.Fatal("ParseQuerySet() error = nil, want non-nil")
			}
		})
	}
}

func TestLoadQuerySet(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "queries.json")
	raw := `[{"query_id": "X1", "text": "where is order #12345?", "ground_truth_intent": "action_request"}]`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	queries, err := LoadQuerySet(path)
	if err != nil {
		t.Fatalf("LoadQuerySet() error = %v", err)
	}
	if len(queries) != 1 || queries[0].QueryID != "X1" {
		t.Errorf("LoadQuerySet() = %+v, want one query X1", queries)
	}

	if _, err := LoadQuerySet(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("LoadQuerySet() error = nil for a missing file, want non-nil")
	}
}
