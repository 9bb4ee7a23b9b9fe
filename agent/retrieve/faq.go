package retrieve

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
)

//go:embed data/faq.json
var faqRaw []byte

// Entry is a single knowledge-base document: a canonical customer question
// with its approved answer, tagged by intent and category.
type Entry struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Intent   string `json:"intent"`
	Category string `json:"category"`
}

// FAQIndex is an in-memory keyword index over knowledge-base entries.
// Scoring weighs question hits double answer hits; query words of three
// characters or fewer are ignored.
type FAQIndex struct {
	entries []Entry
}

// NewFAQIndex builds an index over the embedded knowledge base.
func NewFAQIndex() (*FAQIndex, error) {
	return NewFAQIndexFromJSON(faqRaw)
}

// NewFAQIndexFromJSON builds an index from raw JSON. Exposed so callers can
// load an alternate knowledge base.
func NewFAQIndexFromJSON(raw []byte) (*FAQIndex, error) {
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode knowledge base: %v", contractx.ErrRetrieval, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: knowledge base has no entries", contractx.ErrRetrieval)
	}
	return &FAQIndex{entries: entries}, nil
}

// Len reports the number of indexed entries.
func (ix *FAQIndex) Len() int { return len(ix.entries) }

// Retrieve scores every entry against the query and returns up to topK
// snippets in descending score order. A query that matches nothing yields an
// empty result, not an error; only index corruption or a cancelled context
// count as retrieval failure.
func (ix *FAQIndex) Retrieve(ctx context.Context, query string, topK int) ([]contractx.Snippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrRetrieval, err)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", contractx.ErrRetrieval, topK)
	}

	words := keywords(query)
	if len(words) == 0 {
		return nil, nil
	}

	type match struct {
		entry Entry
		score float64
	}
	var matches []match
	for _, e := range ix.entries {
		question := strings.ToLower(e.Question)
		answer := strings.ToLower(e.Answer)
		var score float64
		for _, w := range words {
			if strings.Contains(question, w) {
				score += 2
			}
			if strings.Contains(answer, w) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, match{entry: e, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > topK {
		matches = matches[:topK]
	}

	snippets := make([]contractx.Snippet, 0, len(matches))
	for _, m := range matches {
		snippets = append(snippets, contractx.Snippet{
			Text:  fmt.Sprintf("Q: %s\nA: %s", m.entry.Question, m.entry.Answer),
			Score: m.score,
		})
	}
	return snippets, nil
}

// ByLabel returns up to topK entries whose intent or category equals label,
// case-insensitively. Used for intent-directed lookup when a classification
// is already in hand.
func (ix *FAQIndex) ByLabel(label string, topK int) []Entry {
	if topK <= 0 {
		return nil
	}
	want := strings.ToLower(label)
	var out []Entry
	for _, e := range ix.entries {
		if strings.ToLower(e.Intent) == want || strings.ToLower(e.Category) == want {
			out = append(out, e)
			if len(out) == topK {
				break
			}
		}
	}
	return out
}

// keywords lowercases, strips punctuation, and drops words too short to
// discriminate.
func keywords(query string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

var _ contractx.Retriever = (*FAQIndex)(nil)
