package retrieve

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
)

func TestNewFAQIndexLoadsEmbeddedKnowledgeBase(t *testing.T) {
	t.Parallel()

	ix, err := NewFAQIndex()
	if err != nil {
		t.Fatalf("NewFAQIndex() error = %v", err)
	}
	if ix.Len() == 0 {
		t.Fatal("NewFAQIndex() indexed zero entries")
	}
}

func TestNewFAQIndexFromJSONRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := NewFAQIndexFromJSON([]byte("{broken")); !errors.Is(err, contractx.ErrRetrieval) {
		t.Fatalf("NewFAQIndexFromJSON(garbage) error = %v, want ErrRetrieval", err)
	}
	if _, err := NewFAQIndexFromJSON([]byte("[]")); !errors.Is(err, contractx.ErrRetrieval) {
		t.Fatalf("NewFAQIndexFromJSON(empty) error = %v, want ErrRetrieval", err)
	}
}

func TestRetrieveRanksQuestionHitsAboveAnswerHits(t *testing.T) {
	t.Parallel()

	raw := []byte(`[
		{"id":0,"question":"What is your return policy?","answer":"Returns are accepted within 30 days.","intent":"check_return_policy","category":"returns"},
		{"id":1,"question":"How long does shipping take?","answer":"Standard delivery takes 3-5 days. A return label ships with every order.","intent":"delivery_options","category":"shipping"}
	]`)
	ix, err := NewFAQIndexFromJSON(raw)
	if err != nil {
		t.Fatalf("NewFAQIndexFromJSON() error = %v", err)
	}

	snippets, err := ix.Retrieve(context.Background(), "what is your return policy", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(snippets) != 2 {
		t.Fatalf("Retrieve() returned %d snippets, want 2", len(snippets))
	}
	if !strings.Contains(snippets[0].Text, "return policy") {
		t.Fatalf("top snippet = %q, want the return policy entry", snippets[0].Text)
	}
	if snippets[0].Score <= snippets[1].Score {
		t.Fatalf("scores not descending: %v then %v", snippets[0].Score, snippets[1].Score)
	}
}

func TestRetrieveNoMatchIsEmptyNotError(t *testing.T) {
	t.Parallel()

	ix, err := NewFAQIndex()
	if err != nil {
		t.Fatalf("NewFAQIndex() error = %v", err)
	}

	snippets, err := ix.Retrieve(context.Background(), "zebra xylophone quantum", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v, want nil for no match", err)
	}
	if len(snippets) != 0 {
		t.Fatalf("Retrieve() returned %d snippets, want 0", len(snippets))
	}
}

func TestRetrieveIgnoresShortWords(t *testing.T) {
	t.Parallel()

	ix, err := NewFAQIndex()
	if err != nil {
		t.Fatalf("NewFAQIndex() error = %v", err)
	}

	// Every word is three characters or fewer, so nothing scores.
	snippets, err := ix.Retrieve(context.Background(), "how do I get it", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(snippets) != 0 {
		t.Fatalf("Retrieve() returned %d snippets for short-word query, want 0", len(snippets))
	}
}

func TestRetrieveCapsAtTopK(t *testing.T) {
	t.Parallel()

	ix, err := NewFAQIndex()
	if err != nil {
		t.Fatalf("NewFAQIndex() error = %v", err)
	}

	snippets, err := ix.Retrieve(context.Background(), "order shipping refund return policy", 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(snippets) > 2 {
		t.Fatalf("Retrieve() returned %d snippets, want at most 2", len(snippets))
	}
}

func TestRetrieveRejectsNonPositiveTopK(t *testing.T) {
	t.Parallel()

	ix, err := NewFAQIndex()
	if err != nil {
		t.Fatalf("NewFAQIndex() error = %v", err)
	}

	if _, err := ix.Retrieve(context.Background(), "returns", 0); !errors.Is(err, contractx.ErrRetrieval) {
		t.Fatalf("Retrieve(topK=0) error = %v, want ErrRetrieval", err)
	}
}

func TestRetrieveHonorsCancelledContext(t *testing.T) {
	t.Parallel()

	ix, err := NewFAQIndex()
	if err != nil {
		t.Fatalf("NewFAQIndex() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ix.Retrieve(ctx, "returns", 5); !errors.Is(err, contractx.ErrRetrieval) {
		t.Fatalf("Retrieve(cancelled) error = %v, want ErrRetrieval", err)
	}
}

func TestByLabelMatchesIntentAndCategory(t *testing.T) {
	t.Parallel()

	ix, err := NewFAQIndex()
	if err != nil {
		t.Fatalf("NewFAQIndex() error = %v", err)
	}

	byIntent := ix.ByLabel("cancel_order", 5)
	if len(byIntent) == 0 {
		t.Fatal("ByLabel(cancel_order) returned nothing")
	}
	byCategory := ix.ByLabel("shipping", 1)
	if len(byCategory) != 1 {
		t.Fatalf("ByLabel(shipping, 1) length = %d, want 1", len(byCategory))
	}
}
