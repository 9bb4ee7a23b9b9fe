package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
	toolx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/tool"
)

func infoClassification() statex.Classification {
	return statex.Classification{
		Intent:     statex.IntentInformationRequest,
		Sentiment:  statex.SentimentNeutral,
		Urgency:    statex.UrgencyLow,
		Confidence: 0.8,
	}
}

func TestNewKnowledgeRequiresRetriever(t *testing.T) {
	t.Parallel()

	if _, err := NewKnowledge(nil, &fakeTools{}, 5, time.Second); err == nil {
		t.Fatal("NewKnowledge(nil) error = nil, want non-nil")
	}
}

func TestKnowledgeRunWithSnippets(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{snippets: []contractx.Snippet{
		{Text: "Standard shipping takes 5-7 business days.", Score: 0.92},
		{Text: "Express shipping takes 1-2 business days.", Score: 0.81},
	}}
	step, err := NewKnowledge(retriever, &fakeTools{}, 3, time.Second)
	if err != nil {
		t.Fatalf("NewKnowledge() error = %v", err)
	}

	conv := classifiedConversation(t, "how long does shipping take", infoClassification())
	conv, err = step.Run(context.Background(), conv)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if retriever.gotTopK != 3 {
		t.Errorf("Retrieve() topK = %d, want 3", retriever.gotTopK)
	}
	for _, want := range []string{
		"Here's what I found:",
		"1. Standard shipping takes 5-7 business days.",
		"2. Express shipping takes 1-2 business days.",
		knowledgeContactLine,
	} {
		if !strings.Contains(conv.TerminalResponse, want) {
			t.Errorf("response missing %q:\n%s", want, conv.TerminalResponse)
		}
	}
	if conv.Resolution != statex.ResolutionResolved {
		t.Errorf("Resolution = %q, want %q", conv.Resolution, statex.ResolutionResolved)
	}
	if conv.NeedsEscalation {
		t.Error("knowledge flagged escalation on success")
	}
}

func TestKnowledgeRunNoSnippets(t *testing.T) {
	t.Parallel()

	tools := &fakeTools{results: map[string]any{
		toolx.ToolGetCompanyInfo: toolx.CompanyInfo{
			Name:         "TechGear",
			Contact:      "help@techgear.example",
			SupportHours: "9am-6pm EST",
		},
	}}
	step, err := NewKnowledge(&fakeRetriever{}, tools, 5, time.Second)
	if err != nil {
		t.Fatalf("NewKnowledge() error = %v", err)
	}

	conv := classifiedConversation(t, "do you ship to mars", infoClassification())
	conv, err = step.Run(context.Background(), conv)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(conv.TerminalResponse, "help@techgear.example") {
		t.Errorf("no-context answer missing company contact:\n%s", conv.TerminalResponse)
	}
	if conv.Resolution != statex.ResolutionPartial {
		t.Errorf("Resolution = %q, want %q", conv.Resolution, statex.ResolutionPartial)
	}
	if len(conv.ToolRecords) != 1 || conv.ToolRecords[0].Tool != toolx.ToolGetCompanyInfo {
		t.Errorf("ToolRecords = %+v, want one %s record", conv.ToolRecords, toolx.ToolGetCompanyInfo)
	}
}

func TestKnowledgeRunRetrieverDown(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{err: fmt.Errorf("%w: connection refused", contractx.ErrRetrieval)}
	step, err := NewKnowledge(retriever, nil, 5, time.Second)
	if err != nil {
		t.Fatalf("NewKnowledge() error = %v", err)
	}

	conv := classifiedConversation(t, "what is the return policy", infoClassification())
	conv, err = step.Run(context.Background(), conv)
	if err != nil {
		t.Fatalf("Run() error = %v, want degraded answer instead", err)
	}
	if conv.TerminalResponse != knowledgeNoContextResponse {
		t.Errorf("response = %q, want the no-context fallback", conv.TerminalResponse)
	}
	if conv.Resolution != statex.ResolutionPartial {
		t.Errorf("Resolution = %q, want %q", conv.Resolution, statex.ResolutionPartial)
	}
	if conv.NeedsEscalation {
		t.Error("a retrieval outage must not escalate the turn")
	}
}

func TestKnowledgeRunTimeoutFlagsEscalation(t *testing.T) {
	t.Parallel()

	step, err := NewKnowledge(&fakeRetriever{err: context.DeadlineExceeded}, nil, 5, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewKnowledge() error = %v", err)
	}

	conv := classifiedConversation(t, "what is the return policy", infoClassification())
	conv, err = step.Run(context.Background(), conv)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil on step timeout", err)
	}
	if !conv.NeedsEscalation {
		t.Error("step timeout did not flag escalation")
	}
	if conv.TerminalResponse != "" {
		t.Errorf("timed-out knowledge wrote a response: %q", conv.TerminalResponse)
	}
}

func TestKnowledgeRunProductEnrichment(t *testing.T) {
	t.Parallel()

	tools := &fakeTools{results: map[string]any{
		toolx.ToolSearchProducts: []toolx.ProductMatch{
			{Product: toolx.Product{Name: "AcoustiMax Pro", Price: 149.99, InStock: true}, Score: 3},
		},
	}}
	retriever := &fakeRetriever{snippets: []contractx.Snippet{{Text: "Returns accepted within 30 days.", Score: 0.9}}}
	step, err := NewKnowledge(retriever, tools, 5, time.Second)
	if err != nil {
		t.Fatalf("NewKnowledge() error = %v", err)
	}

	cl := infoClassification()
	cl.Entities = []statex.Entity{{Name: statex.EntityProduct, Value: "headphones", Confidence: 0.8}}
	conv := classifiedConversation(t, "can I return headphones", cl)
	conv, err = step.Run(context.Background(), conv)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(conv.TerminalResponse, "AcoustiMax Pro ($149.99, in stock)") {
		t.Errorf("response missing product line:\n%s", conv.TerminalResponse)
	}
	if len(tools.reqs) != 1 || tools.reqs[0].Tool != toolx.ToolSearchProducts {
		t.Fatalf("tool requests = %+v, want one %s call", tools.reqs, toolx.ToolSearchProducts)
	}
	if got := tools.reqs[0].Args["query"]; got != "headphones" {
		t.Errorf("search query = %v, want %q", got, "headphones")
	}
}

func TestKnowledgeRunProductLookupFailureIsRecorded(t *testing.T) {
	t.Parallel()

	tools := &fakeTools{errs: map[string]error{
		toolx.ToolSearchProducts: fmt.Errorf("%w: catalog offline", contractx.ErrValidationFailed),
	}}
	retriever := &fakeRetriever{snippets: []contractx.Snippet{{Text: "Returns accepted within 30 days.", Score: 0.9}}}
	step, err := NewKnowledge(retriever, tools, 5, time.Second)
	if err != nil {
		t.Fatalf("NewKnowledge() error = %v", err)
	}

	cl := infoClassification()
	cl.Entities = []statex.Entity{{Name: statex.EntityProduct, Value: "headphones", Confidence: 0.8}}
	conv := classifiedConversation(t, "can I return headphones", cl)
	conv, err = step.Run(context.Background(), conv)
	if err != nil {
		t.Fatalf("Run() error = %v, want lookup failure to be non-fatal", err)
	}

	if !strings.Contains(conv.TerminalResponse, "Returns accepted within 30 days.") {
		t.Errorf("lookup failure dropped the retrieved answer:\n%s", conv.TerminalResponse)
	}
	if len(conv.ToolRecords) != 1 || !conv.ToolRecords[0].Failed() {
		t.Errorf("ToolRecords = %+v, want one failed record", conv.ToolRecords)
	}
	if conv.Resolution != statex.ResolutionResolved {
		t.Errorf("Resolution = %q, want %q", conv.Resolution, statex.ResolutionResolved)
	}
}

func TestKnowledgeRunMissingClassification(t *testing.T) {
	t.Parallel()

	step, err := NewKnowledge(&fakeRetriever{}, nil, 5, time.Second)
	if err != nil {
		t.Fatalf("NewKnowledge() error = %v", err)
	}

	_, err = step.Run(context.Background(), statex.NewConversation("anything", nil))
	if !errors.Is(err, statex.ErrClassificationMissing) {
		t.Fatalf("Run() error = %v, want %v", err, statex.ErrClassificationMissing)
	}
	var stepErr *contractx.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != statex.StepKnowledge {
		t.Fatalf("Run() error = %v, want StepError from %q", err, statex.StepKnowledge)
	}
}

func TestKnowledgeRunNilToolsFallback(t *testing.T) {
	t.Parallel()

	step, err := NewKnowledge(&fakeRetriever{}, nil, 5, time.Second)
	if err != nil {
		t.Fatalf("NewKnowledge() error = %v", err)
	}

	conv := classifiedConversation(t, "do you price match", infoClassification())
	conv, err = step.Run(context.Background(), conv)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if conv.TerminalResponse != knowledgeNoContextResponse {
		t.Errorf("response = %q, want the static no-context fallback", conv.TerminalResponse)
	}
	if len(conv.ToolRecords) != 0 {
		t.Errorf("ToolRecords = %+v, want none without a tool executor", conv.ToolRecords)
	}
}
