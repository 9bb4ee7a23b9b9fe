package contract

import (
	"context"

	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

// Classifier turns a raw query plus history into a structured classification.
// Consumed by the triage step only.
type Classifier interface {
	Classify(ctx context.Context, query string, history []statex.Turn) (statex.Classification, error)
}

// Retriever returns the top-K grounding snippets for a query, best first. An
// empty slice means no match; an error means the backend is unavailable.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error)
}

// ToolExecutor runs one tool invocation. The returned record is always
// populated for the audit trail, including on failure.
type ToolExecutor interface {
	Execute(ctx context.Context, req ToolRequest) (statex.ToolRecord, error)
}

// Step is one processing unit in a turn. Run must be pure given the state and
// the collaborators injected at construction; it must not touch Visited.
type Step interface {
	Name() statex.StepName
	Run(ctx context.Context, conv *statex.Conversation) (*statex.Conversation, error)
}

// TurnRunner processes one complete turn. Implemented by the orchestrator
// service and the single-agent baseline; consumed by the ablation harness.
type TurnRunner interface {
	ProcessTurn(ctx context.Context, query string, history []statex.Turn) (*statex.Conversation, error)
}

// HandoffNotifier publishes escalation tickets for human pickup.
type HandoffNotifier interface {
	Publish(ctx context.Context, h Handoff) error
}
