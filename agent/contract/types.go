package contract

import (
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

// ToolRequest is a step's ask: invoke the named tool with these arguments.
// Arguments are validated against the tool's schema before the backend runs.
type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// Snippet is one retrieved grounding passage, ranked by score descending.
type Snippet struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Handoff is the ticket published to the human-agent queue when a turn
// escalates.
type Handoff struct {
	ConversationID string                 `json:"conversation_id"`
	Query          string                 `json:"query"`
	Reason         string                 `json:"reason"`
	Summary        string                 `json:"summary"`
	Classification *statex.Classification `json:"classification,omitempty"`
}
