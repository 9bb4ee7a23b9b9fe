package state

import (
	"errors"
	"fmt"
	"strings"
)

// Conversation is the unit of work threaded through one support turn.
// - Routing: Visited + NeedsEscalation drive the orchestrator's dispatch loop
// - Audit: ToolRecords is the append-only trail of every tool invocation
// - Output: TerminalResponse is what the customer sees; Escalated is permanent
type Conversation struct {
	// Immutable after creation
	Query string `json:"query"`

	// Append-only
	History     []Turn       `json:"history,omitempty"`
	ToolRecords []ToolRecord `json:"tool_records,omitempty"`
	Visited     []StepName   `json:"visited,omitempty"`

	// Set once, by the triage step only
	Classification *Classification `json:"classification,omitempty"`

	// Turn outcome
	TerminalResponse string     `json:"terminal_response,omitempty"`
	Resolution       Resolution `json:"resolution,omitempty"`

	// Escalation: Escalated is permanent once true; NeedsEscalation is a
	// transient per-turn reroute signal raised by steps.
	Escalated        bool   `json:"escalated"`
	NeedsEscalation  bool   `json:"needs_escalation,omitempty"`
	EscalationReason string `json:"escalation_reason,omitempty"`
}

type StepName string

const (
	StepTriage     StepName = "triage"
	StepKnowledge  StepName = "knowledge"
	StepAction     StepName = "action"
	StepFollowUp   StepName = "followup"
	StepEscalation StepName = "escalation"
)

// AllSteps lists every step identifier in dispatch order. Routing tables are
// validated against this closed set at startup.
func AllSteps() []StepName {
	return []StepName{StepTriage, StepKnowledge, StepAction, StepFollowUp, StepEscalation}
}

func (s StepName) Valid() bool {
	switch s {
	case StepTriage, StepKnowledge, StepAction, StepFollowUp, StepEscalation:
		return true
	}
	return false
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

type Intent string

const (
	IntentInformationRequest Intent = "information_request"
	IntentActionRequest      Intent = "action_request"
	IntentUnresolved         Intent = "unresolved"
)

type Sentiment string

const (
	SentimentPositive     Sentiment = "positive"
	SentimentNeutral      Sentiment = "neutral"
	SentimentNegative     Sentiment = "negative"
	SentimentVeryNegative Sentiment = "very_negative"
)

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

type Resolution string

const (
	ResolutionUnknown    Resolution = ""
	ResolutionResolved   Resolution = "resolved"
	ResolutionPartial    Resolution = "partial"
	ResolutionUnresolved Resolution = "unresolved"
	ResolutionEscalated  Resolution = "escalated"
)

// Resolved reports whether the turn counts as handled without a human.
func (r Resolution) Resolved() bool {
	return r == ResolutionResolved || r == ResolutionPartial
}

// Entity is one extracted slot from the triage classification. Downstream
// steps must treat confidence below their configured threshold as absent.
type Entity struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Entity names shared between classification, routing, and the action step.
const (
	EntityOrderID    = "order_id"
	EntityCustomerID = "customer_id"
	EntityOperation  = "operation"
	EntityProduct    = "product"
	EntityAmount     = "amount"
)

type Classification struct {
	Intent    Intent    `json:"intent"`
	Entities  []Entity  `json:"entities,omitempty"`
	Sentiment Sentiment `json:"sentiment"`
	Urgency   Urgency   `json:"urgency"`
	// Confidence is the classifier's own confidence in Intent.
	Confidence float64 `json:"confidence"`
}

/* --------------------------- Classification helpers --------------------------- */

// Entity returns the first entity with the given name whose confidence is at
// least min. Low-confidence entities are invisible to callers.
func (c *Classification) Entity(name string, min float64) (Entity, bool) {
	if c == nil {
		return Entity{}, false
	}
	for _, e := range c.Entities {
		if e.Name == name && e.Confidence >= min {
			return e, true
		}
	}
	return Entity{}, false
}

func (c *Classification) HasEntity(name string, min float64) bool {
	_, ok := c.Entity(name, min)
	return ok
}

// ToolRecord is one immutable entry in the tool audit trail. A record with a
// non-empty Error is a failed invocation; Result is only set on success.
type ToolRecord struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Result any            `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func (r ToolRecord) Failed() bool {
	return r.Error != ""
}

/* --------------------------- Conversation helpers --------------------------- */

var (
	ErrEmptyQuery            = errors.New("query is empty")
	ErrEmptyResponse         = errors.New("terminal response must not be empty")
	ErrClassificationSet     = errors.New("classification already set")
	ErrClassificationMissing = errors.New("classification missing")
	ErrTriageNotFirst        = errors.New("triage must run first")
	ErrStepRevisited         = errors.New("step visited twice")
	ErrUnknownStep           = errors.New("unknown step")
)

func NewConversation(query string, history []Turn) *Conversation {
	c := &Conversation{Query: strings.TrimSpace(query)}
	if len(history) > 0 {
		c.History = append(make([]Turn, 0, len(history)), history...)
	}
	return c
}

// AppendTurn extends the history. Existing entries are never rewritten.
func (c *Conversation) AppendTurn(role Role, text string) {
	c.History = append(c.History, Turn{Role: role, Text: text})
}

// SetClassification installs the triage output. It may succeed at most once
// per turn.
func (c *Conversation) SetClassification(cl Classification) error {
	if c.Classification != nil {
		return ErrClassificationSet
	}
	c.Classification = &cl
	return nil
}

// AppendToolRecord adds one invocation to the audit trail.
func (c *Conversation) AppendToolRecord(rec ToolRecord) {
	c.ToolRecords = append(c.ToolRecords, rec)
}

// FailedTools returns the audit entries whose invocation failed.
func (c *Conversation) FailedTools() []ToolRecord {
	var out []ToolRecord
	for _, rec := range c.ToolRecords {
		if rec.Failed() {
			out = append(out, rec)
		}
	}
	return out
}

// MarkVisited records a completed dispatch. Only the orchestrator calls this;
// steps must never touch Visited.
func (c *Conversation) MarkVisited(step StepName) {
	c.Visited = append(c.Visited, step)
}

func (c *Conversation) HasVisited(step StepName) bool {
	for _, v := range c.Visited {
		if v == step {
			return true
		}
	}
	return false
}

// SetResponse replaces the terminal response. An empty text is rejected so a
// response, once set, can never be erased.
func (c *Conversation) SetResponse(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyResponse
	}
	c.TerminalResponse = text
	return nil
}

// AppendResponse extends the terminal response. Reserved for the follow-up
// step, which must never replace what the handler produced.
func (c *Conversation) AppendResponse(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyResponse
	}
	if c.TerminalResponse == "" {
		c.TerminalResponse = text
		return nil
	}
	c.TerminalResponse = c.TerminalResponse + "\n\n" + text
	return nil
}

// FlagEscalation raises the transient reroute signal. The first reason wins so
// the trail points at the originating failure.
func (c *Conversation) FlagEscalation(reason string) {
	c.NeedsEscalation = true
	if c.EscalationReason == "" {
		c.EscalationReason = reason
	}
}

// MarkEscalated flips the permanent escalation flag. There is no inverse.
func (c *Conversation) MarkEscalated() {
	c.Escalated = true
	c.Resolution = ResolutionEscalated
}

// Clone deep-copies the conversation so a turn owns its state exclusively.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	if len(c.History) > 0 {
		out.History = append(make([]Turn, 0, len(c.History)), c.History...)
	}
	if len(c.Visited) > 0 {
		out.Visited = append(make([]StepName, 0, len(c.Visited)), c.Visited...)
	}
	if len(c.ToolRecords) > 0 {
		out.ToolRecords = make([]ToolRecord, 0, len(c.ToolRecords))
		for _, rec := range c.ToolRecords {
			cp := rec
			if rec.Args != nil {
				cp.Args = make(map[string]any, len(rec.Args))
				for k, v := range rec.Args {
					cp.Args[k] = v
				}
			}
			out.ToolRecords = append(out.ToolRecords, cp)
		}
	}
	if c.Classification != nil {
		cl := *c.Classification
		if len(c.Classification.Entities) > 0 {
			cl.Entities = append(make([]Entity, 0, len(c.Classification.Entities)), c.Classification.Entities...)
		}
		out.Classification = &cl
	}
	return &out
}

func (c *Conversation) Validate() error {
	if strings.TrimSpace(c.Query) == "" {
		return ErrEmptyQuery
	}
	seen := make(map[StepName]struct{}, len(c.Visited))
	for i, step := range c.Visited {
		if !step.Valid() {
			return fmt.Errorf("%w: %s", ErrUnknownStep, step)
		}
		if i == 0 && step != StepTriage {
			return fmt.Errorf("%w: got %s", ErrTriageNotFirst, step)
		}
		if _, dup := seen[step]; dup {
			return fmt.Errorf("%w: %s", ErrStepRevisited, step)
		}
		seen[step] = struct{}{}
		// Escalation is exempt: it handles turns where classification itself
		// failed or timed out.
		if step != StepTriage && step != StepEscalation && c.Classification == nil {
			return fmt.Errorf("%w: %s ran without it", ErrClassificationMissing, step)
		}
	}
	if c.Escalated && c.TerminalResponse == "" {
		return fmt.Errorf("%w: escalated turn", ErrEmptyResponse)
	}
	return nil
}
