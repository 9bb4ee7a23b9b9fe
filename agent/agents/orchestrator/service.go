// Package orchestrator dispatches the per-turn step state machine:
// Start -> Triage -> {Knowledge | Action | Escalation} -> [FollowUp] -> Done.
// Routing consults the visited set before every dispatch, so no step can run
// twice in one turn.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
	logx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger"
)

const (
	defaultEntityThreshold = 0.7
	defaultHistoryLimit    = 10
	defaultMaxSteps        = 5
)

// Routes declares which steps a deployment enables and where routing lands
// when a target is excluded. Triage and Escalation can never be excluded.
type Routes struct {
	Enabled   []statex.StepName
	Fallbacks map[statex.StepName]statex.StepName
}

func DefaultRoutes() Routes {
	return Routes{Enabled: statex.AllSteps()}
}

type Config struct {
	// EntityThreshold is the minimum entity confidence for the action route.
	EntityThreshold float64
	// HistoryLimit caps the turns seeded from and saved to the store.
	HistoryLimit int
	// MaxSteps bounds dispatches per turn.
	MaxSteps int
}

func (c Config) withDefaults() Config {
	if c.EntityThreshold <= 0 {
		c.EntityThreshold = defaultEntityThreshold
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	if c.MaxSteps <= 0 {
		c.MaxSteps = defaultMaxSteps
	}
	return c
}

// Service is the turn engine. It owns routing only; every behavior lives in
// the injected steps.
type Service struct {
	steps    map[statex.StepName]contractx.Step
	enabled  map[statex.StepName]bool
	fallback map[statex.StepName]statex.StepName
	cfg      Config

	store    statex.Store
	notifier contractx.HandoffNotifier
	now      func() time.Time
}

type Option func(*Service)

// WithStore enables HandleMessage persistence.
func WithStore(store statex.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithNotifier sets the escalation handoff publisher.
func WithNotifier(n contractx.HandoffNotifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New validates the whole routing surface at startup: every enabled step has
// an implementation under its own name, Triage and Escalation are present,
// and every routing target resolves to an enabled step through the fallback
// chain.
func New(steps map[statex.StepName]contractx.Step, routes Routes, cfg Config, opts ...Option) (*Service, error) {
	if len(routes.Enabled) == 0 {
		routes = DefaultRoutes()
	}

	enabled := make(map[statex.StepName]bool, len(routes.Enabled))
	for _, name := range routes.Enabled {
		if !name.Valid() {
			return nil, fmt.Errorf("orchestrator: unknown step %q in routes", name)
		}
		if enabled[name] {
			return nil, fmt.Errorf("orchestrator: step %q enabled twice", name)
		}
		enabled[name] = true
	}
	if !enabled[statex.StepTriage] {
		return nil, errors.New("orchestrator: triage step is required")
	}
	if !enabled[statex.StepEscalation] {
		return nil, errors.New("orchestrator: escalation step is required")
	}

	for name := range enabled {
		step, ok := steps[name]
		if !ok || step == nil {
			return nil, fmt.Errorf("orchestrator: no implementation for enabled step %q", name)
		}
		if step.Name() != name {
			return nil, fmt.Errorf("orchestrator: step registered as %q reports name %q", name, step.Name())
		}
	}

	s := &Service{
		steps:    steps,
		enabled:  enabled,
		fallback: routes.Fallbacks,
		cfg:      cfg.withDefaults(),
		notifier: noopNotifier{},
		now:      time.Now,
	}

	for _, target := range []statex.StepName{statex.StepKnowledge, statex.StepAction, statex.StepEscalation} {
		if _, err := s.resolve(target); err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// ProcessTurn runs one turn from scratch. History is the caller's context
// window; it is copied, never mutated.
func (s *Service) ProcessTurn(ctx context.Context, query string, history []statex.Turn) (*statex.Conversation, error) {
	conv := statex.NewConversation(query, history)
	if conv.Query == "" {
		return nil, statex.ErrEmptyQuery
	}
	return s.run(ctx, conv)
}

// HandleMessage is the persistence-aware entry point: it loads the
// conversation record, seeds history and the permanent escalated flag, runs
// the turn, saves the record, and publishes a handoff ticket when the turn
// escalated. A previously escalated conversation keeps its flag forever.
func (s *Service) HandleMessage(ctx context.Context, conversationID, query string) (*statex.Conversation, error) {
	if s.store == nil {
		return nil, errors.New("orchestrator: HandleMessage requires a conversation store")
	}

	rec, err := s.store.Load(ctx, conversationID)
	switch {
	case errors.Is(err, statex.ErrRecordNotFound):
		rec = statex.NewRecord(conversationID, s.now())
	case err != nil:
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}

	history := rec.History
	if limit := s.cfg.HistoryLimit; len(history) > limit {
		history = history[len(history)-limit:]
	}

	conv := statex.NewConversation(query, history)
	if conv.Query == "" {
		return nil, statex.ErrEmptyQuery
	}
	conv.Escalated = rec.Escalated

	conv, err = s.run(ctx, conv)
	if err != nil {
		return conv, err
	}

	rec.AppendTurns(s.cfg.HistoryLimit,
		statex.Turn{Role: statex.RoleUser, Text: conv.Query},
		statex.Turn{Role: statex.RoleAssistant, Text: conv.TerminalResponse},
	)
	rec.Escalated = conv.Escalated
	rec.UpdatedAt = s.now()
	if err := s.store.Save(ctx, rec); err != nil {
		return conv, fmt.Errorf("save conversation %s: %w", conversationID, err)
	}

	if conv.HasVisited(statex.StepEscalation) {
		h := contractx.Handoff{
			ConversationID: conversationID,
			Query:          conv.Query,
			Reason:         conv.EscalationReason,
			Summary:        conv.TerminalResponse,
			Classification: conv.Classification,
		}
		if err := s.notifier.Publish(ctx, h); err != nil {
			// The customer already has the escalation response; a lost
			// ticket must not fail the turn.
			logx.Error().Err(err).Str("conversation_id", conversationID).Msg("handoff publish failed")
		}
	}

	return conv, nil
}

/* --------------------------- dispatch loop --------------------------- */

func (s *Service) run(ctx context.Context, conv *statex.Conversation) (*statex.Conversation, error) {
	current := statex.StepTriage
	for hop := 0; hop < s.cfg.MaxSteps; hop++ {
		var err error
		conv, err = s.dispatch(ctx, current, conv)
		if err != nil {
			next, recoverable := s.recover(ctx, conv, current, err)
			if !recoverable {
				return conv, err
			}
			current = next
			continue
		}

		next, done, err := s.next(current, conv)
		if err != nil {
			return conv, err
		}
		if done {
			return s.finish(ctx, conv)
		}
		current = next
	}
	return conv, fmt.Errorf("%w: turn exceeded %d dispatches", contractx.ErrRoutingLoop, s.cfg.MaxSteps)
}

func (s *Service) dispatch(ctx context.Context, name statex.StepName, conv *statex.Conversation) (*statex.Conversation, error) {
	if conv.HasVisited(name) {
		return conv, fmt.Errorf("%w: step %s already ran this turn", contractx.ErrRoutingLoop, name)
	}
	logx.Debug().Str("step", string(name)).Msg("dispatching step")
	out, err := s.steps[name].Run(ctx, conv)
	if out != nil {
		conv = out
	}
	conv.MarkVisited(name)
	return conv, err
}

// recover reroutes a classification failure to escalation instead of failing
// the turn. Every other step error is fatal, and so is any error once the
// caller's context is done.
func (s *Service) recover(ctx context.Context, conv *statex.Conversation, failed statex.StepName, err error) (statex.StepName, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	if !errors.Is(err, contractx.ErrClassification) || conv.HasVisited(statex.StepEscalation) {
		return "", false
	}
	logx.Warn().Err(err).Str("step", string(failed)).Msg("classification failed, escalating turn")
	conv.FlagEscalation("classification failed")
	return statex.StepEscalation, true
}

// next picks the following dispatch. done means the turn is complete.
func (s *Service) next(current statex.StepName, conv *statex.Conversation) (statex.StepName, bool, error) {
	switch current {
	case statex.StepTriage:
		target, err := s.resolve(s.handlerFor(conv))
		return target, false, err

	case statex.StepKnowledge, statex.StepAction:
		if conv.NeedsEscalation && !conv.HasVisited(statex.StepEscalation) {
			target, err := s.resolve(statex.StepEscalation)
			return target, false, err
		}
		if s.enabled[statex.StepFollowUp] && conv.TerminalResponse != "" && !conv.HasVisited(statex.StepFollowUp) {
			return statex.StepFollowUp, false, nil
		}
		return "", true, nil

	default:
		return "", true, nil
	}
}

// handlerFor is the routing decision after triage. Exactly one primary
// handler is chosen per turn.
func (s *Service) handlerFor(conv *statex.Conversation) statex.StepName {
	cl := conv.Classification
	if conv.NeedsEscalation || cl == nil {
		return statex.StepEscalation
	}
	if cl.Urgency == statex.UrgencyCritical || cl.Sentiment == statex.SentimentVeryNegative || cl.Intent == statex.IntentUnresolved {
		return statex.StepEscalation
	}
	if cl.Intent == statex.IntentActionRequest && s.actionable(cl) {
		return statex.StepAction
	}
	// Action requests without an actionable entity get the procedural answer
	// from the knowledge base.
	return statex.StepKnowledge
}

func (s *Service) actionable(cl *statex.Classification) bool {
	return cl.HasEntity(statex.EntityOrderID, s.cfg.EntityThreshold) ||
		cl.HasEntity(statex.EntityCustomerID, s.cfg.EntityThreshold)
}

// resolve follows the fallback chain until it lands on an enabled step.
func (s *Service) resolve(target statex.StepName) (statex.StepName, error) {
	name := target
	for hops := 0; hops <= len(statex.AllSteps()); hops++ {
		if s.enabled[name] {
			return name, nil
		}
		next, ok := s.fallback[name]
		if !ok {
			return "", fmt.Errorf("orchestrator: step %q is not enabled and has no fallback", name)
		}
		name = next
	}
	return "", fmt.Errorf("orchestrator: fallback chain for %q does not terminate", target)
}

// finish enforces the terminal-response guarantee. A turn that somehow ends
// silent escalates as the last resort.
func (s *Service) finish(ctx context.Context, conv *statex.Conversation) (*statex.Conversation, error) {
	if conv.TerminalResponse != "" {
		return conv, nil
	}
	if conv.HasVisited(statex.StepEscalation) {
		return conv, fmt.Errorf("escalation step left the turn without a response: %w", statex.ErrEmptyResponse)
	}
	logx.Warn().Str("visited", fmt.Sprint(conv.Visited)).Msg("turn ended silent, escalating")
	conv.FlagEscalation("turn ended without a response")
	conv, err := s.dispatch(ctx, statex.StepEscalation, conv)
	if err != nil {
		return conv, err
	}
	return s.finish(ctx, conv)
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, contractx.Handoff) error { return nil }

var _ contractx.TurnRunner = (*Service)(nil)
