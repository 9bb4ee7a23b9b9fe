// Package steps implements the five processing units a support turn is
// composed of: triage, knowledge, action, follow-up, and escalation. Each
// step is pure given its construction-time collaborators; the orchestrator
// owns dispatch order and the visited trail.
package steps

import (
	"context"
	"errors"
	"time"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

const (
	defaultEntityThreshold = 0.7
	defaultRetrievalTopK   = 5
)

// Deps carries the collaborators the step set is built from.
type Deps struct {
	Classifier contractx.Classifier
	Retriever  contractx.Retriever
	Tools      contractx.ToolExecutor
}

// Config carries the per-step tuning values. Zero values fall back to the
// defaults at build time.
type Config struct {
	// EntityThreshold is the minimum entity confidence the action step acts on.
	EntityThreshold float64
	// RetrievalTopK caps how many snippets the knowledge step grounds on.
	RetrievalTopK int
	// Timeout bounds each step's external call. Zero means no bound.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.EntityThreshold <= 0 {
		c.EntityThreshold = defaultEntityThreshold
	}
	if c.RetrievalTopK <= 0 {
		c.RetrievalTopK = defaultRetrievalTopK
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
	return c
}

// BuildAll constructs the complete step set. Every collaborator is required:
// a partial set would leave some routing target unconstructible, which the
// orchestrator treats as a startup error anyway.
func BuildAll(deps Deps, cfg Config) (map[statex.StepName]contractx.Step, error) {
	if deps.Classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if deps.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if deps.Tools == nil {
		return nil, errors.New("tool executor is required")
	}
	cfg = cfg.withDefaults()

	triage, err := NewTriage(deps.Classifier, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	knowledge, err := NewKnowledge(deps.Retriever, deps.Tools, cfg.RetrievalTopK, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	action, err := NewAction(deps.Tools, cfg.EntityThreshold, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	return map[statex.StepName]contractx.Step{
		statex.StepTriage:     triage,
		statex.StepKnowledge:  knowledge,
		statex.StepAction:     action,
		statex.StepFollowUp:   NewFollowUp(),
		statex.StepEscalation: NewEscalation(),
	}, nil
}

// stepContext scopes an external call to the step timeout. A zero timeout
// returns the parent unchanged.
func stepContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// timedOut reports whether err is the step's own deadline rather than the
// caller giving up. parent is the context the step was invoked with.
func timedOut(parent context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil
}

func respond(conv *statex.Conversation, step statex.StepName, text string) error {
	if err := conv.SetResponse(text); err != nil {
		return contractx.NewStepError(step, err)
	}
	return nil
}
