package steps

import (
	"context"
	"errors"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
	logx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger"
)

// Triage classifies the query and installs the classification on the
// conversation. It never writes a terminal response; routing is the
// orchestrator's call.
type Triage struct {
	classifier contractx.Classifier
	timeout    time.Duration
}

func NewTriage(classifier contractx.Classifier, timeout time.Duration) (*Triage, error) {
	if classifier == nil {
		return nil, errors.New("triage: classifier is required")
	}
	return &Triage{classifier: classifier, timeout: timeout}, nil
}

func (t *Triage) Name() statex.StepName {
	return statex.StepTriage
}

func (t *Triage) Run(ctx context.Context, conv *statex.Conversation) (*statex.Conversation, error) {
	cctx, cancel := stepContext(ctx, t.timeout)
	defer cancel()

	cl, err := t.classifier.Classify(cctx, conv.Query, conv.History)
	if err != nil {
		if timedOut(ctx, err) {
			logx.Warn().Dur("timeout", t.timeout).Msg("triage classification timed out")
			conv.FlagEscalation("triage timed out")
			return conv, nil
		}
		if !errors.Is(err, contractx.ErrClassification) {
			err = fmt.Errorf("%w: %v", contractx.ErrClassification, err)
		}
		return conv, contractx.NewStepError(statex.StepTriage, err)
	}

	if err := conv.SetClassification(cl); err != nil {
		return conv, contractx.NewStepError(statex.StepTriage, err)
	}

	logx.Debug().
		Str("intent", string(cl.Intent)).
		Str("urgency", string(cl.Urgency)).
		Str("sentiment", string(cl.Sentiment)).
		Int("entities", len(cl.Entities)).
		Msg("triage classified query")
	return conv, nil
}

var _ contractx.Step = (*Triage)(nil)
