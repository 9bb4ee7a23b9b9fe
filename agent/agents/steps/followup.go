package steps

import (
	"context"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

const followUpSatisfactionPrompt = "Is there anything else I can help you with today?"

const followUpClosingRemark = "Thanks for reaching out. If anything else comes up, we are always happy to help!"

// FollowUp closes out a handled turn. After an action it checks the customer
// is satisfied; after an informational answer it adds a short sign-off.
type FollowUp struct{}

func NewFollowUp() *FollowUp {
	return &FollowUp{}
}

func (f *FollowUp) Name() statex.StepName {
	return statex.StepFollowUp
}

func (f *FollowUp) Run(ctx context.Context, conv *statex.Conversation) (*statex.Conversation, error) {
	if conv.TerminalResponse == "" {
		return conv, contractx.NewStepError(statex.StepFollowUp, statex.ErrEmptyResponse)
	}
	text := followUpClosingRemark
	if conv.HasVisited(statex.StepAction) {
		text = followUpSatisfactionPrompt
	}
	if err := conv.AppendResponse(text); err != nil {
		return conv, contractx.NewStepError(statex.StepFollowUp, err)
	}
	return conv, nil
}

var _ contractx.Step = (*FollowUp)(nil)
