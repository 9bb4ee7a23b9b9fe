package steps

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

func TestFollowUpAfterAction(t *testing.T) {
	t.Parallel()

	conv := statex.NewConversation("cancel order 12345", nil)
	if err := conv.SetResponse("Order 12345 has been cancelled."); err != nil {
		t.Fatalf("SetResponse() error = %v", err)
	}
	conv.MarkVisited(statex.StepTriage)
	conv.MarkVisited(statex.StepAction)

	conv, err := NewFollowUp().Run(context.Background(), conv)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "Order 12345 has been cancelled.\n\n" + followUpSatisfactionPrompt
	if conv.TerminalResponse != want {
		t.Errorf("response = %q, want %q", conv.TerminalResponse, want)
	}
}

func TestFollowUpAfterKnowledge(t *testing.T) {
	t.Parallel()

	conv := statex.NewConversation("what is the return policy", nil)
	if err := conv.SetResponse("Returns are accepted within 30 days."); err != nil {
		t.Fatalf("SetResponse() error = %v", err)
	}
	conv.MarkVisited(statex.StepTriage)
	conv.MarkVisited(statex.StepKnowledge)

	conv, err := NewFollowUp().Run(context.Background(), conv)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.HasSuffix(conv.TerminalResponse, followUpClosingRemark) {
		t.Errorf("response = %q, want the closing remark appended", conv.TerminalResponse)
	}
	if strings.Contains(conv.TerminalResponse, followUpSatisfactionPrompt) {
		t.Errorf("informational turn got the post-action prompt:\n%s", conv.TerminalResponse)
	}
}

func TestFollowUpWithoutResponse(t *testing.T) {
	t.Parallel()

	_, err := NewFollowUp().Run(context.Background(), statex.NewConversation("hello", nil))
	if !errors.Is(err, statex.ErrEmptyResponse) {
		t.Fatalf("Run() error = %v, want %v", err, statex.ErrEmptyResponse)
	}
	var stepErr *contractx.StepError
	if !errors.As(err, &stepErr) || stepErr.Step != statex.StepFollowUp {
		t.Fatalf("Run() error = %v, want StepError from %q", err, statex.StepFollowUp)
	}
}
