package steps

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

func TestNewTriageRequiresClassifier(t *testing.T) {
	t.Parallel()

	if _, err := NewTriage(nil, time.Second); err == nil {
		t.Fatal("NewTriage(nil) error = nil, want non-nil")
	}
}

func TestTriageRun(t *testing.T) {
	t.Parallel()

	cl := statex.Classification{
		Intent:     statex.IntentActionRequest,
		Sentiment:  statex.SentimentNegative,
		Urgency:    statex.UrgencyHigh,
		Confidence: 0.9,
		Entities: []statex.Entity{
			{Name: statex.EntityOrderID, Value: "12345", Confidence: 0.95},
		},
	}
	step, err := NewTriage(&fakeClassifier{cl: cl}, time.Second)
	if err != nil {
		t.Fatalf("NewTriage() error = %v", err)
	}

	conv, err := step.Run(context.Background(), statex.NewConversation("cancel order 12345", nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if conv.Classification == nil {
		t.Fatal("Run() left Classification nil")
	}
	if conv.Classification.Intent != statex.IntentActionRequest {
		t.Errorf("Intent = %q, want %q", conv.Classification.Intent, statex.IntentActionRequest)
	}
	if conv.TerminalResponse != "" {
		t.Errorf("triage wrote a terminal response: %q", conv.TerminalResponse)
	}
	if conv.NeedsEscalation {
		t.Error("triage flagged escalation on success")
	}
}

func TestTriageRunClassifierError(t *testing.T) {
	t.Parallel()

	step, err := NewTriage(&fakeClassifier{err: errors.New("parser exploded")}, time.Second)
	if err != nil {
		t.Fatalf("NewTriage() error = %v", err)
	}

	_, err = step.Run(context.Background(), statex.NewConversation("help", nil))
	if err == nil {
		t.Fatal("Run() error = nil, want classification failure")
	}
	if !errors.Is(err, contractx.ErrClassification) {
		t.Errorf("Run() error = %v, want wrapped %v", err, contractx.ErrClassification)
	}
	var stepErr *contractx.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("Run() error = %T, want *contract.StepError", err)
	}
	if stepErr.Step != statex.StepTriage {
		t.Errorf("StepError.Step = %q, want %q", stepErr.Step, statex.StepTriage)
	}
}

func TestTriageRunTimeoutFlagsEscalation(t *testing.T) {
	t.Parallel()

	step, err := NewTriage(&fakeClassifier{err: context.DeadlineExceeded}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewTriage() error = %v", err)
	}

	conv, err := step.Run(context.Background(), statex.NewConversation("help", nil))
	if err != nil {
		t.Fatalf("Run() error = %v, want nil on step timeout", err)
	}
	if !conv.NeedsEscalation {
		t.Error("step timeout did not flag escalation")
	}
	if conv.EscalationReason == "" {
		t.Error("step timeout left EscalationReason empty")
	}
	if conv.Classification != nil {
		t.Error("timed-out triage installed a classification")
	}
}

func TestTriageRunCallerCancelled(t *testing.T) {
	t.Parallel()

	step, err := NewTriage(&fakeClassifier{}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewTriage() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	conv, err := step.Run(ctx, statex.NewConversation("help", nil))
	if err == nil {
		t.Fatal("Run() error = nil, want propagated cancellation")
	}
	if conv.NeedsEscalation {
		t.Error("caller cancellation was treated as a step timeout")
	}
}

func TestTriageRunClassificationAlreadySet(t *testing.T) {
	t.Parallel()

	step, err := NewTriage(&fakeClassifier{}, time.Second)
	if err != nil {
		t.Fatalf("NewTriage() error = %v", err)
	}

	conv := classifiedConversation(t, "help", statex.Classification{Intent: statex.IntentInformationRequest})
	_, err = step.Run(context.Background(), conv)
	if !errors.Is(err, statex.ErrClassificationSet) {
		t.Fatalf("Run() error = %v, want %v", err, statex.ErrClassificationSet)
	}
}
