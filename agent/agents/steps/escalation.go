package steps

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
	logx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger"
)

const escalationCustomerMessage = "I understand this situation needs special attention. I am connecting you with one of our specialist team members who can give you the personalized help you need.\n\nThey will review your case shortly and will have the full context of our conversation. Thank you for your patience."

// Escalation hands the conversation to a human. It always produces a terminal
// response and never fails, so the orchestrator can rely on it as the handler
// of last resort.
type Escalation struct{}

func NewEscalation() *Escalation {
	return &Escalation{}
}

func (e *Escalation) Name() statex.StepName {
	return statex.StepEscalation
}

func (e *Escalation) Run(ctx context.Context, conv *statex.Conversation) (*statex.Conversation, error) {
	if strings.TrimSpace(conv.EscalationReason) == "" {
		conv.EscalationReason = deriveEscalationReason(conv.Classification)
	}
	conv.MarkEscalated()

	text := escalationCustomerMessage + "\n\n" + escalationSummary(conv)
	if err := conv.SetResponse(text); err != nil {
		return conv, contractx.NewStepError(statex.StepEscalation, err)
	}
	logx.Info().Str("reason", conv.EscalationReason).Msg("turn escalated to human support")
	return conv, nil
}

// escalationSummary condenses the machine's view of the turn so the human
// agent does not start from zero.
func escalationSummary(conv *statex.Conversation) string {
	parts := []string{"reason: " + conv.EscalationReason}
	if cl := conv.Classification; cl != nil {
		parts = append(parts, fmt.Sprintf("intent %s, urgency %s, sentiment %s", cl.Intent, cl.Urgency, cl.Sentiment))
	}
	if failed := conv.FailedTools(); len(failed) > 0 {
		names := make([]string, 0, len(failed))
		seen := map[string]bool{}
		for _, rec := range failed {
			if seen[rec.Tool] {
				continue
			}
			seen[rec.Tool] = true
			names = append(names, rec.Tool)
		}
		parts = append(parts, "failed tools: "+strings.Join(names, ", "))
	}
	return "Case notes for our team: " + strings.Join(parts, "; ") + "."
}

func deriveEscalationReason(cl *statex.Classification) string {
	switch {
	case cl == nil:
		return "classification unavailable"
	case cl.Urgency == statex.UrgencyCritical:
		return "critical urgency"
	case cl.Sentiment == statex.SentimentVeryNegative:
		return "very negative sentiment"
	case cl.Intent == statex.IntentUnresolved:
		return "intent could not be resolved"
	default:
		return "requires human review"
	}
}

var _ contractx.Step = (*Escalation)(nil)
