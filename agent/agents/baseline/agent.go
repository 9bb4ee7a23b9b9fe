// Package baseline collapses the whole support flow into a single pass:
// classify, then either act or answer, with no routing between specialist
// steps. It implements the same TurnRunner contract as the orchestrator so
// the ablation harness can score both over the same query set.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
	toolx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/tool"
	logx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger"
)

const (
	defaultEntityThreshold = 0.7
	defaultRetrievalTopK   = 5
)

const baselineHandoffResponse = "I apologize, but I'm having trouble processing your request. Let me connect you with a human agent."

const baselineNoAnswerResponse = "Thanks for reaching out! I could not find the exact answer in our help center. Could you tell me a bit more about what you need?"

// Config mirrors the step pipeline's tunables so a harness run can hold them
// constant across configurations.
type Config struct {
	EntityThreshold float64
	RetrievalTopK   int
	Timeout         time.Duration
}

// Agent is the one-pass comparison unit. Unlike the step pipeline it has no
// degradation ladder: any collaborator failure ends the turn with a handoff.
type Agent struct {
	classifier contractx.Classifier
	retriever  contractx.Retriever
	tools      contractx.ToolExecutor
	threshold  float64
	topK       int
	timeout    time.Duration
}

func New(classifier contractx.Classifier, retriever contractx.Retriever, tools contractx.ToolExecutor, cfg Config) (*Agent, error) {
	if classifier == nil {
		return nil, errors.New("baseline: classifier is required")
	}
	if retriever == nil {
		return nil, errors.New("baseline: retriever is required")
	}
	if tools == nil {
		return nil, errors.New("baseline: tool executor is required")
	}
	if cfg.EntityThreshold <= 0 {
		cfg.EntityThreshold = defaultEntityThreshold
	}
	if cfg.RetrievalTopK <= 0 {
		cfg.RetrievalTopK = defaultRetrievalTopK
	}
	return &Agent{
		classifier: classifier,
		retriever:  retriever,
		tools:      tools,
		threshold:  cfg.EntityThreshold,
		topK:       cfg.RetrievalTopK,
		timeout:    cfg.Timeout,
	}, nil
}

// ProcessTurn runs the single pass. The visited list stays empty: there is no
// step machine here, only one combined unit of work.
func (a *Agent) ProcessTurn(ctx context.Context, query string, history []statex.Turn) (*statex.Conversation, error) {
	conv := statex.NewConversation(query, history)
	if conv.Query == "" {
		return nil, statex.ErrEmptyQuery
	}

	cctx, cancel := a.callContext(ctx)
	cl, err := a.classifier.Classify(cctx, conv.Query, conv.History)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("baseline: classify: %w", err)
		}
		logx.Warn().Err(err).Msg("baseline classify failed, handing off")
		return conv, a.handOff(conv, "classification failed")
	}
	if err := conv.SetClassification(cl); err != nil {
		return conv, fmt.Errorf("baseline: %w", err)
	}

	switch {
	case cl.Urgency == statex.UrgencyCritical,
		cl.Sentiment == statex.SentimentVeryNegative,
		cl.Intent == statex.IntentUnresolved:
		return conv, a.handOff(conv, handOffReason(cl))
	case cl.Intent == statex.IntentActionRequest && a.actionable(conv.Classification):
		return conv, a.act(ctx, conv)
	default:
		return conv, a.answer(ctx, conv)
	}
}

func (a *Agent) actionable(cl *statex.Classification) bool {
	if !cl.HasEntity(statex.EntityOperation, a.threshold) {
		return false
	}
	return cl.HasEntity(statex.EntityOrderID, a.threshold) || cl.HasEntity(statex.EntityCustomerID, a.threshold)
}

// act executes exactly one tool call. A failed call of any kind hands off;
// picking apart argument gaps and retryable states is the specialist
// pipeline's job, not this one's.
func (a *Agent) act(ctx context.Context, conv *statex.Conversation) error {
	op, _ := conv.Classification.Entity(statex.EntityOperation, a.threshold)

	cctx, cancel := a.callContext(ctx)
	rec, err := a.tools.Execute(cctx, contractx.ToolRequest{Tool: op.Value, Args: a.argsFor(op.Value, conv.Classification)})
	cancel()
	conv.AppendToolRecord(rec)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("baseline: tool %s: %w", op.Value, err)
		}
		logx.Warn().Err(err).Str("tool", op.Value).Msg("baseline action failed, handing off")
		return a.handOff(conv, fmt.Sprintf("action %s failed", op.Value))
	}

	conv.Resolution = statex.ResolutionResolved
	return respond(conv, outcomeMessage(rec.Result))
}

// answer retrieves context and responds from it. An unreachable knowledge
// backend hands off; an empty match answers generically but counts only as
// a partial resolution.
func (a *Agent) answer(ctx context.Context, conv *statex.Conversation) error {
	cctx, cancel := a.callContext(ctx)
	snippets, err := a.retriever.Retrieve(cctx, conv.Query, a.topK)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("baseline: retrieve: %w", err)
		}
		logx.Warn().Err(err).Msg("baseline retrieval failed, handing off")
		return a.handOff(conv, "knowledge retrieval failed")
	}

	if len(snippets) == 0 {
		conv.Resolution = statex.ResolutionPartial
		return respond(conv, baselineNoAnswerResponse)
	}

	var b strings.Builder
	b.WriteString("Here is what I can tell you:\n")
	for i, sn := range snippets {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, sn.Text)
	}
	b.WriteString("\nI hope that helps!")

	conv.Resolution = statex.ResolutionResolved
	return respond(conv, b.String())
}

func (a *Agent) argsFor(op string, cl *statex.Classification) map[string]any {
	args := map[string]any{}
	switch op {
	case toolx.ToolCheckOrderStatus, toolx.ToolCancelOrder, toolx.ToolModifyOrder, toolx.ToolInitiateRefund:
		if ent, ok := cl.Entity(statex.EntityOrderID, a.threshold); ok {
			args["order_id"] = ent.Value
		}
		if op == toolx.ToolInitiateRefund {
			if ent, ok := cl.Entity(statex.EntityAmount, 0); ok {
				if amount, err := strconv.ParseFloat(ent.Value, 64); err == nil {
					args["amount"] = amount
				}
			}
		}
	case toolx.ToolUpdateAddress, toolx.ToolResetPassword, toolx.ToolGetAccountInfo:
		if ent, ok := cl.Entity(statex.EntityCustomerID, a.threshold); ok {
			args["customer_id"] = ent.Value
		}
	}
	return args
}

func (a *Agent) handOff(conv *statex.Conversation, reason string) error {
	conv.FlagEscalation(reason)
	conv.MarkEscalated()
	return respond(conv, baselineHandoffResponse)
}

func (a *Agent) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.timeout)
}

func respond(conv *statex.Conversation, text string) error {
	if err := conv.SetResponse(text); err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	return nil
}

func handOffReason(cl statex.Classification) string {
	switch {
	case cl.Urgency == statex.UrgencyCritical:
		return "critical urgency"
	case cl.Sentiment == statex.SentimentVeryNegative:
		return "very negative sentiment"
	default:
		return "intent could not be resolved"
	}
}

func outcomeMessage(result any) string {
	switch v := result.(type) {
	case toolx.CancelOutcome:
		return fmt.Sprintf("%s. A refund of $%.2f is on its way.", v.Message, v.RefundAmount)
	case toolx.ModifyOutcome:
		return v.Message + "."
	case toolx.RefundOutcome:
		return fmt.Sprintf("%s Your reference number is %s.", v.Message, v.RefundID)
	case toolx.AddressOutcome:
		return fmt.Sprintf("%s. Future orders will ship to %s.", v.Message, v.NewAddress)
	case toolx.PasswordOutcome:
		return v.Message + "."
	case toolx.Order:
		return fmt.Sprintf("Order %s is currently %s.", v.OrderID, v.Status)
	case toolx.Refund:
		return fmt.Sprintf("Refund %s is %s.", v.RefundID, v.Status)
	case toolx.Account:
		return fmt.Sprintf("Here are the details we have on file for %s: email %s, phone %s, address %s.", v.Name, v.Email, v.Phone, v.Address)
	default:
		return "Done! The requested action has been completed."
	}
}

var _ contractx.TurnRunner = (*Agent)(nil)
