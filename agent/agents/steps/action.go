package steps

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

const actionNoOperationResponse = "I want to help with that, but I could not match your request to a specific account or order action. Could you share the order number and what you would like done?"

const actionMissingInfoResponse = "I'm sorry, I could not complete that just yet. I am missing a few details, such as the exact order number or the updated information. Could you share them and I will take care of it right away?"

// Operations whose failure leaves the customer's problem unsolved in a way
// automation cannot recover from.
var mutatingOps = map[string]bool{
	toolx.ToolCancelOrder:    true,
	toolx.ToolModifyOrder:    true,
	toolx.ToolInitiateRefund: true,
	toolx.ToolUpdateAddress:  true,
	toolx.ToolResetPassword:  true,
}

// Action executes the backend operation triage resolved. One turn performs at
// most one operation; the failure mode decides whether the turn continues to
// follow-up or reroutes to escalation.
type Action struct {
	tools     contractx.ToolExecutor
	threshold float64
	timeout   time.Duration
}

func NewAction(tools contractx.ToolExecutor, threshold float64, timeout time.Duration) (*Action, error) {
	if tools == nil {
		return nil, errors.New("action: tool executor is required")
	}
	if threshold <= 0 {
		threshold = defaultEntityThreshold
	}
	return &Action{tools: tools, threshold: threshold, timeout: timeout}, nil
}

func (a *Action) Name() statex.StepName {
	return statex.StepAction
}

func (a *Action) Run(ctx context.Context, conv *statex.Conversation) (*statex.Conversation, error) {
	if conv.Classification == nil {
		return conv, contractx.NewStepError(statex.StepAction, statex.ErrClassificationMissing)
	}

	opEnt, ok := conv.Classification.Entity(statex.EntityOperation, a.threshold)
	if !ok {
		conv.Resolution = statex.ResolutionUnresolved
		conv.FlagEscalation("no actionable operation resolved")
		return conv, respond(conv, statex.StepAction, actionNoOperationResponse)
	}
	op := opEnt.Value

	cctx, cancel := stepContext(ctx, a.timeout)
	defer cancel()
	rec, err := a.tools.Execute(cctx, contractx.ToolRequest{Tool: op, Args: a.argsFor(op, conv.Classification)})
	conv.AppendToolRecord(rec)

	switch {
	case err == nil:
		conv.Resolution = statex.ResolutionResolved
		logx.Debug().Str("tool", op).Msg("action executed")
		return conv, respond(conv, statex.StepAction, successMessage(rec.Result))

	case timedOut(ctx, err):
		logx.Warn().Str("tool", op).Dur("timeout", a.timeout).Msg("action tool call timed out")
		conv.FlagEscalation(fmt.Sprintf("action %s timed out", op))
		return conv, nil

	case errors.Is(err, contractx.ErrArgument):
		conv.Resolution = statex.ResolutionPartial
		return conv, respond(conv, statex.StepAction, actionMissingInfoResponse)

	case errors.Is(err, contractx.ErrNotFound):
		conv.Resolution = statex.ResolutionUnresolved
		if mutatingOps[op] {
			conv.FlagEscalation(fmt.Sprintf("action %s failed: %s", op, failureDetail(err)))
		}
		text := fmt.Sprintf("I'm sorry, I could not find %s. Please double-check the number and try again.", failureDetail(err))
		return conv, respond(conv, statex.StepAction, text)

	case errors.Is(err, contractx.ErrInvalidState), errors.Is(err, contractx.ErrValidationFailed):
		conv.Resolution = statex.ResolutionUnresolved
		if mutatingOps[op] {
			conv.FlagEscalation(fmt.Sprintf("action %s failed: %s", op, failureDetail(err)))
		}
		text := fmt.Sprintf("I'm sorry, I was not able to complete that: %s.", failureDetail(err))
		return conv, respond(conv, statex.StepAction, text)

	case errors.Is(err, contractx.ErrToolNotFound):
		conv.Resolution = statex.ResolutionUnresolved
		conv.FlagEscalation(fmt.Sprintf("operation %s has no registered tool", op))
		return conv, respond(conv, statex.StepAction, actionNoOperationResponse)

	default:
		return conv, contractx.NewStepError(statex.StepAction, err)
	}
}

// argsFor assembles the call arguments from the entities triage extracted.
// Anything the customer has not supplied stays absent; the registry's schema
// validation names what is missing.
func (a *Action) argsFor(op string, cl *statex.Classification) map[string]any {
	args := map[string]any{}

	setEntity := func(argName, entityName string) {
		if e, ok := cl.Entity(entityName, a.threshold); ok {
			args[argName] = e.Value
		}
	}

	switch op {
	case toolx.ToolCheckOrderStatus, toolx.ToolCancelOrder, toolx.ToolModifyOrder:
		setEntity("order_id", statex.EntityOrderID)
	case toolx.ToolInitiateRefund:
		setEntity("order_id", statex.EntityOrderID)
		if e, ok := cl.Entity(statex.EntityAmount, a.threshold); ok {
			if amount, err := strconv.ParseFloat(e.Value, 64); err == nil {
				args["amount"] = amount
			}
		}
	case toolx.ToolCheckRefundStatus:
		// refund_id comes from the customer's REF reference, which triage
		// does not extract; schema validation asks for it.
	case toolx.ToolUpdateAddress, toolx.ToolResetPassword, toolx.ToolGetAccountInfo:
		setEntity("customer_id", statex.EntityCustomerID)
	}

	return args
}

func successMessage(result any) string {
	switch out := result.(type) {
	case toolx.CancelOutcome:
		return fmt.Sprintf("%s. A refund of $%.2f will be issued to your original payment method.", out.Message, out.RefundAmount)
	case toolx.ModifyOutcome:
		return fmt.Sprintf("%s. The new shipping address is %s.", out.Message, out.Order.ShippingAddress)
	case toolx.RefundOutcome:
		return fmt.Sprintf("%s Your reference number is %s.", out.Message, out.RefundID)
	case toolx.AddressOutcome:
		return fmt.Sprintf("%s. Future orders will ship to %s.", out.Message, out.NewAddress)
	case toolx.PasswordOutcome:
		return out.Message + ". The link stays valid for 24 hours."
	case toolx.Order:
		return orderStatusMessage(out)
	case toolx.Refund:
		return fmt.Sprintf("Refund %s for order %s is %s. Expected completion: %s.", out.RefundID, out.OrderID, out.Status, out.EstimatedCompletion)
	case toolx.Account:
		return fmt.Sprintf("Here are the details we have on file for %s: email %s, phone %s, address %s.", out.Name, out.Email, out.Phone, out.Address)
	default:
		return "Done! The requested action has been completed."
	}
}

func orderStatusMessage(o toolx.Order) string {
	switch o.Status {
	case toolx.OrderShipped:
		return fmt.Sprintf("Order %s shipped on %s. Items: %s.", o.OrderID, o.ShippedDate, strings.Join(o.Items, ", "))
	case toolx.OrderCancelled:
		return fmt.Sprintf("Order %s was cancelled on %s.", o.OrderID, o.CancelledDate)
	default:
		return fmt.Sprintf("Order %s is currently %s. Items: %s.", o.OrderID, o.Status, strings.Join(o.Items, ", "))
	}
}

// failureDetail strips the sentinel prefix so the customer sees the human
// half of the backend message, never the taxonomy.
func failureDetail(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{contractx.ErrNotFound, contractx.ErrInvalidState, contractx.ErrValidationFailed} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

var _ contractx.Step = (*Action)(nil)
