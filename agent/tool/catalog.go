package tool

import (
	"context"
	"time"
)

// Canonical tool names. Steps resolve operations to these by name only.
const (
	ToolCheckOrderStatus    = "check_order_status"
	ToolCancelOrder         = "cancel_order"
	ToolModifyOrder         = "modify_order"
	ToolInitiateRefund      = "initiate_refund"
	ToolCheckRefundStatus   = "check_refund_status"
	ToolUpdateAddress       = "update_customer_address"
	ToolResetPassword       = "reset_customer_password"
	ToolGetAccountInfo      = "get_customer_account_info"
	ToolSearchProducts      = "search_products"
	ToolGetCompanyInfo      = "get_company_info"
	defaultCancellationNote = "customer request"
)

// BuildDefaultRegistry wires the full support catalog against the given
// backends. Mutating tools change backend state; their failures are treated
// as safety-critical by the action step.
func BuildDefaultRegistry(b *Backends) (*Registry, error) {
	if b == nil {
		b = NewBackends(time.Now)
	}
	return NewRegistry(
		Tool{
			Name: ToolCheckOrderStatus,
			Desc: "Look up the current status of an order.",
			Schema: Schema{
				"order_id": {Type: TypeString, Required: true, Desc: "Order identifier"},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return b.Orders.Status(stringArg(args, "order_id"))
			},
		},
		Tool{
			Name:     ToolCancelOrder,
			Desc:     "Cancel an order that has not been delivered.",
			Mutating: true,
			Schema: Schema{
				"order_id": {Type: TypeString, Required: true, Desc: "Order identifier"},
				"reason":   {Type: TypeString, Required: false, Desc: "Cancellation reason"},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				reason := stringArg(args, "reason")
				if reason == "" {
					reason = defaultCancellationNote
				}
				return b.Orders.Cancel(stringArg(args, "order_id"), reason)
			},
		},
		Tool{
			Name:     ToolModifyOrder,
			Desc:     "Change the shipping address of a pending or processing order.",
			Mutating: true,
			Schema: Schema{
				"order_id":         {Type: TypeString, Required: true, Desc: "Order identifier"},
				"shipping_address": {Type: TypeString, Required: true, Desc: "New shipping address"},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return b.Orders.Modify(stringArg(args, "order_id"), stringArg(args, "shipping_address"))
			},
		},
		Tool{
			Name:     ToolInitiateRefund,
			Desc:     "Start a refund for an order.",
			Mutating: true,
			Schema: Schema{
				"order_id": {Type: TypeString, Required: true, Desc: "Order identifier"},
				"amount":   {Type: TypeNumber, Required: true, Desc: "Refund amount"},
				"reason":   {Type: TypeString, Required: false, Desc: "Refund reason"},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return b.Refunds.Initiate(stringArg(args, "order_id"), numberArg(args, "amount"), stringArg(args, "reason"))
			},
		},
		Tool{
			Name: ToolCheckRefundStatus,
			Desc: "Look up the status of a refund.",
			Schema: Schema{
				"refund_id": {Type: TypeString, Required: true, Desc: "Refund identifier"},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return b.Refunds.Status(stringArg(args, "refund_id"))
			},
		},
		Tool{
			Name:     ToolUpdateAddress,
			Desc:     "Update the shipping address on a customer account.",
			Mutating: true,
			Schema: Schema{
				"customer_id": {Type: TypeString, Required: true, Desc: "Customer identifier"},
				"new_address": {Type: TypeString, Required: true, Desc: "New address"},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return b.Accounts.UpdateAddress(stringArg(args, "customer_id"), stringArg(args, "new_address"))
			},
		},
		Tool{
			Name:     ToolResetPassword,
			Desc:     "Send a password reset link to the account email.",
			Mutating: true,
			Schema: Schema{
				"customer_id": {Type: TypeString, Required: true, Desc: "Customer identifier"},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return b.Accounts.ResetPassword(stringArg(args, "customer_id"))
			},
		},
		Tool{
			Name: ToolGetAccountInfo,
			Desc: "Fetch customer account details.",
			Schema: Schema{
				"customer_id": {Type: TypeString, Required: true, Desc: "Customer identifier"},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return b.Accounts.Info(stringArg(args, "customer_id"))
			},
		},
		Tool{
			Name: ToolSearchProducts,
			Desc: "Search the product catalog by keyword.",
			Schema: Schema{
				"query":       {Type: TypeString, Required: true, Desc: "Search query"},
				"category":    {Type: TypeString, Required: false, Desc: "Category filter"},
				"max_results": {Type: TypeInteger, Required: false, Desc: "Result cap"},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				matches := b.Products.Search(stringArg(args, "query"), stringArg(args, "category"), intArg(args, "max_results"))
				return matches, nil
			},
		},
		Tool{
			Name:   ToolGetCompanyInfo,
			Desc:   "Return company policies and contact details.",
			Schema: Schema{},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				return b.Company, nil
			},
		},
	)
}

// Argument accessors for validated args. Schema validation runs first, so a
// wrong type here means a schema bug, not caller input.
func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func numberArg(args map[string]any, key string) float64 {
	switch n := args[key].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func intArg(args map[string]any, key string) int {
	switch n := args[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
