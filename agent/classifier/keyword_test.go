package classifier

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

func classify(t *testing.T, query string) statex.Classification {
	t.Helper()

	cl, err := NewKeywordClassifier().Classify(context.Background(), query, nil)
	if err != nil {
		t.Fatalf("Classify(%q) error = %v", query, err)
	}
	return cl
}

func entityValue(t *testing.T, cl statex.Classification, name string) string {
	t.Helper()

	e, ok := cl.Entity(name, 0)
	if !ok {
		t.Fatalf("entity %q missing: %+v", name, cl.Entities)
	}
	return e.Value
}

func TestClassifyCancelOrderIsActionRequest(t *testing.T) {
	t.Parallel()

	cl := classify(t, "cancel order 9001")

	if cl.Intent != statex.IntentActionRequest {
		t.Fatalf("Intent = %q, want action_request", cl.Intent)
	}
	if got := entityValue(t, cl, statex.EntityOrderID); got != "9001" {
		t.Fatalf("order_id = %q, want 9001", got)
	}
	if got := entityValue(t, cl, statex.EntityOperation); got != "cancel_order" {
		t.Fatalf("operation = %q, want cancel_order", got)
	}
	if cl.Urgency != statex.UrgencyMedium {
		t.Fatalf("Urgency = %q, want medium", cl.Urgency)
	}
	if cl.Confidence != confidenceKeyword {
		t.Fatalf("Confidence = %v, want %v", cl.Confidence, confidenceKeyword)
	}
}

func TestClassifyReturnPolicyIsInformational(t *testing.T) {
	t.Parallel()

	cl := classify(t, "What is your return policy?")

	if cl.Intent != statex.IntentInformationRequest {
		t.Fatalf("Intent = %q, want information_request", cl.Intent)
	}
	if cl.HasEntity(statex.EntityOperation, 0) {
		t.Fatalf("informational query produced an operation entity: %+v", cl.Entities)
	}
}

func TestClassifyHowToCancelIsInformational(t *testing.T) {
	t.Parallel()

	cl := classify(t, "How do I cancel my order?")

	if cl.Intent != statex.IntentInformationRequest {
		t.Fatalf("Intent = %q, want information_request", cl.Intent)
	}
}

func TestClassifyStatusLookupWithOrderIDIsAction(t *testing.T) {
	t.Parallel()

	cl := classify(t, "What is the status of order #12345?")

	if cl.Intent != statex.IntentActionRequest {
		t.Fatalf("Intent = %q, want action_request", cl.Intent)
	}
	if got := entityValue(t, cl, statex.EntityOperation); got != "check_order_status" {
		t.Fatalf("operation = %q, want check_order_status", got)
	}
	if got := entityValue(t, cl, statex.EntityOrderID); got != "12345" {
		t.Fatalf("order_id = %q, want 12345", got)
	}
}

func TestClassifyEscalationDemandIsCritical(t *testing.T) {
	t.Parallel()

	cl := classify(t, "I want to speak to manager right now")

	if cl.Intent != statex.IntentUnresolved {
		t.Fatalf("Intent = %q, want unresolved", cl.Intent)
	}
	if cl.Urgency != statex.UrgencyCritical {
		t.Fatalf("Urgency = %q, want critical", cl.Urgency)
	}
	if cl.Confidence != confidenceExtracted {
		t.Fatalf("Confidence = %v, want %v", cl.Confidence, confidenceExtracted)
	}
}

func TestClassifySentimentLevels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		query string
		want  statex.Sentiment
	}{
		{"This is terrible and awful, I hate it", statex.SentimentVeryNegative},
		{"The product arrived broken", statex.SentimentNegative},
		{"Thank you, great service", statex.SentimentPositive},
		{"Where can I find my invoice?", statex.SentimentNeutral},
	}

	for _, tc := range cases {
		if got := classify(t, tc.query).Sentiment; got != tc.want {
			t.Fatalf("Sentiment(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestClassifyUrgentKeywordRaisesUrgency(t *testing.T) {
	t.Parallel()

	cl := classify(t, "I need to cancel order #12345 immediately")

	if cl.Urgency != statex.UrgencyHigh {
		t.Fatalf("Urgency = %q, want high", cl.Urgency)
	}
}

func TestClassifyPasswordResetForCustomer(t *testing.T) {
	t.Parallel()

	cl := classify(t, "Please reset my password, my account is CUST001")

	if cl.Intent != statex.IntentActionRequest {
		t.Fatalf("Intent = %q, want action_request", cl.Intent)
	}
	if got := entityValue(t, cl, statex.EntityCustomerID); got != "CUST001" {
		t.Fatalf("customer_id = %q, want CUST001", got)
	}
	if got := entityValue(t, cl, statex.EntityOperation); got != "reset_customer_password" {
		t.Fatalf("operation = %q, want reset_customer_password", got)
	}
}

func TestClassifyRefundStatusVersusInitiate(t *testing.T) {
	t.Parallel()

	status := classify(t, "Can you track my refund for order #12345?")
	if got := entityValue(t, status, statex.EntityOperation); got != "check_refund_status" {
		t.Fatalf("operation = %q, want check_refund_status", got)
	}

	initiate := classify(t, "I want a refund for order #12345")
	if got := entityValue(t, initiate, statex.EntityOperation); got != "initiate_refund" {
		t.Fatalf("operation = %q, want initiate_refund", got)
	}
}

func TestClassifyExtractsProductAndAmount(t *testing.T) {
	t.Parallel()

	cl := classify(t, "I was charged $49.99 for a mouse I never received")

	if got := entityValue(t, cl, statex.EntityAmount); got != "49.99" {
		t.Fatalf("amount = %q, want 49.99", got)
	}
	if got := entityValue(t, cl, statex.EntityProduct); got != "mouse" {
		t.Fatalf("product = %q, want mouse", got)
	}
}

func TestClassifyEmptyQuery(t *testing.T) {
	t.Parallel()

	_, err := NewKeywordClassifier().Classify(context.Background(), "   ", nil)
	if !errors.Is(err, contractx.ErrClassification) {
		t.Fatalf("Classify(blank) error = %v, want ErrClassification", err)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	t.Parallel()

	const query = "cancel order 9001"
	first := classify(t, query)
	second := classify(t, query)

	if first.Intent != second.Intent || first.Urgency != second.Urgency ||
		first.Confidence != second.Confidence || len(first.Entities) != len(second.Entities) {
		t.Fatalf("classification not stable: %+v vs %+v", first, second)
	}
}
