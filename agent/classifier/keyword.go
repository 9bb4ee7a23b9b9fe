package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

// Confidence levels assigned by the keyword classifier. Regex extractions are
// near-certain; the default informational call is deliberately weak so the
// CSAT model rewards decisive classifications.
const (
	confidenceExtracted = 0.95
	confidenceKeyword   = 0.9
	confidenceProduct   = 0.8
	confidenceDefault   = 0.6
)

var (
	orderIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`#(\d{4,})`),
		regexp.MustCompile(`[Oo]rder\s*#?(\d{4,})`),
		regexp.MustCompile(`ID\s*#?(\d{4,})`),
	}
	customerIDPattern = regexp.MustCompile(`\b(CUST\d{3,})\b`)
	amountPattern     = regexp.MustCompile(`\$(\d+(?:\.\d{1,2})?)`)
)

var actionKeywords = []string{"cancel", "refund", "return", "modify", "change", "update", "reset"}

var escalationKeywords = []string{
	"speak to manager",
	"talk to human",
	"transfer me",
	"real person",
	"lawyer",
	"legal action",
	"sue",
	"fraud",
	"hacked",
	"unauthorized",
	"security breach",
}

var urgentKeywords = []string{"urgent", "immediately", "right now", "asap", "emergency"}

var negativeKeywords = []string{
	"angry", "frustrated", "terrible", "awful", "horrible", "bad",
	"disappointed", "upset", "hate", "worst", "useless", "broken",
	"damaged", "never", "unacceptable", "ridiculous",
}

var positiveKeywords = []string{
	"great", "excellent", "love", "perfect", "amazing", "wonderful",
	"fantastic", "good", "thank", "appreciate", "satisfied", "happy",
}

var productTerms = []string{"laptop", "headphones", "mouse", "webcam", "keyboard", "dock", "phone case"}

// KeywordClassifier classifies deterministically from keyword and pattern
// matches. It backs the ablation harness, where run-to-run stability matters
// more than nuance, and serves as the degraded path when no model is
// configured.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (c *KeywordClassifier) Classify(ctx context.Context, query string, history []statex.Turn) (statex.Classification, error) {
	if err := ctx.Err(); err != nil {
		return statex.Classification{}, err
	}
	if strings.TrimSpace(query) == "" {
		return statex.Classification{}, fmt.Errorf("%w: query is empty", contractx.ErrClassification)
	}

	lower := strings.ToLower(query)

	cl := statex.Classification{
		Sentiment: sentimentOf(lower),
	}
	cl.Entities = extractEntities(query, lower)

	switch {
	case containsAny(lower, escalationKeywords):
		cl.Intent = statex.IntentUnresolved
		cl.Urgency = statex.UrgencyCritical
		cl.Confidence = confidenceExtracted
	case isStatusLookup(lower, cl):
		cl.Intent = statex.IntentActionRequest
		cl.Urgency = statex.UrgencyMedium
		cl.Confidence = confidenceKeyword
	case containsAny(lower, actionKeywords) && !looksInformational(lower):
		cl.Intent = statex.IntentActionRequest
		cl.Urgency = statex.UrgencyMedium
		cl.Confidence = confidenceKeyword
	default:
		cl.Intent = statex.IntentInformationRequest
		cl.Urgency = statex.UrgencyLow
		cl.Confidence = confidenceDefault
	}

	if cl.Urgency != statex.UrgencyCritical && containsAny(lower, urgentKeywords) {
		cl.Urgency = statex.UrgencyHigh
	}

	if cl.Intent == statex.IntentActionRequest {
		if op, ok := resolveOperation(lower); ok {
			cl.Entities = append(cl.Entities, statex.Entity{
				Name:       statex.EntityOperation,
				Value:      op,
				Confidence: confidenceKeyword,
			})
		}
	}

	return cl, nil
}

// sentimentOf scores the query against the keyword lists. The score is
// (positive - negative) / total; very_negative requires at least two distinct
// negative hits so a single sour word stays merely negative.
func sentimentOf(lower string) statex.Sentiment {
	var pos, neg int
	for _, w := range positiveKeywords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeKeywords {
		if strings.Contains(lower, w) {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return statex.SentimentNeutral
	}
	score := float64(pos-neg) / float64(total)

	switch {
	case score <= -0.6 && neg >= 2:
		return statex.SentimentVeryNegative
	case score < -0.3:
		return statex.SentimentNegative
	case score > 0.3:
		return statex.SentimentPositive
	default:
		return statex.SentimentNeutral
	}
}

func extractEntities(query, lower string) []statex.Entity {
	var out []statex.Entity

	for _, p := range orderIDPatterns {
		if m := p.FindStringSubmatch(query); m != nil {
			out = append(out, statex.Entity{Name: statex.EntityOrderID, Value: m[1], Confidence: confidenceExtracted})
			break
		}
	}
	if m := customerIDPattern.FindStringSubmatch(query); m != nil {
		out = append(out, statex.Entity{Name: statex.EntityCustomerID, Value: m[1], Confidence: confidenceExtracted})
	}
	if m := amountPattern.FindStringSubmatch(query); m != nil {
		out = append(out, statex.Entity{Name: statex.EntityAmount, Value: m[1], Confidence: confidenceExtracted})
	}
	for _, term := range productTerms {
		if strings.Contains(lower, term) {
			out = append(out, statex.Entity{Name: statex.EntityProduct, Value: term, Confidence: confidenceProduct})
			break
		}
	}

	return out
}

// isStatusLookup treats "where is order 12345" style queries as action
// requests: they need a backend lookup, not a knowledge answer.
func isStatusLookup(lower string, cl statex.Classification) bool {
	if !hasStatusKeyword(lower) {
		return false
	}
	for _, e := range cl.Entities {
		if e.Name == statex.EntityOrderID {
			return true
		}
	}
	return false
}

func hasStatusKeyword(lower string) bool {
	return strings.Contains(lower, "status") ||
		strings.Contains(lower, "track") ||
		strings.Contains(lower, "where is")
}

// looksInformational catches policy and how-to phrasings that mention an
// action verb without requesting one ("what is your return policy").
func looksInformational(lower string) bool {
	return strings.Contains(lower, "policy") ||
		strings.Contains(lower, "what is") ||
		strings.Contains(lower, "do you") ||
		strings.HasPrefix(lower, "how ")
}

// resolveOperation maps the dominant action keyword to a catalog tool name.
// Order matters: password and address beat the generic update/change/modify
// keywords they co-occur with.
func resolveOperation(lower string) (string, bool) {
	switch {
	case strings.Contains(lower, "password"):
		return "reset_customer_password", true
	case strings.Contains(lower, "address"):
		return "update_customer_address", true
	case strings.Contains(lower, "cancel"):
		return "cancel_order", true
	case strings.Contains(lower, "refund") && hasStatusKeyword(lower):
		return "check_refund_status", true
	case strings.Contains(lower, "refund"), strings.Contains(lower, "return"):
		return "initiate_refund", true
	case strings.Contains(lower, "modify"), strings.Contains(lower, "change"), strings.Contains(lower, "update"):
		return "modify_order", true
	case hasStatusKeyword(lower):
		return "check_order_status", true
	}
	return "", false
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

var _ contractx.Classifier = (*KeywordClassifier)(nil)
