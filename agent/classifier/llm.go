package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
	logx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger"
)

type classifierLLMOutput struct {
	Intent     string      `json:"intent"`
	Entities   []llmEntity `json:"entities,omitempty"`
	Sentiment  string      `json:"sentiment"`
	Urgency    string      `json:"urgency"`
	Confidence float64     `json:"confidence"`
}

type llmEntity struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// LLMClassifier classifies through a chat model compiled into a structured
// graph: prompt template -> model -> JSON parse. Model failures and schema
// violations degrade to the fallback classifier instead of failing the turn,
// unless the fallback is disabled.
type LLMClassifier struct {
	runner   compose.Runnable[map[string]any, classifierLLMOutput]
	fallback contractx.Classifier
}

// LLMOption customizes LLMClassifier construction.
type LLMOption func(*LLMClassifier)

// WithFallback overrides the degraded-path classifier. Pass nil to surface
// model and schema errors directly.
func WithFallback(c contractx.Classifier) LLMOption {
	return func(l *LLMClassifier) {
		l.fallback = c
	}
}

func NewLLMClassifier(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, opts ...LLMOption) (*LLMClassifier, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: classifier system prompt", contractx.ErrPromptMissing)
	}

	runner, err := compileClassifierGraph(ctx, chatModel, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}

	c := &LLMClassifier{
		runner:   runner,
		fallback: NewKeywordClassifier(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *LLMClassifier) Classify(ctx context.Context, query string, history []statex.Turn) (statex.Classification, error) {
	if strings.TrimSpace(query) == "" {
		return statex.Classification{}, fmt.Errorf("%w: query is empty", contractx.ErrClassification)
	}

	payload := map[string]any{
		"query":   query,
		"history": summarizeHistory(history),
	}
	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return statex.Classification{}, fmt.Errorf("%w: marshal classifier payload: %v", contractx.ErrClassification, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return c.degrade(ctx, query, history, fmt.Errorf("%w: classifier invoke: %v", contractx.ErrModelInvoke, err))
	}

	cl, err := normalizeClassification(out)
	if err != nil {
		return c.degrade(ctx, query, history, err)
	}
	return cl, nil
}

func (c *LLMClassifier) degrade(ctx context.Context, query string, history []statex.Turn, cause error) (statex.Classification, error) {
	if c.fallback == nil {
		return statex.Classification{}, cause
	}
	logx.Warn().Err(cause).Msg("llm classification degraded to keyword fallback")
	return c.fallback.Classify(ctx, query, history)
}

// normalizeClassification validates the model output against the closed label
// sets. Intent and overall confidence must be exact; sentiment and urgency
// fall back to neutral/medium; entity confidences are capped into [0,1].
func normalizeClassification(out classifierLLMOutput) (statex.Classification, error) {
	intent, ok := parseIntent(out.Intent)
	if !ok {
		return statex.Classification{}, fmt.Errorf("%w: unknown intent %q", contractx.ErrSchemaViolation, out.Intent)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return statex.Classification{}, fmt.Errorf("%w: confidence %v outside [0,1]", contractx.ErrSchemaViolation, out.Confidence)
	}

	cl := statex.Classification{
		Intent:     intent,
		Sentiment:  parseSentiment(out.Sentiment),
		Urgency:    parseUrgency(out.Urgency),
		Confidence: out.Confidence,
	}

	for _, e := range out.Entities {
		name := strings.TrimSpace(e.Name)
		value := strings.TrimSpace(e.Value)
		if name == "" || value == "" {
			continue
		}
		conf := e.Confidence
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		cl.Entities = append(cl.Entities, statex.Entity{Name: name, Value: value, Confidence: conf})
	}

	return cl, nil
}

func parseIntent(s string) (statex.Intent, bool) {
	switch statex.Intent(strings.ToLower(strings.TrimSpace(s))) {
	case statex.IntentInformationRequest:
		return statex.IntentInformationRequest, true
	case statex.IntentActionRequest:
		return statex.IntentActionRequest, true
	case statex.IntentUnresolved:
		return statex.IntentUnresolved, true
	}
	return "", false
}

func parseSentiment(s string) statex.Sentiment {
	switch statex.Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case statex.SentimentPositive:
		return statex.SentimentPositive
	case statex.SentimentNegative:
		return statex.SentimentNegative
	case statex.SentimentVeryNegative:
		return statex.SentimentVeryNegative
	case statex.SentimentNeutral:
		return statex.SentimentNeutral
	}
	return statex.SentimentNeutral
}

func parseUrgency(s string) statex.Urgency {
	switch statex.Urgency(strings.ToLower(strings.TrimSpace(s))) {
	case statex.UrgencyLow:
		return statex.UrgencyLow
	case statex.UrgencyMedium:
		return statex.UrgencyMedium
	case statex.UrgencyHigh:
		return statex.UrgencyHigh
	case statex.UrgencyCritical:
		return statex.UrgencyCritical
	}
	return statex.UrgencyMedium
}

func summarizeHistory(history []statex.Turn) []map[string]string {
	out := make([]map[string]string, 0, len(history))
	for _, t := range history {
		out = append(out, map[string]string{
			"role": string(t.Role),
			"text": t.Text,
		})
	}
	return out
}

var _ contractx.Classifier = (*LLMClassifier)(nil)
