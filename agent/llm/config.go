package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
	geminix "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/gemini"
	openrouterx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/openrouter"
)

type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderGemini     Provider = "gemini"
)

// Config selects the chat-model provider and the models per step role.
// Triage, Action, and Escalation use the primary model; Knowledge and
// Follow-Up use the cheaper secondary model when one is set.
type Config struct {
	Provider string `envconfig:"PROVIDER" split_words:"true" default:"openrouter"`

	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	PrimaryModel       string        `envconfig:"PRIMARY_MODEL" split_words:"true" required:"true"`
	SecondaryModel     string        `envconfig:"SECONDARY_MODEL" split_words:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	TriageModel       string  `envconfig:"TRIAGE_MODEL" split_words:"true"`
	TriageTemperature float32 `envconfig:"TRIAGE_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidationFailed)
	}
	if strings.TrimSpace(c.PrimaryModel) == "" {
		return fmt.Errorf("%w: primary model is required", contractx.ErrValidationFailed)
	}
	switch c.provider() {
	case ProviderOpenRouter, ProviderGemini:
		return nil
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidationFailed, c.Provider)
	}
}

func (c Config) provider() Provider {
	p := Provider(strings.ToLower(strings.TrimSpace(c.Provider)))
	if p == "" {
		return ProviderOpenRouter
	}
	return p
}

func (c Config) modelFor(step statex.StepName) (string, float32) {
	modelName := strings.TrimSpace(c.PrimaryModel)
	temp := c.Temperature

	switch step {
	case statex.StepKnowledge, statex.StepFollowUp:
		if v := strings.TrimSpace(c.SecondaryModel); v != "" {
			modelName = v
		}
	case statex.StepTriage:
		if v := strings.TrimSpace(c.TriageModel); v != "" {
			modelName = v
		}
		if c.TriageTemperature >= 0 {
			temp = c.TriageTemperature
		}
	}

	return modelName, temp
}

func (c Config) OpenRouterFor(step statex.StepName) openrouterx.Config {
	modelName, temp := c.modelFor(step)
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

func (c Config) GeminiFor(step statex.StepName) geminix.Config {
	modelName, temp := c.modelFor(step)
	return geminix.Config{
		APIKey:      strings.TrimSpace(c.APIKey),
		Model:       modelName,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: temp,
	}
}

// BuildChatModel constructs the chat model for a step on the configured
// provider.
func (c Config) BuildChatModel(ctx context.Context, step statex.StepName) (einomodel.BaseChatModel, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.provider() {
	case ProviderGemini:
		cfg := c.GeminiFor(step)
		return cfg.New(ctx)
	default:
		cfg := c.OpenRouterFor(step)
		return cfg.New(ctx)
	}
}
