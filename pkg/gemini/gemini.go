package gemini

import (
	"context"
	"fmt"
	"strings"

	geminimodel "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

type Config struct {
	APIKey         string  `envconfig:"API_KEY" split_words:"true" required:"true"`
	BaseURL        string  `envconfig:"BASE_URL" split_words:"true"`
	Model          string  `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxTokens      int     `envconfig:"MAX_TOKENS" split_words:"true" default:"2000"`
	Temperature    float32 `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	ThinkingBudget int32   `envconfig:"THINKING_BUDGET" split_words:"true" default:"0"`
}

// New builds a Gemini chat model for the classifier graph.
func (c *Config) New(ctx context.Context) (model.BaseChatModel, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(c.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if trimmed := strings.TrimSpace(c.BaseURL); trimmed != "" {
		clientCfg.HTTPOptions.BaseURL = trimmed
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	maxTokens := c.MaxTokens
	temperature := c.Temperature
	conf := &geminimodel.Config{
		Client:      client,
		Model:       strings.TrimSpace(c.Model),
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
	if c.ThinkingBudget > 0 {
		conf.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(c.ThinkingBudget),
		}
	}

	m, err := geminimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("gemini: create chat model: %w", err)
	}
	return m, nil
}
