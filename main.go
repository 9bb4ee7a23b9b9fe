package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/agents/steps"
	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/classifier"
	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/handoff"
	llmx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/llm"
	promptx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/prompt"
	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/retrieve"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
	toolx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/tool"
	configx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/config"
	_ "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger/autoload"
	qstashx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/qstash"
	redisx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/redis"
)

// AppConfig selects the optional live integrations. With everything off the
// demo runs fully offline: keyword classifier, embedded FAQ index, and
// simulated tool backends.
type AppConfig struct {
	UseLLMClassifier bool          `envconfig:"USE_LLM_CLASSIFIER"`
	UseRedisStore    bool          `envconfig:"USE_REDIS_STORE"`
	UseQStashHandoff bool          `envconfig:"USE_QSTASH_HANDOFF"`
	HandoffURL       string        `envconfig:"HANDOFF_URL"`
	StoreTTL         time.Duration `envconfig:"STORE_TTL" default:"720h"`
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("")

	faq, err := retrieve.NewFAQIndex()
	if err != nil {
		log.Fatalf("Failed to load FAQ index: %v", err)
	}
	registry, err := toolx.BuildDefaultRegistry(nil)
	if err != nil {
		log.Fatalf("Failed to build tool registry: %v", err)
	}

	built, err := steps.BuildAll(steps.Deps{
		Classifier: buildClassifier(ctx, appCfg),
		Retriever:  faq,
		Tools:      registry,
	}, steps.Config{})
	if err != nil {
		log.Fatalf("Failed to build steps: %v", err)
	}

	svc, err := orchestrator.New(built, orchestrator.Routes{}, orchestrator.Config{}, engineOptions(ctx, appCfg)...)
	if err != nil {
		log.Fatalf("Failed to build orchestrator: %v", err)
	}

	scenarios := []struct {
		description string
		query       string
	}{
		{"Return policy question", "What is your return policy?"},
		{"Order cancellation with an order id", "Please cancel order #12345, I ordered the wrong size"},
		{"Shipment status lookup", "Where is order #67890?"},
		{"Refund for a charged amount", "I need a refund of $49.99 for order #12345"},
		{"Password reset for a known account", "Reset the password for account CUST001"},
		{"Product availability question", "Do you sell wireless headphones?"},
		{"Escalation demand", "This is fraud, I want to speak to manager right now"},
	}

	conversationID := fmt.Sprintf("demo-%d", time.Now().Unix())
	var history []statex.Turn

	for i, sc := range scenarios {
		fmt.Printf("\nTurn %d: %s\n", i+1, sc.description)
		fmt.Printf("Customer: %s\n", sc.query)

		var conv *statex.Conversation
		if appCfg.UseRedisStore {
			conv, err = svc.HandleMessage(ctx, conversationID, sc.query)
		} else {
			conv, err = svc.ProcessTurn(ctx, sc.query, history)
		}
		if err != nil {
			log.Fatalf("Turn %d failed: %v", i+1, err)
		}
		history = append(history,
			statex.Turn{Role: statex.RoleUser, Text: sc.query},
			statex.Turn{Role: statex.RoleAssistant, Text: conv.TerminalResponse},
		)

		fmt.Printf("Agent: %s\n", conv.TerminalResponse)
		fmt.Printf("[resolution=%s escalated=%t steps=%v]\n", conv.Resolution, conv.Escalated, conv.Visited)
		fmt.Println(strings.Repeat("-", 60))
	}

	fmt.Println("\nAll demo turns completed")
}

// buildClassifier returns the keyword classifier unless the LLM path is
// switched on, in which case the keyword classifier becomes its degraded-mode
// fallback.
func buildClassifier(ctx context.Context, appCfg *AppConfig) contractx.Classifier {
	keyword := classifier.NewKeywordClassifier()
	if !appCfg.UseLLMClassifier {
		return keyword
	}

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	chatModel, err := llmCfg.BuildChatModel(ctx, statex.StepTriage)
	if err != nil {
		log.Fatalf("Failed to build chat model: %v", err)
	}
	cls, err := classifier.NewLLMClassifier(ctx, chatModel, promptx.LoadPromptSet().Classifier, classifier.WithFallback(keyword))
	if err != nil {
		log.Fatalf("Failed to build llm classifier: %v", err)
	}
	return cls
}

func engineOptions(ctx context.Context, appCfg *AppConfig) []orchestrator.Option {
	var opts []orchestrator.Option

	if appCfg.UseRedisStore {
		redisCfg := configx.MustNew[redisx.Config]("REDIS")
		rdb, err := redisCfg.New(ctx)
		if err != nil {
			log.Fatalf("Failed to initialise Redis client: %v", err)
		}
		opts = append(opts, orchestrator.WithStore(statex.NewRedisStore(rdb, appCfg.StoreTTL)))
	}

	if appCfg.UseQStashHandoff {
		qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
		notifier, err := handoff.NewQStashNotifier(qstashx.MustNew(*qstashCfg), appCfg.HandoffURL)
		if err != nil {
			log.Fatalf("Failed to build handoff notifier: %v", err)
		}
		opts = append(opts, orchestrator.WithNotifier(notifier))
	}

	return opts
}
