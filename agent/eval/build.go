package eval

import (
	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/agents/baseline"
	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/agents/steps"
	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/classifier"
	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/retrieve"
	toolx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/tool"
)

// DefaultBuild wires the deterministic study stack: keyword classifier,
// embedded FAQ index, and simulated tool backends reseeded for every query.
// The classifier and the index are read-only, so one instance serves all
// engines.
func DefaultBuild(stepCfg steps.Config) (BuildFunc, error) {
	faq, err := retrieve.NewFAQIndex()
	if err != nil {
		return nil, err
	}
	keyword := classifier.NewKeywordClassifier()

	return func(cfg Configuration) (contractx.TurnRunner, error) {
		registry, err := toolx.BuildDefaultRegistry(nil)
		if err != nil {
			return nil, err
		}

		if cfg.Baseline {
			return baseline.New(keyword, faq, registry, baseline.Config{
				EntityThreshold: stepCfg.EntityThreshold,
				RetrievalTopK:   stepCfg.RetrievalTopK,
				Timeout:         stepCfg.Timeout,
			})
		}

		built, err := steps.BuildAll(steps.Deps{Classifier: keyword, Retriever: faq, Tools: registry}, stepCfg)
		if err != nil {
			return nil, err
		}
		return orchestrator.New(built, cfg.Routes(), orchestrator.Config{EntityThreshold: stepCfg.EntityThreshold})
	}, nil
}
