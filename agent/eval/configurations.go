// Package eval replays a fixed query set through configurable step subsets
// and aggregates comparable metrics per configuration. All configurations
// share the query set and the metric definitions; only the step composition
// varies, so differences in the aggregates are attributable to the steps a
// configuration removed.
package eval

import (
	"github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/agents/orchestrator"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

// Configuration names one engine composition under study. Steps lists the
// enabled steps, empty meaning all five. Fallbacks reroutes routing targets
// that the subset excludes. Baseline swaps the step engine for the one-pass
// agent; Steps and Fallbacks are ignored for it.
type Configuration struct {
	Name      string
	Steps     []statex.StepName
	Fallbacks map[statex.StepName]statex.StepName
	Baseline  bool
}

// Routes converts the configuration into the orchestrator's routing table.
// Route validity is enforced where the engine is built: a subset that leaves
// a primary target unreachable or drops triage or escalation fails there,
// attributed to this configuration by the harness.
func (c Configuration) Routes() orchestrator.Routes {
	return orchestrator.Routes{Enabled: c.Steps, Fallbacks: c.Fallbacks}
}

// DefaultConfigurations is the standard ablation ladder: the full pipeline,
// then one capability removed at a time, then the one-pass baseline.
func DefaultConfigurations() []Configuration {
	return []Configuration{
		{Name: "Full System (5 steps)"},
		{
			Name:  "No Follow-Up (4 steps)",
			Steps: []statex.StepName{statex.StepTriage, statex.StepKnowledge, statex.StepAction, statex.StepEscalation},
		},
		{
			Name:  "Action Only (3 steps)",
			Steps: []statex.StepName{statex.StepTriage, statex.StepAction, statex.StepEscalation},
			Fallbacks: map[statex.StepName]statex.StepName{
				statex.StepKnowledge: statex.StepEscalation,
			},
		},
		{
			Name:  "Knowledge Only (3 steps)",
			Steps: []statex.StepName{statex.StepTriage, statex.StepKnowledge, statex.StepEscalation},
			Fallbacks: map[statex.StepName]statex.StepName{
				statex.StepAction: statex.StepEscalation,
			},
		},
		{Name: "Baseline (single agent)", Baseline: true},
	}
}
