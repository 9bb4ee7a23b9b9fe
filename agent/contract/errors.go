package contract

import (
	"errors"
	"fmt"

	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

var (
	// ErrClassification means the triage collaborator failed; routing cannot
	// proceed, so the turn escalates immediately without retry.
	ErrClassification = errors.New("classification failed")

	// ErrRetrieval means the retrieval backend is unavailable. Knowledge
	// degrades to a no-context answer; no results is not an error.
	ErrRetrieval = errors.New("retrieval backend unavailable")

	// ErrArgument means tool arguments failed schema validation. The call
	// never reaches the backend.
	ErrArgument = errors.New("tool arguments rejected")

	// ErrToolNotFound means the registry has no tool under the requested name.
	ErrToolNotFound = errors.New("tool not found")

	// Backend failure variants returned through tool execution.
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidState     = errors.New("resource state forbids operation")
	ErrValidationFailed = errors.New("backend rejected request")

	// ErrRoutingLoop means a step would run twice in one turn. Fatal for the
	// turn; never retried.
	ErrRoutingLoop = errors.New("routing loop detected")

	// ErrModelInvoke and ErrSchemaViolation cover LLM-backed collaborators.
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
)

// StepError wraps a collaborator failure with the step that raised it. The
// orchestrator inspects the cause to decide whether the turn can continue.
type StepError struct {
	Step statex.StepName
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func NewStepError(step statex.StepName, err error) *StepError {
	return &StepError{Step: step, Err: err}
}
