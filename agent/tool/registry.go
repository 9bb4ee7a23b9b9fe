package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"

	contractx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/contract"
	statex "github.com/tanpawarit/Chative-Customer-Support-Orchestration/agent/state"
)

type ArgType string

const (
	TypeString  ArgType = "string"
	TypeNumber  ArgType = "number"
	TypeInteger ArgType = "integer"
	TypeBoolean ArgType = "boolean"
)

type ArgSpec struct {
	Type     ArgType
	Required bool
	Desc     string
}

// Schema declares the arguments a tool accepts. Validation runs before the
// backend is ever touched; a mismatch never reaches it.
type Schema map[string]ArgSpec

func (s Schema) Validate(args map[string]any) error {
	for name, spec := range s {
		v, ok := args[name]
		if !ok {
			if spec.Required {
				return fmt.Errorf("%w: missing required argument %q", contractx.ErrArgument, name)
			}
			continue
		}
		if err := checkType(name, spec.Type, v); err != nil {
			return err
		}
	}
	for name := range args {
		if _, ok := s[name]; !ok {
			return fmt.Errorf("%w: unknown argument %q", contractx.ErrArgument, name)
		}
	}
	return nil
}

func checkType(name string, want ArgType, v any) error {
	switch want {
	case TypeString:
		if _, ok := v.(string); ok {
			return nil
		}
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int64:
			return nil
		}
	case TypeInteger:
		switch n := v.(type) {
		case int, int64:
			return nil
		case float64:
			if n == float64(int64(n)) {
				return nil
			}
		}
	case TypeBoolean:
		if _, ok := v.(bool); ok {
			return nil
		}
	}
	return fmt.Errorf("%w: argument %q must be %s, got %T", contractx.ErrArgument, name, want, v)
}

// RunFunc executes the backend call with already-validated arguments.
type RunFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool is a named, schema-validated operation. Mutating marks operations
// whose failure is safety-critical for the turn.
type Tool struct {
	Name     string
	Desc     string
	Schema   Schema
	Mutating bool
	Run      RunFunc
}

// Registry maps tool names to tools. Steps look tools up by name only and
// never import a backend directly.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t.Name == "" {
			return nil, errors.New("tool name is empty")
		}
		if t.Run == nil {
			return nil, fmt.Errorf("tool %s has no run function", t.Name)
		}
		if _, dup := r.tools[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name: %s", t.Name)
		}
		r.tools[t.Name] = t
	}
	return r, nil
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs one invocation. The returned record is always complete for the
// audit trail; err carries the typed failure for the caller's routing logic.
func (r *Registry) Execute(ctx context.Context, req contractx.ToolRequest) (statex.ToolRecord, error) {
	rec := statex.ToolRecord{Tool: req.Tool, Args: copyArgs(req.Args)}

	t, ok := r.tools[req.Tool]
	if !ok {
		err := fmt.Errorf("%w: %s", contractx.ErrToolNotFound, req.Tool)
		rec.Error = err.Error()
		return rec, err
	}

	if err := t.Schema.Validate(req.Args); err != nil {
		rec.Error = err.Error()
		return rec, err
	}

	if err := ctx.Err(); err != nil {
		rec.Error = err.Error()
		return rec, err
	}

	out, err := t.Run(ctx, req.Args)
	if err != nil {
		rec.Error = err.Error()
		return rec, err
	}

	rec.Result = out
	return rec, nil
}

func copyArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

var _ contractx.ToolExecutor = (*Registry)(nil)
