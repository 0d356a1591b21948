package tool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/hupe1980/dreamer/internal/util"
)

// Registry maps tool names to implementations. It is not safe for concurrent
// mutation; the agent registers tools before it starts running.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a registry from tools; duplicate names are rejected.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t. It fails when the name is empty or already taken.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return errors.New("tool: name must not be empty")
	}
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("tool: %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }

// Execute validates inv.Args against the tool schema and runs the tool.
//
// Error semantics:
//
//	unknown tool              -> *ToolError{Code: NOT_FOUND}
//	validation failure        -> *ToolError{Code: VALIDATION_ERROR}
//	*ToolError from the tool  -> forwarded with Tool filled in
//	other error or panic      -> *ToolError{Code: EXECUTION_ERROR}
func (r *Registry) Execute(ctx context.Context, inv Invocation) (result string, err error) {
	t, ok := r.tools[inv.Name]
	if !ok {
		return "", NewToolError(inv.Name, "tool not found", CodeNotFound)
	}

	args := inv.Args
	if args == nil {
		args = map[string]any{}
	}

	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		return "", &ToolError{
			Tool:    inv.Name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Err:     err,
			Details: err,
		}
	}

	defer func() {
		if p := recover(); p != nil {
			result = ""
			err = &ToolError{
				Tool:    inv.Name,
				Message: fmt.Sprintf("panic: %v", p),
				Code:    CodeExecution,
				Details: string(debug.Stack()),
			}
		}
	}()

	result, err = t.Execute(ctx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			if toolErr.Tool == "" {
				toolErr.Tool = inv.Name
			}
			return "", toolErr
		}
		return "", &ToolError{
			Tool:    inv.Name,
			Message: err.Error(),
			Code:    CodeExecution,
			Err:     err,
		}
	}
	return result, nil
}

// Manifest renders one block per tool with its name, description and
// argument names, sorted by name, for inclusion in a system instruction.
func (r *Registry) Manifest() string {
	names := r.Names()
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		t := r.tools[name]
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s: %s", name, t.Description())

		props, _ := t.Parameters()["properties"].(map[string]any)
		if len(props) == 0 {
			continue
		}
		args := make([]string, 0, len(props))
		for arg := range props {
			args = append(args, arg)
		}
		sort.Strings(args)
		fmt.Fprintf(&b, " (args: %s)", strings.Join(args, ", "))
	}
	return b.String()
}
