package tool

import (
	"context"

	"github.com/hupe1980/dreamer/internal/util"
)

// FunctionTool exposes a plain Go function as a Tool.
//
// Argument validation happens in Registry.Execute, so fn receives arguments
// already checked against parameters. A FunctionTool has no mutable state and
// is safe for concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (string, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit schema.
//
// Example:
//
//	clock := NewFunctionTool(
//	  "clock",
//	  "Returns the current time",
//	  map[string]any{"type": "object", "properties": map[string]any{}},
//	  func(ctx context.Context, _ map[string]any) (string, error) {
//	    return time.Now().Format(time.RFC3339), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (string, error),
) *FunctionTool {
	if parameters == nil {
		parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct; see
// util.CreateSchema for the supported tags.
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (string, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// Name implements Tool.
func (t *FunctionTool) Name() string { return t.name }

// Description implements Tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters implements Tool.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Execute implements Tool.
func (t *FunctionTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return t.fn(ctx, args)
}
