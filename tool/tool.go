// Package tool implements the capabilities the agent can invoke from an
// action message. A tool has a name, a description shown to the backend, a
// minimal JSON schema for its arguments and an Execute method producing the
// text that becomes the next observation.
package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/dreamer/internal/util"
)

// Tool is a named capability producing a textual result or failing.
//
// Tool implementations should:
//   - Provide a snake_case name that is unique within a Registry
//   - Describe when the backend should use them
//   - Return *ToolError for failures the backend should learn from
type Tool interface {
	// Name returns the unique identifier used in {"name": ...} invocations.
	Name() string

	// Description returns a human-readable description for the tool manifest.
	Description() string

	// Parameters returns a JSON schema describing the accepted arguments.
	// Arguments are validated against it before Execute is called.
	Parameters() map[string]any

	// Execute runs the tool with JSON-decoded arguments.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeParse      = "PARSE_ERROR"
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
)

// ToolError represents errors that occur while resolving or executing a tool.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Err     error  `json:"-"`                 // Underlying cause, if any
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
