package tool

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Invocation is the decoded main content of an action message.
type Invocation struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ParseInvocation decodes {"name": "...", "args": {...}}. A missing args
// object decodes to an empty map. Failures are *ToolError with CodeParse.
func ParseInvocation(text string) (Invocation, error) {
	raw := stripFence(strings.TrimSpace(text))

	var inv Invocation
	if err := json.Unmarshal([]byte(raw), &inv); err != nil {
		return Invocation{}, &ToolError{
			Message: fmt.Sprintf("invalid tool invocation: %v", err),
			Code:    CodeParse,
			Err:     err,
		}
	}
	if inv.Name == "" {
		return Invocation{}, &ToolError{
			Message: `invalid tool invocation: missing "name"`,
			Code:    CodeParse,
		}
	}
	if inv.Args == nil {
		inv.Args = map[string]any{}
	}
	return inv, nil
}

// String renders the invocation back into its wire form.
func (inv Invocation) String() string {
	args := inv.Args
	if args == nil {
		args = map[string]any{}
	}
	b, err := json.Marshal(Invocation{Name: inv.Name, Args: args})
	if err != nil {
		return fmt.Sprintf(`{"name":%q,"args":{}}`, inv.Name)
	}
	return string(b)
}

// stripFence removes a surrounding ``` or ```json code fence some backends
// put around JSON.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.HasPrefix(strings.TrimSpace(s[:i]), "{") {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
