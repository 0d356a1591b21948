package memories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/dreamer/internal/util"
	"github.com/hupe1980/dreamer/tool"
)

// Name is the tool name the agent invokes.
const Name = "knowledge_base"

// args documents the accepted arguments; the schema is derived from it.
type args struct {
	Op         string `json:"op" description:"Operation to perform" enum:"remember,recall,search,forget"`
	Name       string `json:"name,omitempty" description:"Name of the memory (remember, recall, forget)"`
	Value      string `json:"value,omitempty" description:"Content to store (remember)"`
	Importance int    `json:"importance,omitempty" description:"Higher values surface first in searches (remember)"`
	Query      string `json:"query,omitempty" description:"Text to look for in names and values (search)"`
	Limit      int    `json:"limit,omitempty" description:"Maximum number of search results (search)"`
}

// Tool exposes a Store as the knowledge_base tool.
type Tool struct {
	store  *Store
	schema map[string]any
}

var _ tool.Tool = (*Tool)(nil)

// NewTool wraps store.
func NewTool(store *Store) *Tool {
	return &Tool{store: store, schema: util.CreateSchema(args{})}
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return Name }

// Description implements tool.Tool.
func (t *Tool) Description() string {
	return "Manages your long-term knowledge base. Use op=remember to store a named fact, " +
		"op=recall to read it back, op=search to find facts and op=forget to delete one."
}

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any { return t.schema }

// Execute implements tool.Tool.
func (t *Tool) Execute(ctx context.Context, in map[string]any) (string, error) {
	op, _ := in["op"].(string)
	name, _ := in["name"].(string)

	switch op {
	case "remember":
		value, _ := in["value"].(string)
		if name == "" || value == "" {
			return "", invalid("remember requires name and value")
		}
		e, err := t.store.Remember(ctx, name, value, intArg(in, "importance"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Remembered %q.", e.Name), nil

	case "recall":
		if name == "" {
			return "", invalid("recall requires name")
		}
		e, err := t.store.Recall(ctx, name)
		if errors.Is(err, ErrNotFound) {
			return fmt.Sprintf("Nothing is known about %q.", name), nil
		}
		if err != nil {
			return "", err
		}
		return e.Value, nil

	case "search":
		query, _ := in["query"].(string)
		entries, err := t.store.Search(ctx, query, intArg(in, "limit"))
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "No matching memories.", nil
		}
		var b strings.Builder
		for i, e := range entries {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "- %s: %s", e.Name, e.Value)
		}
		return b.String(), nil

	case "forget":
		if name == "" {
			return "", invalid("forget requires name")
		}
		if err := t.store.Forget(ctx, name); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Sprintf("Nothing is known about %q.", name), nil
			}
			return "", err
		}
		return fmt.Sprintf("Forgot %q.", name), nil
	}

	return "", invalid(fmt.Sprintf("unknown op %q", op))
}

func invalid(msg string) error {
	return tool.NewToolError(Name, msg, tool.CodeValidation)
}

// intArg reads a JSON number argument, defaulting to 0.
func intArg(in map[string]any, key string) int {
	switch v := in[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
