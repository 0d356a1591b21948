// Package anthropic provides a model.TextModel backed by the Anthropic
// Messages API.
//
// The Messages API requires alternating user/assistant turns that start with a
// user turn, while an agent thread is mostly assistant-authored. Consecutive
// turns of the same role are therefore merged, and a short user turn is
// inserted where the conversation would otherwise start or end with the
// assistant. A trailing assistant turn would be treated as a prefill.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/dreamer/model"
)

// ContinuePrompt is the user turn inserted around assistant-only threads.
const ContinuePrompt = "Continue with the next message."

// Options configure the Anthropic model adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
	BaseURL     string

	// RequestOptions are passed to the client as-is.
	RequestOptions []option.RequestOption
}

// Model implements model.TextModel using the Anthropic Messages API.
type Model struct {
	client *anthropic.Client
	opts   Options
}

var _ model.TextModel = (*Model)(nil)

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

// NewModel creates a new Anthropic model. Without APIKey the client reads
// ANTHROPIC_API_KEY.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	clientOpts := append([]option.RequestOption{}, opts.RequestOptions...)
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(clientOpts...)
	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Prompt implements model.TextModel. Text blocks of the reply are joined.
func (m *Model) Prompt(ctx context.Context, p model.Prompt) (string, error) {
	system, messages := buildMessages(p)

	params := anthropic.MessageNewParams{
		Model:       m.opts.Model,
		Messages:    messages,
		MaxTokens:   m.opts.MaxTokens,
		Temperature: anthropic.Float(m.opts.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic api error: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.AsText().Text)
		}
	}
	return b.String(), nil
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:     string(m.opts.Model),
		Provider: "anthropic",
	}
}

type turn struct {
	role  model.Role
	parts []string
}

// mergeTurns separates system text and folds consecutive turns of the same
// role. The result starts and ends with a user turn.
func mergeTurns(p model.Prompt) (system []string, turns []turn) {
	for _, msg := range p.Messages {
		if msg.Role == model.RoleSystem {
			if msg.Content != "" {
				system = append(system, msg.Content)
			}
			continue
		}
		role := msg.Role
		if role != model.RoleAssistant {
			role = model.RoleUser
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].parts = append(turns[n-1].parts, msg.Content)
			continue
		}
		turns = append(turns, turn{role: role, parts: []string{msg.Content}})
	}

	if len(turns) == 0 || turns[0].role != model.RoleUser {
		turns = append([]turn{{role: model.RoleUser, parts: []string{ContinuePrompt}}}, turns...)
	}
	if turns[len(turns)-1].role != model.RoleUser {
		turns = append(turns, turn{role: model.RoleUser, parts: []string{ContinuePrompt}})
	}
	return system, turns
}

func buildMessages(p model.Prompt) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	system, turns := mergeTurns(p)

	var systemBlocks []anthropic.TextBlockParam
	for _, s := range system {
		systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: s})
	}

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(strings.Join(t.parts, "\n\n"))
		if t.role == model.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	return systemBlocks, messages
}
