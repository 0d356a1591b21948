package testutil

import (
	"github.com/hupe1980/dreamer/model"
	"github.com/hupe1980/dreamer/protocol"
)

// PromptBuilder provides a fluent helper for constructing prompts in tests.
// Example:
//
//	p := NewPromptBuilder("be tagged").UserMessage().Thought("hmm...").Build()
//
// Protocol messages become assistant turns carrying their tag, as in a
// flattened thread.
type PromptBuilder struct {
	msgs []model.Message
}

// NewPromptBuilder starts a prompt with a system turn. An empty system
// instruction is omitted.
func NewPromptBuilder(system string) *PromptBuilder {
	b := &PromptBuilder{}
	if system != "" {
		b.msgs = append(b.msgs, model.Message{Role: model.RoleSystem, Content: system})
	}
	return b
}

// Message appends a protocol message as an assistant turn (chainable).
func (b *PromptBuilder) Message(msg protocol.Message) *PromptBuilder {
	b.msgs = append(b.msgs, model.Message{Role: model.RoleAssistant, Content: msg.FullContent()})
	return b
}

// UserMessage appends the notification the agent records for inbound user
// messages (chainable).
func (b *PromptBuilder) UserMessage() *PromptBuilder {
	return b.Message(protocol.NewNotification("Message from the user!"))
}

// Thought appends a thought (chainable).
func (b *PromptBuilder) Thought(text string) *PromptBuilder {
	return b.Message(protocol.NewThought(text))
}

// Action appends an action (chainable).
func (b *PromptBuilder) Action(text string) *PromptBuilder {
	return b.Message(protocol.NewAction(text))
}

// Observation appends an observation (chainable).
func (b *PromptBuilder) Observation(text string) *PromptBuilder {
	return b.Message(protocol.NewObservation(text))
}

// Context appends the context slot turn (chainable).
func (b *PromptBuilder) Context(text string) *PromptBuilder {
	b.msgs = append(b.msgs, model.Message{Role: model.RoleAssistant, Content: protocol.NewContext(text).FullContent()})
	return b
}

// Raw appends an arbitrary turn (chainable).
func (b *PromptBuilder) Raw(role model.Role, content string) *PromptBuilder {
	b.msgs = append(b.msgs, model.Message{Role: role, Content: content})
	return b
}

// Build returns the prompt.
func (b *PromptBuilder) Build() model.Prompt {
	return model.NewPrompt(b.msgs...)
}
