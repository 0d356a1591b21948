// Package thread holds the agent's conversation state: an immutable system
// instruction, an append-only history of protocol messages and an optional
// context slot, flattened on demand into a model.Prompt.
package thread

import (
	"github.com/hupe1980/dreamer/model"
	"github.com/hupe1980/dreamer/protocol"
)

// Thread is the conversation of a single agent. It is not safe for concurrent
// use; the agent loop is its only writer.
type Thread struct {
	system  string
	history []protocol.Message
	context *protocol.Context
}

// New creates an empty thread with the given system instruction.
func New(systemInstruction string) *Thread {
	return &Thread{system: systemInstruction}
}

// PushMessage appends msg to the history.
func (t *Thread) PushMessage(msg protocol.Message) {
	t.history = append(t.history, msg)
}

// UpdateContext replaces the context slot.
func (t *Thread) UpdateContext(ctx protocol.Context) {
	t.context = &ctx
}

// ClearContext empties the context slot.
func (t *Thread) ClearContext() {
	t.context = nil
}

// Prompt flattens the thread without modifying it: the system instruction,
// then every history message as an assistant turn, then the context slot.
func (t *Thread) Prompt() model.Prompt {
	n := 1 + len(t.history)
	if t.context != nil {
		n++
	}

	p := model.Prompt{Messages: make([]model.Message, 0, n)}
	p.Push(model.RoleSystem, t.system)
	for _, m := range t.history {
		p.Push(model.RoleAssistant, m.FullContent())
	}
	if t.context != nil {
		p.Push(model.RoleAssistant, t.context.FullContent())
	}
	return p
}

// IntoPrompt flattens the thread like Prompt and then drops the history and
// context. The system instruction is kept.
func (t *Thread) IntoPrompt() model.Prompt {
	p := t.Prompt()
	t.history = nil
	t.context = nil
	return p
}

// Messages returns a copy of the history.
func (t *Thread) Messages() []protocol.Message {
	return append([]protocol.Message(nil), t.history...)
}

// Len returns the number of history messages.
func (t *Thread) Len() int { return len(t.history) }

// System returns the system instruction.
func (t *Thread) System() string { return t.system }

// Context returns the context slot, if set.
func (t *Thread) Context() (protocol.Context, bool) {
	if t.context == nil {
		return protocol.Context{}, false
	}
	return *t.context, true
}

// Last returns the most recent history message, if any.
func (t *Thread) Last() (protocol.Message, bool) {
	if len(t.history) == 0 {
		return nil, false
	}
	return t.history[len(t.history)-1], true
}
