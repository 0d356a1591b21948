package model

import (
	"context"
	"strings"
)

// Role identifies the author of a prompt turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged turn of a prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is an ordered sequence of turns handed to a backend.
type Prompt struct {
	Messages []Message `json:"messages"`
}

// NewPrompt builds a prompt from the given turns.
func NewPrompt(msgs ...Message) Prompt {
	return Prompt{Messages: append([]Message(nil), msgs...)}
}

// Push appends a turn.
func (p *Prompt) Push(role Role, content string) {
	p.Messages = append(p.Messages, Message{Role: role, Content: content})
}

// Pop removes and returns the last turn. ok is false for an empty prompt.
func (p *Prompt) Pop() (msg Message, ok bool) {
	if len(p.Messages) == 0 {
		return Message{}, false
	}
	msg = p.Messages[len(p.Messages)-1]
	p.Messages = p.Messages[:len(p.Messages)-1]
	return msg, true
}

// Len returns the number of turns.
func (p Prompt) Len() int { return len(p.Messages) }

// String renders the prompt for debugging, one "role: content" block per turn.
func (p Prompt) String() string {
	var b strings.Builder
	for i, m := range p.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// Info contains metadata about a model implementation.
type Info struct {
	Name              string `json:"name"`
	Provider          string `json:"provider"` // "openai", "anthropic", "ollama", "scripted"
	SupportsStreaming bool   `json:"supports_streaming"`
}

// TextModel is the minimal interface the agent requires to drive generation.
type TextModel interface {
	// Prompt returns the complete response to p.
	Prompt(ctx context.Context, p Prompt) (string, error)

	// Info returns information about the model implementation.
	Info() Info
}

// TextStreamModel is a TextModel that can also deliver its response in chunks.
// Both channels are closed when generation ends; at most one error is sent.
type TextStreamModel interface {
	TextModel

	PromptStream(ctx context.Context, p Prompt) (<-chan string, <-chan error)
}

// Collect drains a stream into a single string. It returns the first error
// received on errs, or ctx.Err() if ctx ends first.
func Collect(ctx context.Context, chunks <-chan string, errs <-chan error) (string, error) {
	var b strings.Builder
	for chunks != nil || errs != nil {
		select {
		case <-ctx.Done():
			return b.String(), ctx.Err()
		case c, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			b.WriteString(c)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return b.String(), err
			}
		}
	}
	return b.String(), nil
}
