package model

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrScriptExhausted is returned by ScriptedModel once every step was consumed.
var ErrScriptExhausted = errors.New("scripted model: no more responses")

// Step is one scripted backend reply.
type Step struct {
	Text string
	Err  error

	// Gate, when set, holds the reply until it is closed or the call's
	// context ends.
	Gate <-chan struct{}
}

// ScriptedModel is a deterministic in-memory TextStreamModel useful for tests
// and examples. Each call consumes the next step and records the prompt.
type ScriptedModel struct {
	mu      sync.Mutex
	steps   []Step
	next    int
	prompts []Prompt
	info    Info
}

// NewScriptedModel constructs a ScriptedModel replying with texts in order.
func NewScriptedModel(texts ...string) *ScriptedModel {
	steps := make([]Step, len(texts))
	for i, t := range texts {
		steps[i] = Step{Text: t}
	}
	return NewScriptedModelFromSteps(steps...)
}

// NewScriptedModelFromSteps constructs a ScriptedModel from explicit steps.
func NewScriptedModelFromSteps(steps ...Step) *ScriptedModel {
	return &ScriptedModel{
		steps: steps,
		info: Info{
			Name:              "scripted",
			Provider:          "scripted",
			SupportsStreaming: true,
		},
	}
}

// Append adds further steps to the script.
func (m *ScriptedModel) Append(steps ...Step) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, steps...)
}

// Prompts returns a copy of every prompt received so far.
func (m *ScriptedModel) Prompts() []Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Prompt, len(m.prompts))
	for i, p := range m.prompts {
		out[i] = NewPrompt(p.Messages...)
	}
	return out
}

// Calls returns the number of prompts received.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompt implements TextModel.
func (m *ScriptedModel) Prompt(ctx context.Context, p Prompt) (string, error) {
	step, err := m.take(p)
	if err != nil {
		return "", err
	}
	if step.Gate != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-step.Gate:
		}
	}
	if step.Err != nil {
		return "", step.Err
	}
	return step.Text, nil
}

// PromptStream implements TextStreamModel; the reply is split on spaces.
func (m *ScriptedModel) PromptStream(ctx context.Context, p Prompt) (<-chan string, <-chan error) {
	out := make(chan string, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		text, err := m.Prompt(ctx, p)
		if err != nil {
			errCh <- err
			return
		}
		for i, word := range strings.SplitAfter(text, " ") {
			if word == "" && i > 0 {
				continue
			}
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- word:
			}
		}
	}()

	return out, errCh
}

// Info implements TextModel.
func (m *ScriptedModel) Info() Info { return m.info }

func (m *ScriptedModel) take(p Prompt) (Step, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, NewPrompt(p.Messages...))
	if m.next >= len(m.steps) {
		return Step{}, ErrScriptExhausted
	}
	s := m.steps[m.next]
	m.next++
	return s, nil
}
