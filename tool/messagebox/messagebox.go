// Package messagebox provides the inbox tool through which the agent reads
// messages the user sent it.
package messagebox

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/dreamer/tool"
)

// Name is the tool name the agent invokes.
const Name = "message_box"

// CodeEmpty is the ToolError code returned when no message is pending.
const CodeEmpty = "EMPTY"

// MessageBox buffers inbound user messages until the agent reads them.
// Deliver and Execute may be called from different goroutines.
type MessageBox struct {
	mu      sync.Mutex
	pending []string
	last    string
}

var _ tool.Tool = (*MessageBox)(nil)

// New returns an empty inbox.
func New() *MessageBox { return &MessageBox{} }

// Deliver queues a message for the next read.
func (b *MessageBox) Deliver(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, msg)
}

// Pending returns the number of unread messages.
func (b *MessageBox) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Last returns the most recently read message.
func (b *MessageBox) Last() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Name implements tool.Tool.
func (b *MessageBox) Name() string { return Name }

// Description implements tool.Tool.
func (b *MessageBox) Description() string {
	return "Reads the messages the user sent you since the last read. Use it after a notification about a user message."
}

// Parameters implements tool.Tool.
func (b *MessageBox) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// Execute drains the inbox. Several messages are numbered in arrival order.
func (b *MessageBox) Execute(_ context.Context, _ map[string]any) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		return "", tool.NewToolError(Name, "no new messages", CodeEmpty)
	}

	msgs := b.pending
	b.pending = nil
	b.last = msgs[len(msgs)-1]

	if len(msgs) == 1 {
		return msgs[0], nil
	}

	var sb strings.Builder
	for i, m := range msgs {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, m)
	}
	return sb.String(), nil
}
