package protocol

import (
	"strings"
)

// Tags identifying a message's role in the protocol.
const (
	ThoughtTag      = "[thought]"
	ActionTag       = "[action]"
	ObservationTag  = "[observation]"
	NotificationTag = "[notification]"
	ContextTag      = "[context]"
)

// separator sits between the tag and the main content in constructed messages.
const separator = "\n"

// incompleteSuffix marks a thought or observation that is still in progress.
const incompleteSuffix = "..."

// Kind enumerates the message variants.
type Kind int

const (
	// KindThought is the agent's self-talk.
	KindThought Kind = iota
	// KindAction is a tool invocation request.
	KindAction
	// KindObservation is the result of an executed action.
	KindObservation
	// KindNotification is an external event such as a user message.
	KindNotification
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindThought:
		return "thought"
	case KindAction:
		return "action"
	case KindObservation:
		return "observation"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Tag returns the literal tag of the kind.
func (k Kind) Tag() string {
	switch k {
	case KindThought:
		return ThoughtTag
	case KindAction:
		return ActionTag
	case KindObservation:
		return ObservationTag
	case KindNotification:
		return NotificationTag
	default:
		return ""
	}
}

// Message is one entry of a thread. The set of implementations is closed:
// Thought, Action, Observation and Notification.
type Message interface {
	// Kind reports the variant.
	Kind() Kind
	// FullContent returns the message verbatim, tag included.
	FullContent() string
	// MainContent returns the text after the tag with leading whitespace removed.
	MainContent() string

	isMessage()
}

// Thought is produced by the agent to show its reasoning. A thought whose
// main content ends with "..." is incomplete and will be continued.
type Thought struct{ content string }

// Action is produced by the agent to request a side effect. Its main content
// is a tool invocation ({"name": ..., "args": {...}}).
type Action struct{ content string }

// Observation is produced by the runtime with the result of an action.
type Observation struct{ content string }

// Notification is produced by the runtime to tell the agent about an event.
type Notification struct{ content string }

// NewThought builds a tagged thought from text.
func NewThought(text string) Thought { return Thought{content: compose(ThoughtTag, text)} }

// NewAction builds a tagged action from text.
func NewAction(text string) Action { return Action{content: compose(ActionTag, text)} }

// NewObservation builds a tagged observation from text.
func NewObservation(text string) Observation {
	return Observation{content: compose(ObservationTag, text)}
}

// NewNotification builds a tagged notification from text.
func NewNotification(text string) Notification {
	return Notification{content: compose(NotificationTag, text)}
}

// Kind implements Message.
func (Thought) Kind() Kind { return KindThought }

// FullContent implements Message.
func (m Thought) FullContent() string { return m.content }

// MainContent implements Message.
func (m Thought) MainContent() string { return mainContent(m.content, ThoughtTag) }

// IsIncomplete reports whether the thought ends with "...".
func (m Thought) IsIncomplete() bool { return strings.HasSuffix(m.MainContent(), incompleteSuffix) }

func (Thought) isMessage() {}

// Kind implements Message.
func (Action) Kind() Kind { return KindAction }

// FullContent implements Message.
func (m Action) FullContent() string { return m.content }

// MainContent implements Message.
func (m Action) MainContent() string { return mainContent(m.content, ActionTag) }

func (Action) isMessage() {}

// Kind implements Message.
func (Observation) Kind() Kind { return KindObservation }

// FullContent implements Message.
func (m Observation) FullContent() string { return m.content }

// MainContent implements Message.
func (m Observation) MainContent() string { return mainContent(m.content, ObservationTag) }

// IsIncomplete reports whether the observation ends with "...".
func (m Observation) IsIncomplete() bool {
	return strings.HasSuffix(m.MainContent(), incompleteSuffix)
}

func (Observation) isMessage() {}

// Kind implements Message.
func (Notification) Kind() Kind { return KindNotification }

// FullContent implements Message.
func (m Notification) FullContent() string { return m.content }

// MainContent implements Message.
func (m Notification) MainContent() string { return mainContent(m.content, NotificationTag) }

func (Notification) isMessage() {}

// Context is the transient context slot of a thread. It is not part of the
// Message union: backends never author it and Classify never returns it.
type Context struct{ content string }

// NewContext builds a tagged context message.
func NewContext(text string) Context { return Context{content: compose(ContextTag, text)} }

// FullContent returns the context verbatim, tag included.
func (c Context) FullContent() string { return c.content }

// MainContent returns the context text without its tag.
func (c Context) MainContent() string { return mainContent(c.content, ContextTag) }

func compose(tag, text string) string {
	return tag + separator + strings.TrimSpace(text)
}

// mainContent assumes content starts with tag; parsers and constructors
// guarantee it.
func mainContent(content, tag string) string {
	if len(content) < len(tag) {
		return ""
	}
	return strings.TrimLeft(content[len(tag):], " \t\r\n")
}
