package protocol

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnrecognizedTag is returned when text starts with none of the known tags.
	ErrUnrecognizedTag = errors.New("unrecognized tag")
	// ErrTagMismatch is returned when text is parsed as a variant whose tag it lacks.
	ErrTagMismatch = errors.New("tag mismatch")
)

// ProtocolError reports text that could not be parsed into a message.
type ProtocolError struct {
	Expected string // Tag that was expected, empty for Classify
	Raw      string // Offending text
	Err      error  // ErrUnrecognizedTag or ErrTagMismatch
}

func (e *ProtocolError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("protocol: expected %s message: %v: %q", e.Expected, e.Err, Truncate(e.Raw, 80))
	}
	return fmt.Sprintf("protocol: %v: %q", e.Err, Truncate(e.Raw, 80))
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// classifyOrder is the priority in which tags are tested.
var classifyOrder = []Kind{KindThought, KindAction, KindObservation, KindNotification}

// Classify inspects the prefix of raw and returns the matching variant holding
// the full raw string.
func Classify(raw string) (Message, error) {
	for _, k := range classifyOrder {
		if !strings.HasPrefix(raw, k.Tag()) {
			continue
		}
		switch k {
		case KindThought:
			return Thought{content: raw}, nil
		case KindAction:
			return Action{content: raw}, nil
		case KindObservation:
			return Observation{content: raw}, nil
		case KindNotification:
			return Notification{content: raw}, nil
		}
	}
	return nil, &ProtocolError{Raw: raw, Err: ErrUnrecognizedTag}
}

// ParseThought parses raw as a thought.
func ParseThought(raw string) (Thought, error) {
	if err := expect(raw, ThoughtTag); err != nil {
		return Thought{}, err
	}
	return Thought{content: raw}, nil
}

// ParseAction parses raw as an action.
func ParseAction(raw string) (Action, error) {
	if err := expect(raw, ActionTag); err != nil {
		return Action{}, err
	}
	return Action{content: raw}, nil
}

// ParseObservation parses raw as an observation.
func ParseObservation(raw string) (Observation, error) {
	if err := expect(raw, ObservationTag); err != nil {
		return Observation{}, err
	}
	return Observation{content: raw}, nil
}

// ParseNotification parses raw as a notification.
func ParseNotification(raw string) (Notification, error) {
	if err := expect(raw, NotificationTag); err != nil {
		return Notification{}, err
	}
	return Notification{content: raw}, nil
}

func expect(raw, tag string) error {
	if strings.HasPrefix(raw, tag) {
		return nil
	}
	return &ProtocolError{Expected: tag, Raw: raw, Err: ErrTagMismatch}
}

// Truncate shortens s to at most n bytes for error messages, backing off to
// a rune boundary, and marks the cut with an ellipsis.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
