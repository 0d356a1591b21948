package agent

import (
	"errors"
	"fmt"

	"github.com/hupe1980/dreamer/protocol"
)

// ErrAlreadyRunning is reported by a Handle when Run was called twice on the
// same Dreamer.
var ErrAlreadyRunning = errors.New("agent: dreamer is already running")

// BackendError reports a failed backend call. It ends the loop.
type BackendError struct {
	Model string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("agent: backend %s: %v", e.Model, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// ProtocolViolationError reports a well-formed message the backend is not
// allowed to produce, such as an observation or a notification.
type ProtocolViolationError struct {
	Message protocol.Message
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("agent: backend may not produce %s messages: %q",
		e.Message.Kind(), protocol.Truncate(e.Message.FullContent(), 80))
}
