package agent

import (
	"fmt"

	"github.com/hupe1980/dreamer/logging"
	"github.com/hupe1980/dreamer/telemetry"
	"github.com/hupe1980/dreamer/tool"
)

// AfterObservation decides the state the loop enters once a tool result was
// appended to the thread.
type AfterObservation int

const (
	// StayBusy calls the backend again so it can react to the observation.
	StayBusy AfterObservation = iota
	// GoIdle waits for the next user message.
	GoIdle
)

// String returns the config spelling of the policy.
func (a AfterObservation) String() string {
	switch a {
	case StayBusy:
		return "stay_busy"
	case GoIdle:
		return "go_idle"
	default:
		return "unknown"
	}
}

// ParseAfterObservation parses "stay_busy" (or "") and "go_idle".
func ParseAfterObservation(s string) (AfterObservation, error) {
	switch s {
	case "", "stay_busy":
		return StayBusy, nil
	case "go_idle":
		return GoIdle, nil
	default:
		return StayBusy, fmt.Errorf("unknown after-observation policy %q", s)
	}
}

// UserNotification is the notification text appended for every inbound
// user message.
const UserNotification = "Message from the user!"

// Options configures a Dreamer.
type Options struct {
	// SystemInstruction is the first prompt turn. Empty selects
	// DefaultInstruction. The text is used verbatim except for a literal
	// {{.tools}} marker, replaced by the tool manifest when DescribeTools is set.
	SystemInstruction string

	// Tools are registered next to the built-in message_box.
	Tools []tool.Tool

	// Stream consumes the backend through PromptStream when it implements
	// model.TextStreamModel. Replies are still classified whole.
	Stream bool

	AfterObservation AfterObservation

	// MaxConsecutiveCalls caps backend calls per episode, i.e. between two
	// inbound messages. 0 means unlimited.
	MaxConsecutiveCalls int

	// DescribeTools renders the tool manifest into the system instruction.
	DescribeTools bool

	Logger   logging.Logger
	Recorder *telemetry.Recorder
}

func defaultOptions() Options {
	return Options{
		AfterObservation: StayBusy,
		DescribeTools:    true,
		Logger:           logging.NoOpLogger{},
	}
}
