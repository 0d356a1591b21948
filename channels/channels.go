// Package channels wires the agent to its host. Create builds three
// independent flows and splits their ends into an AgentSide, consumed by the
// agent loop, and an ExternalSide, consumed by the host application:
//
//   - inbound free-text messages (external → agent)
//   - action requests the agent could not serve itself (agent → external)
//   - metrics mirroring every thread mutation (agent → external)
//
// Flows are FIFO and unbounded by default. There is no ordering across flows.
package channels

import (
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/dreamer/protocol"
)

// Sender is the writing end of a flow. It may be shared by several producers.
type Sender[T any] struct{ q *queue[T] }

// Send enqueues v. It fails with ErrClosed once either end was closed and,
// for a bounded flow with the Reject policy, with ErrFull.
func (s *Sender[T]) Send(v T) error { return s.q.send(v) }

// Close ends the flow. The receiver still drains buffered values.
func (s *Sender[T]) Close() { s.q.closeSend() }

// Receiver is the reading end of a flow.
type Receiver[T any] struct{ q *queue[T] }

// C returns the channel values are delivered on. It is closed once the
// sender closed and the buffer drained, or after Close.
func (r *Receiver[T]) C() <-chan T { return r.q.out }

// Close abandons the flow; buffered values are discarded and further sends fail.
func (r *Receiver[T]) Close() { r.q.closeRecv() }

// Len returns the number of buffered values not yet handed to C.
func (r *Receiver[T]) Len() int { return r.q.len() }

// Dropped returns how many values a bounded flow discarded or rejected.
func (r *Receiver[T]) Dropped() uint64 { return r.q.droppedCount() }

// Metrics mirrors one thread mutation.
type Metrics struct {
	ID      uuid.UUID
	Time    time.Time
	Message protocol.Message
}

// NewMetrics stamps msg with a fresh id and the current time.
func NewMetrics(msg protocol.Message) Metrics {
	return Metrics{ID: uuid.New(), Time: time.Now(), Message: msg}
}

// ActionRequest is an action the agent forwards to the host because no
// registered tool serves it.
type ActionRequest struct {
	ID     uuid.UUID
	Action protocol.Action
	Name   string
	Args   map[string]any
}

// AgentSide holds the ends used by the agent loop.
type AgentSide struct {
	Inbound *Receiver[string]
	Actions *Sender[ActionRequest]
	Metrics *Sender[Metrics]
}

// Close closes the agent's senders and abandons the inbound flow.
func (a *AgentSide) Close() {
	a.Actions.Close()
	a.Metrics.Close()
	a.Inbound.Close()
}

// ExternalSide holds the ends used by the host.
type ExternalSide struct {
	Inbound *Sender[string]
	Actions *Receiver[ActionRequest]
	Metrics *Receiver[Metrics]
}

// Close ends the inbound flow, which lets an idle agent loop exit.
func (e *ExternalSide) Close() {
	e.Inbound.Close()
}

// Options configure the flows built by Create.
type Options struct {
	// Capacity bounds every flow; 0 keeps them unbounded.
	Capacity int
	// Overflow applies when a bounded flow is full.
	Overflow Overflow
}

// Create builds the three flows and partitions their ends.
func Create(optFns ...func(o *Options)) (*AgentSide, *ExternalSide) {
	opts := Options{Overflow: Block}
	for _, fn := range optFns {
		fn(&opts)
	}

	inbound := newQueue[string](opts.Capacity, opts.Overflow)
	actions := newQueue[ActionRequest](opts.Capacity, opts.Overflow)
	metrics := newQueue[Metrics](opts.Capacity, opts.Overflow)

	agent := &AgentSide{
		Inbound: &Receiver[string]{q: inbound},
		Actions: &Sender[ActionRequest]{q: actions},
		Metrics: &Sender[Metrics]{q: metrics},
	}
	external := &ExternalSide{
		Inbound: &Sender[string]{q: inbound},
		Actions: &Receiver[ActionRequest]{q: actions},
		Metrics: &Receiver[Metrics]{q: metrics},
	}
	return agent, external
}
