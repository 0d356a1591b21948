package agent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/dreamer/channels"
	"github.com/hupe1980/dreamer/logging"
	"github.com/hupe1980/dreamer/model"
	"github.com/hupe1980/dreamer/protocol"
	"github.com/hupe1980/dreamer/telemetry"
	"github.com/hupe1980/dreamer/thread"
	"github.com/hupe1980/dreamer/tool"
	"github.com/hupe1980/dreamer/tool/messagebox"
)

// Dreamer owns the backend, the thread, the tool registry and the idle flag.
// A Dreamer runs at most once.
type Dreamer struct {
	model    model.TextModel
	thread   *thread.Thread
	tools    *tool.Registry
	inbox    *messagebox.MessageBox
	limiter  *callLimiter
	opts     Options
	logger   logging.Logger
	recorder *telemetry.Recorder

	idle    bool
	running atomic.Bool
}

// New builds an idle Dreamer around m. The built-in message_box tool is
// registered first; a caller tool with the same name is rejected.
func New(m model.TextModel, optFns ...func(o *Options)) (*Dreamer, error) {
	if m == nil {
		return nil, errors.New("agent: model must not be nil")
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxConsecutiveCalls < 0 {
		return nil, fmt.Errorf("agent: max consecutive calls must not be negative, got %d", opts.MaxConsecutiveCalls)
	}

	inbox := messagebox.New()
	reg, err := tool.NewRegistry(inbox)
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	for _, t := range opts.Tools {
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("agent: %w", err)
		}
	}

	system, err := renderInstruction(opts.SystemInstruction, reg, opts.DescribeTools)
	if err != nil {
		return nil, fmt.Errorf("agent: render system instruction: %w", err)
	}

	return &Dreamer{
		model:    m,
		thread:   thread.New(system),
		tools:    reg,
		inbox:    inbox,
		limiter:  newCallLimiter(opts.MaxConsecutiveCalls),
		opts:     opts,
		logger:   logging.With(opts.Logger, "model", m.Info().Name),
		recorder: opts.Recorder,
		idle:     true,
	}, nil
}

// SystemInstruction returns the rendered system instruction.
func (d *Dreamer) SystemInstruction() string { return d.thread.System() }

// Tools returns the registered tool names, message_box first.
func (d *Dreamer) Tools() []string { return d.tools.Names() }

// Messages returns a copy of the thread history. It must not be called while
// the loop is running; use the metrics flow to observe a live agent.
func (d *Dreamer) Messages() []protocol.Message { return d.thread.Messages() }

// Handle tracks a running loop.
type Handle struct {
	done chan struct{}
	err  error
}

// Wait blocks until the loop ended and returns its error. A loop that ended
// because the inbound flow closed returns nil; a cancelled context yields
// ctx.Err().
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Done is closed once the loop ended.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Run starts the loop on its own goroutine. On exit the loop closes the
// action and metrics senders and abandons the inbound flow, so host readers
// observe end of stream.
func (d *Dreamer) Run(ctx context.Context, side *channels.AgentSide) *Handle {
	h := &Handle{done: make(chan struct{})}

	if !d.running.CompareAndSwap(false, true) {
		h.err = ErrAlreadyRunning
		close(h.done)
		return h
	}

	go func() {
		defer close(h.done)
		defer side.Close()

		h.err = d.loop(ctx, side)
		if h.err != nil {
			d.logger.Error("agent.stopped", "error", h.err)
		} else {
			d.logger.Info("agent.stopped")
		}
	}()

	return h
}
