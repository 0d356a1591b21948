// Package shell is the terminal host for a Dreamer: it feeds lines from an
// input stream to the agent and prints what the agent says and does.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/dreamer/agent"
	"github.com/hupe1980/dreamer/channels"
	"github.com/hupe1980/dreamer/logging"
	"github.com/hupe1980/dreamer/protocol"
)

// Printer serializes writes from the host goroutines and the agent's tools.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPrinter wraps out.
func NewPrinter(out io.Writer) *Printer { return &Printer{out: out} }

// Printf writes one formatted line.
func (p *Printer) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
	if !strings.HasSuffix(format, "\n") {
		fmt.Fprintln(p.out)
	}
}

// Options configures a Session.
type Options struct {
	// Verbose prints every thread mutation, not only the agent's replies.
	Verbose bool

	// Message, when set, is sent once and the session ends as soon as the
	// agent is idle again. Input is not read.
	Message string

	// ChannelOptions configure the flows between the session and the agent,
	// for example a bounded capacity.
	ChannelOptions []func(o *channels.Options)

	Logger logging.Logger
}

// Session wires a Dreamer to a terminal.
type Session struct {
	dreamer *agent.Dreamer
	printer *Printer
	opts    Options
}

// New creates a session. Replies reach the user through tools that write to
// printer, typically the send_message tool.
func New(d *agent.Dreamer, printer *Printer, optFns ...func(o *Options)) *Session {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Session{dreamer: d, printer: printer, opts: opts}
}

// Run drives the agent until the input ends, the loop fails or ctx is done.
// The lines "exit" and "/quit" end the input. Cancellation is not an error.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	agentSide, external := channels.Create(s.opts.ChannelOptions...)

	g, gctx := errgroup.WithContext(ctx)
	h := s.dreamer.Run(gctx, agentSide)

	g.Go(func() error {
		err := h.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		for m := range external.Metrics.C() {
			s.printMetric(m)
		}
		return nil
	})

	g.Go(func() error {
		for req := range external.Actions.C() {
			s.opts.Logger.Warn("shell.action.unhandled", "tool", req.Name, "request_id", req.ID.String())
			s.printer.Printf("! the agent called an unknown tool: %s", req.Name)
		}
		return nil
	})

	g.Go(func() error {
		defer external.Close()
		if s.opts.Message != "" {
			return external.Inbound.Send(s.opts.Message)
		}
		return s.pumpInput(gctx, h, in, external)
	})

	return g.Wait()
}

// pumpInput forwards lines until the input ends. Reading happens on a
// separate goroutine because a blocked Read cannot be interrupted.
func (s *Session) pumpInput(ctx context.Context, h *agent.Handle, in io.Reader, external *channels.ExternalSide) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-h.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "exit", "/quit":
				return nil
			}
			if err := external.Inbound.Send(line); err != nil {
				if errors.Is(err, channels.ErrClosed) {
					return nil
				}
				return err
			}
		}
	}
}

func (s *Session) printMetric(m channels.Metrics) {
	if !s.opts.Verbose {
		return
	}
	msg := m.Message
	if msg.Kind() == protocol.KindNotification {
		return
	}
	s.printer.Printf("  %s %s", msg.Kind().Tag(), oneLine(msg.MainContent()))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
