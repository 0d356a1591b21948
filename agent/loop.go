package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/dreamer/channels"
	"github.com/hupe1980/dreamer/logging"
	"github.com/hupe1980/dreamer/model"
	"github.com/hupe1980/dreamer/protocol"
	"github.com/hupe1980/dreamer/tool"
)

type callResult struct {
	text string
	err  error
	dur  time.Duration
}

func (d *Dreamer) loop(ctx context.Context, side *channels.AgentSide) error {
	inbound := side.Inbound.C()

	// results is non-nil while a backend call is in flight.
	var results <-chan callResult

	d.logger.Info("agent.started", "tools", d.tools.Names())

	for {
		if d.idle {
			if inbound == nil {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case msg, ok := <-inbound:
				if !ok {
					return nil
				}
				if err := d.handleInbound(ctx, side, msg); err != nil {
					return err
				}
			}
			continue
		}

		if results == nil {
			if err := d.limiter.Increment(); err != nil {
				d.logger.Warn("agent.episode.limited", "error", err)
				d.setIdle(true)
				continue
			}
			results = d.startCall(ctx)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-results:
			results = nil
			logging.LogModelCall(d.logger, d.model.Info().Name, len(res.text), res.dur, res.err)
			d.recorder.RecordModelCall(ctx, d.model.Info().Name, res.dur, res.err)
			if res.err != nil {
				return &BackendError{Model: d.model.Info().Name, Err: res.err}
			}
			if err := d.handleResponse(ctx, side, res.text); err != nil {
				return err
			}
		case msg, ok := <-inbound:
			if !ok {
				// Finish the episode, then exit once idle.
				inbound = nil
				continue
			}
			if err := d.handleInbound(ctx, side, msg); err != nil {
				return err
			}
		}
	}
}

// startCall runs the backend on a snapshot of the thread. The result channel
// is buffered so the helper goroutine never blocks on an abandoned call.
func (d *Dreamer) startCall(ctx context.Context) <-chan callResult {
	prompt := d.thread.Prompt()
	out := make(chan callResult, 1)

	go func() {
		start := time.Now()
		text, err := d.prompt(ctx, prompt)
		out <- callResult{text: text, err: err, dur: time.Since(start)}
	}()

	return out
}

func (d *Dreamer) prompt(ctx context.Context, p model.Prompt) (string, error) {
	if d.opts.Stream {
		if sm, ok := d.model.(model.TextStreamModel); ok {
			chunks, errs := sm.PromptStream(ctx, p)
			return model.Collect(ctx, chunks, errs)
		}
	}
	return d.model.Prompt(ctx, p)
}

func (d *Dreamer) handleInbound(ctx context.Context, side *channels.AgentSide, msg string) error {
	d.inbox.Deliver(msg)
	if err := d.push(ctx, side, protocol.NewNotification(UserNotification)); err != nil {
		return err
	}
	d.limiter.Reset()
	d.setIdle(false)
	return nil
}

func (d *Dreamer) handleResponse(ctx context.Context, side *channels.AgentSide, raw string) error {
	msg, err := protocol.Classify(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("agent: classify backend reply: %w", err)
	}

	switch m := msg.(type) {
	case protocol.Thought:
		if err := d.push(ctx, side, m); err != nil {
			return err
		}
		d.setIdle(!m.IsIncomplete())
		return nil
	case protocol.Action:
		return d.handleAction(ctx, side, m)
	default:
		return &ProtocolViolationError{Message: msg}
	}
}

func (d *Dreamer) handleAction(ctx context.Context, side *channels.AgentSide, action protocol.Action) error {
	if err := d.push(ctx, side, action); err != nil {
		return err
	}

	inv, err := tool.ParseInvocation(action.MainContent())
	if err != nil {
		d.logger.Warn("agent.action.malformed", "error", err)
		d.setIdle(true)
		return nil
	}

	if _, ok := d.tools.Lookup(inv.Name); !ok {
		req := channels.ActionRequest{
			ID:     uuid.New(),
			Action: action,
			Name:   inv.Name,
			Args:   inv.Args,
		}
		if err := side.Actions.Send(req); err != nil {
			return fmt.Errorf("agent: forward action %s: %w", inv.Name, err)
		}
		d.logger.Info("agent.action.forwarded", "tool", inv.Name, "request_id", req.ID.String())
		d.setIdle(true)
		return nil
	}

	start := time.Now()
	result, err := d.tools.Execute(ctx, inv)
	logging.LogToolCall(d.logger, inv.Name, time.Since(start), err)
	d.recorder.RecordToolCall(ctx, inv.Name, err)
	if err != nil {
		d.setIdle(true)
		return nil
	}

	if err := d.push(ctx, side, protocol.NewObservation(result)); err != nil {
		return err
	}
	d.setIdle(d.opts.AfterObservation == GoIdle)
	return nil
}

// push appends msg to the thread and mirrors it on the metrics flow.
func (d *Dreamer) push(ctx context.Context, side *channels.AgentSide, msg protocol.Message) error {
	d.thread.PushMessage(msg)
	d.recorder.RecordMessage(ctx, msg.Kind().String())
	if err := side.Metrics.Send(channels.NewMetrics(msg)); err != nil {
		return fmt.Errorf("agent: send metrics: %w", err)
	}
	return nil
}

func (d *Dreamer) setIdle(idle bool) {
	if d.idle == idle {
		return
	}
	d.idle = idle
	state := "busy"
	if idle {
		state = "idle"
	}
	d.logger.Debug("agent.state", "state", state, "thread_len", d.thread.Len())
}
