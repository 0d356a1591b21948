package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dreamer/channels"
	"github.com/hupe1980/dreamer/model"
	"github.com/hupe1980/dreamer/protocol"
	"github.com/hupe1980/dreamer/tool"
	"github.com/hupe1980/dreamer/tool/messagebox"
)

const waitTimeout = 2 * time.Second

type harness struct {
	t        *testing.T
	model    *model.ScriptedModel
	dreamer  *Dreamer
	external *channels.ExternalSide
	handle   *Handle
	cancel   context.CancelFunc
}

func start(t *testing.T, m *model.ScriptedModel, optFns ...func(o *Options)) *harness {
	t.Helper()

	agentSide, external := channels.Create()
	d, err := New(m, optFns...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &harness{
		t:        t,
		model:    m,
		dreamer:  d,
		external: external,
		handle:   d.Run(ctx, agentSide),
		cancel:   cancel,
	}
}

func (h *harness) send(msg string) {
	h.t.Helper()
	require.NoError(h.t, h.external.Inbound.Send(msg))
}

func (h *harness) nextMetric() channels.Metrics {
	h.t.Helper()
	select {
	case m, ok := <-h.external.Metrics.C():
		require.True(h.t, ok, "metrics flow closed")
		return m
	case <-time.After(waitTimeout):
		h.t.Fatal("timed out waiting for a metric")
		return channels.Metrics{}
	}
}

func (h *harness) wait() error {
	h.t.Helper()
	select {
	case <-h.handle.Done():
		return h.handle.Wait()
	case <-time.After(waitTimeout):
		h.t.Fatal("timed out waiting for the loop to stop")
		return nil
	}
}

// finish closes the inbound flow and waits for the loop to drain.
func (h *harness) finish() error {
	h.t.Helper()
	h.external.Close()
	return h.wait()
}

func drain[T any](ch <-chan T) []T {
	var out []T
	for v := range ch {
		out = append(out, v)
	}
	return out
}

func kinds(metrics []channels.Metrics) []protocol.Kind {
	out := make([]protocol.Kind, len(metrics))
	for i, m := range metrics {
		out[i] = m.Message.Kind()
	}
	return out
}

func echoTool() tool.Tool {
	return tool.NewFunctionTool(
		"echo",
		"Echoes the text argument",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{"text": map[string]any{"type": "string"}},
			"required":   []string{"text"},
		},
		func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprint(args["text"]), nil
		},
	)
}

func action(name, args string) string {
	return fmt.Sprintf("[action]\n{\"name\":%q,\"args\":%s}", name, args)
}

func TestNew(t *testing.T) {
	t.Run("nil model", func(t *testing.T) {
		_, err := New(nil)
		assert.Error(t, err)
	})

	t.Run("duplicate message_box", func(t *testing.T) {
		_, err := New(model.NewScriptedModel(), func(o *Options) {
			o.Tools = []tool.Tool{messagebox.New()}
		})
		assert.Error(t, err)
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := New(model.NewScriptedModel(), func(o *Options) {
			o.MaxConsecutiveCalls = -1
		})
		assert.Error(t, err)
	})

	t.Run("registers tools after message_box", func(t *testing.T) {
		d, err := New(model.NewScriptedModel(), func(o *Options) {
			o.Tools = []tool.Tool{echoTool()}
		})
		require.NoError(t, err)
		assert.Equal(t, []string{messagebox.Name, "echo"}, d.Tools())
		assert.Contains(t, d.SystemInstruction(), "- echo: Echoes the text argument")
		assert.Contains(t, d.SystemInstruction(), "- message_box:")
		assert.NotContains(t, d.SystemInstruction(), "{{")
	})
}

func TestDreamer_InboundNotifiesBeforeBackendCall(t *testing.T) {
	gate := make(chan struct{})
	m := model.NewScriptedModelFromSteps(model.Step{Text: "[thought]\nok", Gate: gate})
	h := start(t, m)

	h.send("hello")

	first := h.nextMetric()
	require.Equal(t, protocol.KindNotification, first.Message.Kind())
	assert.Equal(t, UserNotification, first.Message.MainContent())

	assert.Eventually(t, func() bool { return m.Calls() == 1 }, waitTimeout, 5*time.Millisecond)
	close(gate)

	require.NoError(t, h.finish())
	rest := drain(h.external.Metrics.C())
	assert.Equal(t, []protocol.Kind{protocol.KindThought}, kinds(rest))

	prompt := m.Prompts()[0]
	require.Equal(t, 2, prompt.Len())
	assert.Equal(t, model.RoleSystem, prompt.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, prompt.Messages[1].Role)
	assert.Equal(t, "[notification]\nMessage from the user!", prompt.Messages[1].Content)
}

func TestDreamer_IncompleteThoughtCallsAgain(t *testing.T) {
	m := model.NewScriptedModel("[thought]\nlet me think...", "[thought]\ndone")
	h := start(t, m)

	h.send("hello")
	require.NoError(t, h.finish())

	assert.Equal(t, 2, m.Calls())
	assert.Equal(t, []protocol.Kind{
		protocol.KindNotification,
		protocol.KindThought,
		protocol.KindThought,
	}, kinds(drain(h.external.Metrics.C())))

	second := m.Prompts()[1]
	require.Equal(t, 3, second.Len())
	assert.Equal(t, "[thought]\nlet me think...", second.Messages[2].Content)
}

func TestDreamer_CompleteThoughtGoesIdle(t *testing.T) {
	m := model.NewScriptedModel("[thought]\ndone", "[thought]\nsecond episode")
	h := start(t, m)

	h.send("one")
	assert.Equal(t, protocol.KindNotification, h.nextMetric().Message.Kind())
	assert.Equal(t, protocol.KindThought, h.nextMetric().Message.Kind())
	assert.Equal(t, 1, m.Calls())

	h.send("two")
	require.NoError(t, h.finish())
	assert.Equal(t, 2, m.Calls())
}

func TestDreamer_UnknownToolForwardsActionRequest(t *testing.T) {
	m := model.NewScriptedModel(action("send_message", `{"text":"hi"}`))
	h := start(t, m)

	h.send("hello")
	require.NoError(t, h.finish())

	assert.Equal(t, 1, m.Calls())
	assert.Equal(t, []protocol.Kind{protocol.KindNotification, protocol.KindAction}, kinds(drain(h.external.Metrics.C())))

	reqs := drain(h.external.Actions.C())
	require.Len(t, reqs, 1)
	assert.Equal(t, "send_message", reqs[0].Name)
	assert.Equal(t, "hi", reqs[0].Args["text"])
	assert.Contains(t, reqs[0].Action.MainContent(), `"send_message"`)
	assert.NotEqual(t, uuid.Nil, reqs[0].ID)
}

func TestDreamer_ToolObservation(t *testing.T) {
	tests := []struct {
		name      string
		policy    AfterObservation
		script    []string
		wantCalls int
		wantKinds []protocol.Kind
	}{
		{
			name:      "stay busy",
			policy:    StayBusy,
			script:    []string{action("echo", `{"text":"pong"}`), "[thought]\nfinished"},
			wantCalls: 2,
			wantKinds: []protocol.Kind{
				protocol.KindNotification,
				protocol.KindAction,
				protocol.KindObservation,
				protocol.KindThought,
			},
		},
		{
			name:      "go idle",
			policy:    GoIdle,
			script:    []string{action("echo", `{"text":"pong"}`)},
			wantCalls: 1,
			wantKinds: []protocol.Kind{
				protocol.KindNotification,
				protocol.KindAction,
				protocol.KindObservation,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := model.NewScriptedModel(tt.script...)
			h := start(t, m, func(o *Options) {
				o.Tools = []tool.Tool{echoTool()}
				o.AfterObservation = tt.policy
			})

			h.send("hello")
			require.NoError(t, h.finish())

			metrics := drain(h.external.Metrics.C())
			assert.Equal(t, tt.wantKinds, kinds(metrics))
			assert.Equal(t, tt.wantCalls, m.Calls())
			assert.Equal(t, "pong", metrics[2].Message.MainContent())
			assert.Empty(t, drain(h.external.Actions.C()))
		})
	}
}

func TestDreamer_ToolFailureGoesIdle(t *testing.T) {
	m := model.NewScriptedModel(action("echo", `{}`))
	h := start(t, m, func(o *Options) {
		o.Tools = []tool.Tool{echoTool()}
	})

	h.send("hello")
	require.NoError(t, h.finish())

	assert.Equal(t, 1, m.Calls())
	assert.Equal(t, []protocol.Kind{protocol.KindNotification, protocol.KindAction}, kinds(drain(h.external.Metrics.C())))
}

func TestDreamer_MalformedActionGoesIdle(t *testing.T) {
	m := model.NewScriptedModel("[action]\nnot json")
	h := start(t, m)

	h.send("hello")
	require.NoError(t, h.finish())

	assert.Equal(t, 1, m.Calls())
	assert.Equal(t, []protocol.Kind{protocol.KindNotification, protocol.KindAction}, kinds(drain(h.external.Metrics.C())))
	assert.Empty(t, drain(h.external.Actions.C()))
}

func TestDreamer_MessageBoxReadsUserMessage(t *testing.T) {
	m := model.NewScriptedModel(action(messagebox.Name, `{}`), "[thought]\nThe user said hello")
	h := start(t, m)

	h.send("hello")
	require.NoError(t, h.finish())

	metrics := drain(h.external.Metrics.C())
	require.Len(t, metrics, 4)
	assert.Equal(t, protocol.KindObservation, metrics[2].Message.Kind())
	assert.Equal(t, "hello", metrics[2].Message.MainContent())

	second := m.Prompts()[1]
	last := second.Messages[second.Len()-1]
	assert.Equal(t, "[observation]\nhello", last.Content)
}

func TestDreamer_InboundWhileBusy(t *testing.T) {
	gate := make(chan struct{})
	m := model.NewScriptedModelFromSteps(model.Step{Text: "[thought]\nok", Gate: gate})
	h := start(t, m)

	h.send("first")
	assert.Equal(t, protocol.KindNotification, h.nextMetric().Message.Kind())
	require.Eventually(t, func() bool { return m.Calls() == 1 }, waitTimeout, 5*time.Millisecond)

	h.send("second")
	assert.Equal(t, protocol.KindNotification, h.nextMetric().Message.Kind())

	close(gate)
	require.NoError(t, h.finish())
	assert.Equal(t, 1, m.Calls())

	msgs := h.dreamer.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, protocol.KindNotification, msgs[0].Kind())
	assert.Equal(t, protocol.KindNotification, msgs[1].Kind())
	assert.Equal(t, protocol.KindThought, msgs[2].Kind())
	assert.Equal(t, 2, h.dreamer.inbox.Pending())
}

func TestDreamer_BackendError(t *testing.T) {
	boom := errors.New("boom")
	m := model.NewScriptedModelFromSteps(model.Step{Err: boom})
	h := start(t, m)

	h.send("hello")
	err := h.wait()

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "scripted", backendErr.Model)
	assert.ErrorIs(t, err, boom)

	// The loop closed its senders on exit.
	assert.Len(t, drain(h.external.Metrics.C()), 1)
	assert.ErrorIs(t, h.external.Inbound.Send("late"), channels.ErrClosed)
}

func TestDreamer_ProtocolViolations(t *testing.T) {
	for _, reply := range []string{"[observation]\nfake", "[notification]\nfake"} {
		t.Run(reply, func(t *testing.T) {
			h := start(t, model.NewScriptedModel(reply))
			h.send("hello")

			var violation *ProtocolViolationError
			require.ErrorAs(t, h.wait(), &violation)
			assert.Contains(t, violation.Error(), violation.Message.Kind().String()+" messages")
			assert.Contains(t, violation.Error(), `"`+strings.ReplaceAll(reply, "\n", `\n`)+`"`)
		})
	}
}

func TestDreamer_UntaggedReplyIsFatal(t *testing.T) {
	h := start(t, model.NewScriptedModel("Sure! Here is my answer."))
	h.send("hello")

	var protoErr *protocol.ProtocolError
	require.ErrorAs(t, h.wait(), &protoErr)
	assert.ErrorIs(t, protoErr, protocol.ErrUnrecognizedTag)
}

func TestDreamer_ReplyIsTrimmed(t *testing.T) {
	m := model.NewScriptedModel("\n\n  [thought]\nok  \n")
	h := start(t, m)

	h.send("hello")
	require.NoError(t, h.finish())

	msgs := h.dreamer.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "[thought]\nok", msgs[1].FullContent())
}

func TestDreamer_Streaming(t *testing.T) {
	m := model.NewScriptedModel("[thought]\nhello streaming world")
	h := start(t, m, func(o *Options) { o.Stream = true })

	h.send("hello")
	require.NoError(t, h.finish())

	metrics := drain(h.external.Metrics.C())
	require.Len(t, metrics, 2)
	assert.Equal(t, "hello streaming world", metrics[1].Message.MainContent())
}

func TestDreamer_MaxConsecutiveCalls(t *testing.T) {
	m := model.NewScriptedModel("[thought]\na...", "[thought]\nb...", "[thought]\nc...", "[thought]\nnext episode")
	h := start(t, m, func(o *Options) { o.MaxConsecutiveCalls = 2 })

	h.send("one")
	for i := 0; i < 3; i++ {
		h.nextMetric()
	}
	assert.Never(t, func() bool { return m.Calls() > 2 }, 50*time.Millisecond, 5*time.Millisecond)

	// A new message starts a new episode.
	h.send("two")
	require.NoError(t, h.finish())
	assert.Equal(t, 4, m.Calls())
}

func TestDreamer_CancelWhileIdle(t *testing.T) {
	h := start(t, model.NewScriptedModel())
	h.cancel()
	assert.ErrorIs(t, h.wait(), context.Canceled)
}

func TestDreamer_CancelWhileBusy(t *testing.T) {
	gate := make(chan struct{})
	m := model.NewScriptedModelFromSteps(model.Step{Text: "[thought]\nnever", Gate: gate})
	h := start(t, m)

	h.send("hello")
	require.Eventually(t, func() bool { return m.Calls() == 1 }, waitTimeout, 5*time.Millisecond)

	h.cancel()
	assert.ErrorIs(t, h.wait(), context.Canceled)
}

func TestDreamer_InboundClosedWhileIdle(t *testing.T) {
	h := start(t, model.NewScriptedModel())
	require.NoError(t, h.finish())
	assert.Empty(t, drain(h.external.Metrics.C()))
}

func TestDreamer_RunTwice(t *testing.T) {
	m := model.NewScriptedModel()
	h := start(t, m)

	agentSide, _ := channels.Create()
	second := h.dreamer.Run(context.Background(), agentSide)
	assert.ErrorIs(t, second.Wait(), ErrAlreadyRunning)

	require.NoError(t, h.finish())
}

func TestRenderInstruction(t *testing.T) {
	reg, err := tool.NewRegistry(messagebox.New(), echoTool())
	require.NoError(t, err)

	t.Run("default", func(t *testing.T) {
		text, err := renderInstruction("", reg, true)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(text, "You are Dreamer"))
		assert.Contains(t, text, "- echo:")
	})

	t.Run("custom without placeholder", func(t *testing.T) {
		text, err := renderInstruction("Be brief.", reg, true)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(text, "Be brief.\n\n## Tools\n\n"))
		assert.Contains(t, text, "- message_box:")
	})

	t.Run("custom with placeholder", func(t *testing.T) {
		text, err := renderInstruction("Tools:\n{{.tools}}\nGo.", reg, true)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(text, "Tools:\n- message_box:"))
		assert.True(t, strings.HasSuffix(text, "\nGo."))
		assert.NotContains(t, text, "## Tools")
	})

	t.Run("describe disabled", func(t *testing.T) {
		text, err := renderInstruction("Be brief.", reg, false)
		require.NoError(t, err)
		assert.Equal(t, "Be brief.", text)

		text, err = renderInstruction("Tools: [{{.tools}}]", reg, false)
		require.NoError(t, err)
		assert.Equal(t, "Tools: [{{.tools}}]", text)

		text, err = renderInstruction("", reg, false)
		require.NoError(t, err)
		assert.NotContains(t, text, "{{")
		assert.NotContains(t, text, "- message_box:")
	})

	t.Run("caller braces kept verbatim", func(t *testing.T) {
		for _, in := range []string{
			"Fill {{.user}} from context.",
			"Greet the user as {{name}}.",
			"Unclosed {{.tools",
		} {
			text, err := renderInstruction(in, reg, false)
			require.NoError(t, err)
			assert.Equal(t, in, text)

			text, err = renderInstruction(in, reg, true)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(text, in+"\n\n## Tools\n\n"), text)
		}
	})
}

func TestNew_SystemInstructionWithBraces(t *testing.T) {
	const instruction = "Greet the user as {{name}}. Fill {{.user}} from context."

	d, err := New(model.NewScriptedModel(), func(o *Options) {
		o.SystemInstruction = instruction
		o.DescribeTools = false
	})
	require.NoError(t, err)
	assert.Equal(t, instruction, d.SystemInstruction())
}

func TestParseAfterObservation(t *testing.T) {
	p, err := ParseAfterObservation("")
	require.NoError(t, err)
	assert.Equal(t, StayBusy, p)

	p, err = ParseAfterObservation("go_idle")
	require.NoError(t, err)
	assert.Equal(t, GoIdle, p)
	assert.Equal(t, "go_idle", p.String())

	_, err = ParseAfterObservation("sometimes")
	assert.Error(t, err)
}

func TestCallLimiter(t *testing.T) {
	l := newCallLimiter(2)
	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	assert.Equal(t, 0, l.Remaining())
	assert.Error(t, l.Increment())

	l.Reset()
	assert.Equal(t, 0, l.Count())
	assert.Equal(t, 2, l.Remaining())

	unlimited := newCallLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, unlimited.Increment())
	}
	assert.Equal(t, -1, unlimited.Remaining())
}
