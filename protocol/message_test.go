package protocol

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		kind Kind
	}{
		{"thought", NewThought("I should check the inbox"), KindThought},
		{"action", NewAction(`{"name":"message_box","args":{}}`), KindAction},
		{"observation", NewObservation("hello there"), KindObservation},
		{"notification", NewNotification("Message from the user!"), KindNotification},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.msg.FullContent())
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind())
			assert.Equal(t, tt.msg.MainContent(), got.MainContent())
			assert.Equal(t, tt.msg.FullContent(), got.FullContent())
		})
	}
}

func TestClassify_TrimsConstructorText(t *testing.T) {
	got, err := Classify(NewThought("  \n spaced out \n").FullContent())
	require.NoError(t, err)
	assert.Equal(t, "spaced out", got.MainContent())
}

func TestClassify_MainContentStripsLeadingWhitespaceOnly(t *testing.T) {
	got, err := Classify("[observation] \n\n  result  ")
	require.NoError(t, err)
	assert.Equal(t, "result  ", got.MainContent())
	assert.Equal(t, "[observation] \n\n  result  ", got.FullContent())
}

func TestClassify_Unrecognized(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n", "hello", "[context]\nx", " [thought]\nleading space", "[THOUGHT]\nx"} {
		msg, err := Classify(raw)
		assert.Nil(t, msg, raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrUnrecognizedTag), raw)

		var perr *ProtocolError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, raw, perr.Raw)
	}
}

func TestClassify_PriorityOrder(t *testing.T) {
	// The tag is only matched as a prefix; later tags in the body are ignored.
	got, err := Classify("[action]\n[thought] not a thought")
	require.NoError(t, err)
	assert.Equal(t, KindAction, got.Kind())
}

func TestIsIncomplete(t *testing.T) {
	tests := []struct {
		text       string
		incomplete bool
	}{
		{"still thinking...", true},
		{"done.", false},
		{"...", true},
		{"trailing dots.. ", false},
		{"", false},
	}

	for _, tt := range tests {
		th, err := ParseThought("[thought]\n" + tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.incomplete, th.IsIncomplete(), tt.text)

		obs, err := ParseObservation("[observation]\n" + tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.incomplete, obs.IsIncomplete(), tt.text)
	}
}

func TestParseVariant_TagMismatch(t *testing.T) {
	_, err := ParseThought("[action]\n{}")
	assert.ErrorIs(t, err, ErrTagMismatch)

	_, err = ParseAction("[thought]\nhmm")
	assert.ErrorIs(t, err, ErrTagMismatch)

	_, err = ParseObservation("")
	assert.ErrorIs(t, err, ErrTagMismatch)

	_, err = ParseNotification("notification")
	assert.ErrorIs(t, err, ErrTagMismatch)

	var perr *ProtocolError
	_, err = ParseNotification("x")
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, NotificationTag, perr.Expected)
}

func TestParseVariant_KeepsRawContent(t *testing.T) {
	a, err := ParseAction("[action] {\"name\":\"x\"}")
	require.NoError(t, err)
	assert.Equal(t, "[action] {\"name\":\"x\"}", a.FullContent())
	assert.Equal(t, "{\"name\":\"x\"}", a.MainContent())
}

func TestContext(t *testing.T) {
	c := NewContext("it is raining")
	assert.Equal(t, "[context]\nit is raining", c.FullContent())
	assert.Equal(t, "it is raining", c.MainContent())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "thought", KindThought.String())
	assert.Equal(t, "action", KindAction.String())
	assert.Equal(t, "observation", KindObservation.String())
	assert.Equal(t, "notification", KindNotification.String())
	assert.Equal(t, "unknown", Kind(42).String())
	assert.Equal(t, "", Kind(42).Tag())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc…", Truncate("abcdef", 3))

	// é occupies bytes 1 and 2; a cut at 2 backs off to the rune start.
	out := Truncate("héllo", 2)
	assert.Equal(t, "h…", out)
	assert.True(t, utf8.ValidString(out))

	out = Truncate(strings.Repeat("日本", 50), 80)
	assert.True(t, utf8.ValidString(out))
	assert.LessOrEqual(t, len(out), 80+len("…"))
}

func TestProtocolError_ValidUTF8(t *testing.T) {
	_, err := Classify(strings.Repeat("ü", 60))
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
}
