package memories

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dreamer/tool"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RememberRecall(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	e, err := s.Remember(ctx, "user.name", "Ada", 5)
	require.NoError(t, err)
	assert.Equal(t, "user.name", e.Name)

	got, err := s.Recall(ctx, "user.name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Value)
	assert.Equal(t, 5, got.Importance)
	assert.Equal(t, e.ID, got.ID)

	updated, err := s.Remember(ctx, "user.name", "Ada Lovelace", 7)
	require.NoError(t, err)
	assert.Equal(t, e.ID, updated.ID)

	got, err = s.Recall(ctx, "user.name")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Value)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_RecallMissing(t *testing.T) {
	_, err := newTestStore(t).Recall(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Remember(ctx, "pet", "a cat called Mochi", 1)
	require.NoError(t, err)
	_, err = s.Remember(ctx, "city", "lives in Lisbon", 9)
	require.NoError(t, err)
	_, err = s.Remember(ctx, "discount", "100% off", 0)
	require.NoError(t, err)

	found, err := s.Search(ctx, "cat", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "pet", found[0].Name)

	all, err := s.Search(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "city", all[0].Name)

	pct, err := s.Search(ctx, "%", 10)
	require.NoError(t, err)
	require.Len(t, pct, 1)
	assert.Equal(t, "discount", pct[0].Name)

	limited, err := s.Search(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_Forget(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Remember(ctx, "k", "v", 0)
	require.NoError(t, err)
	require.NoError(t, s.Forget(ctx, "k"))
	assert.ErrorIs(t, s.Forget(ctx, "k"), ErrNotFound)
}

func TestStore_FilePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.Remember(ctx, "k", "v", 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Recall(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got.Value)
}

func TestTool_Operations(t *testing.T) {
	ctx := context.Background()
	kb := NewTool(newTestStore(t))
	reg, err := tool.NewRegistry(kb)
	require.NoError(t, err)

	run := func(text string) (string, error) {
		inv, err := tool.ParseInvocation(text)
		require.NoError(t, err)
		return reg.Execute(ctx, inv)
	}

	out, err := run(`{"name":"knowledge_base","args":{"op":"remember","name":"color","value":"blue","importance":3}}`)
	require.NoError(t, err)
	assert.Equal(t, `Remembered "color".`, out)

	out, err = run(`{"name":"knowledge_base","args":{"op":"recall","name":"color"}}`)
	require.NoError(t, err)
	assert.Equal(t, "blue", out)

	out, err = run(`{"name":"knowledge_base","args":{"op":"search","query":"blu"}}`)
	require.NoError(t, err)
	assert.Equal(t, "- color: blue", out)

	out, err = run(`{"name":"knowledge_base","args":{"op":"forget","name":"color"}}`)
	require.NoError(t, err)
	assert.Equal(t, `Forgot "color".`, out)

	out, err = run(`{"name":"knowledge_base","args":{"op":"recall","name":"color"}}`)
	require.NoError(t, err)
	assert.Equal(t, `Nothing is known about "color".`, out)

	out, err = run(`{"name":"knowledge_base","args":{"op":"search","query":"zzz"}}`)
	require.NoError(t, err)
	assert.Equal(t, "No matching memories.", out)
}

func TestTool_InvalidArgs(t *testing.T) {
	ctx := context.Background()
	kb := NewTool(newTestStore(t))
	reg, err := tool.NewRegistry(kb)
	require.NoError(t, err)

	for _, args := range []map[string]any{
		{},
		{"op": "explode"},
		{"op": "remember", "name": "x"},
		{"op": "recall"},
		{"op": "forget"},
	} {
		_, err := reg.Execute(ctx, tool.Invocation{Name: Name, Args: args})
		var toolErr *tool.ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, tool.CodeValidation, toolErr.Code)
	}
}
