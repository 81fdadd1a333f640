package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/contextmesh/logging"
)

func buildTree(t *testing.T) (*Context, *Context, *Context) {
	t.Helper()
	reg := NewRegistry()
	root, err := NewRootContext(reg, TaskInput{
		UserID:          "u-1",
		SessionID:       "s-1",
		TaskID:          "root",
		Content:         "plan the trip",
		OriginUserInput: "plan my trip to Lisbon",
	}, nil, logging.NoOpLogger{})
	require.NoError(t, err)

	mid, err := root.SpawnSubContext("book flights", "mid", TaskTypeNormal)
	require.NoError(t, err)
	leaf, err := mid.SpawnSubContext("compare fares", "leaf", TaskTypeNormal)
	require.NoError(t, err)
	return root, mid, leaf
}

func TestResolveNativeAttributes(t *testing.T) {
	root, _, _ := buildTree(t)

	require.Equal(t, "u-1", Resolve("user_id", root, true))
	require.Equal(t, "plan the trip", Resolve("task_content", root, true))
	require.Equal(t, string(TaskStatusInit), Resolve("task_status", root, true))
}

func TestResolveRecursiveWalksAncestors(t *testing.T) {
	root, _, leaf := buildTree(t)
	root.State.Working.Put("budget", 2000)

	require.Equal(t, 2000, Resolve("budget", leaf, true))
	// non-recursive stops at the leaf, whose spawn-time kv copy predates the put
	require.True(t, IsDefault(Resolve("budget", leaf, false)))
}

func TestResolveCurrentPrefix(t *testing.T) {
	root, _, leaf := buildTree(t)
	root.State.Working.Put("only-root", "x")

	require.True(t, IsDefault(Resolve("current.only-root", leaf, true)))
	require.Equal(t, "compare fares", Resolve("current.task_content", leaf, true))
}

func TestResolveParentAndRootPrefixes(t *testing.T) {
	_, _, leaf := buildTree(t)

	require.Equal(t, "book flights", Resolve("parent.task_content", leaf, true))
	require.Equal(t, "plan the trip", Resolve("parent.parent.task_content", leaf, true))
	require.Equal(t, "plan the trip", Resolve("root.task_content", leaf, true))

	// parent of root is absent
	require.True(t, IsDefault(Resolve("parent.task_content", leaf.Root(), true)))

	// scoped suffix resolution is non-recursive at the destination
	leaf.Root().State.Working.Put("root-only", "v")
	require.Equal(t, "v", Resolve("root.root-only", leaf, true))
	require.True(t, IsDefault(Resolve("parent.root-only", leaf, true)))
}

func TestResolveAgentBeforeTask(t *testing.T) {
	root, _, _ := buildTree(t)
	root.SetCurrentAgent("writer")
	root.State.Working.Put("tone", "task-level")
	root.State.Agents["writer"].Put("tone", "agent-level")

	require.Equal(t, "agent-level", Resolve("tone", root, true))

	root.SetCurrentAgent("")
	require.Equal(t, "task-level", Resolve("tone", root, true))
}

func TestResolveDefaultDistinctFromEmptyString(t *testing.T) {
	root, _, _ := buildTree(t)
	root.State.Working.Put("empty", "")

	v := Resolve("empty", root, true)
	require.False(t, IsDefault(v))
	require.Equal(t, "", v)

	require.True(t, IsDefault(Resolve("missing", root, true)))
}

func TestResolveEmitsResolutionEvents(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := logging.DefaultLoggerConfig()
	cfg.Level = logging.LogLevelDebug
	cfg.Output = buf
	cfg.AddSource = false

	reg := NewRegistry()
	root, err := NewRootContext(reg, TaskInput{
		UserID:    "u-1",
		SessionID: "s-1",
		TaskID:    "root",
		Content:   "plan the trip",
	}, nil, logging.NewLogger(cfg))
	require.NoError(t, err)

	require.Equal(t, "u-1", Resolve("user_id", root, true))
	out := buf.String()
	require.Contains(t, out, "Field resolution completed")
	require.Contains(t, out, `"key":"user_id"`)
	require.Contains(t, out, `"found":true`)

	buf.Reset()
	require.True(t, IsDefault(Resolve("missing", root, true)))
	require.Contains(t, buf.String(), `"found":false`)
}

func TestResolveNeverErrors(t *testing.T) {
	root, _, _ := buildTree(t)

	require.True(t, IsDefault(Resolve("", root, true)))
	require.True(t, IsDefault(Resolve("a.b.c", root, true)))
	require.True(t, IsDefault(Resolve("parent.", root, true)))
	require.True(t, IsDefault(Resolve("x", nil, true)))
}
