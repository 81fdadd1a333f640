package skill

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/logging"
)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	svc := NewService(opts...)
	require.NoError(t, svc.Register(
		&Skill{Name: "web-search", Description: "search", Type: TypeTool, Tools: []string{"search", "fetch"}},
		&Skill{Name: "notes", Description: "notes", Type: TypeTool, Prompt: "Keep notes terse."},
		&Skill{Name: "coder", Description: "delegate coding", Type: TypeAgent},
	))
	return svc
}

func TestActivateToolSkill(t *testing.T) {
	svc := newTestService(t)
	scope := core.TaskScope()

	status := svc.Activate(context.Background(), scope, "web-search")
	require.Contains(t, status, "activated skill web-search")
	require.Contains(t, status, "search, fetch")

	require.Equal(t, []string{"web-search"}, svc.ActiveSkills(scope))
	require.Equal(t, []string{"fetch", "search"}, svc.ActiveTools(scope))
}

func TestActivateUnknownSkillMutatesNothing(t *testing.T) {
	svc := newTestService(t)
	scope := core.TaskScope()

	status := svc.Activate(context.Background(), scope, "ghost")
	require.Equal(t, "skill not found: ghost", status)
	require.Empty(t, svc.ActiveSkills(scope))
}

func TestActivateAlreadyActiveIsNoOp(t *testing.T) {
	svc := newTestService(t)
	scope := core.TaskScope()
	svc.Activate(context.Background(), scope, "web-search")
	svc.Activate(context.Background(), scope, "notes")

	status := svc.Activate(context.Background(), scope, "web-search")
	require.Contains(t, status, "already active")
	require.Contains(t, status, "notes")
	require.Contains(t, status, "web-search")
	require.Equal(t, []string{"notes", "web-search"}, svc.ActiveSkills(scope))
}

func TestScopesActivateIndependently(t *testing.T) {
	svc := newTestService(t)
	a := core.AgentScope("a1")
	b := core.AgentScope("a2")

	svc.Activate(context.Background(), a, "web-search")

	require.Equal(t, []string{"web-search"}, svc.ActiveSkills(a))
	require.Empty(t, svc.ActiveSkills(b))
	require.Empty(t, svc.ActiveSkills(core.TaskScope()))
}

func TestAgentSkillCreatesHandoffTarget(t *testing.T) {
	var calls int
	factory := AgentFactoryFunc(func(_ context.Context, scope core.Scope, s *Skill) (string, error) {
		calls++
		return fmt.Sprintf("agent-%s-%d", s.Name, calls), nil
	})
	svc := newTestService(t, WithAgentFactory(factory))
	scope := core.TaskScope()

	status := svc.Activate(context.Background(), scope, "coder")
	require.Contains(t, status, "hand off to agent agent-coder-1")
	require.Equal(t, []string{"agent-coder-1"}, svc.HandoffTargets(scope))

	// offload keeps the created agent; re-activation reuses it
	require.Equal(t, "offloaded skill coder", svc.Offload(scope, "coder"))
	require.Empty(t, svc.HandoffTargets(scope))

	svc.Activate(context.Background(), scope, "coder")
	require.Equal(t, 1, calls)
	require.Equal(t, []string{"agent-coder-1"}, svc.HandoffTargets(scope))
}

func TestAgentSkillWithoutFactory(t *testing.T) {
	svc := newTestService(t)
	status := svc.Activate(context.Background(), core.TaskScope(), "coder")
	require.Contains(t, status, "agent factory")
	require.Empty(t, svc.ActiveSkills(core.TaskScope()))
}

func TestAgentSkillFactoryFailure(t *testing.T) {
	factory := AgentFactoryFunc(func(context.Context, core.Scope, *Skill) (string, error) {
		return "", fmt.Errorf("quota exceeded")
	})
	svc := newTestService(t, WithAgentFactory(factory))

	status := svc.Activate(context.Background(), core.TaskScope(), "coder")
	require.Contains(t, status, "failed to activate skill coder")
	require.Empty(t, svc.ActiveSkills(core.TaskScope()))
}

func TestOffloadStatusStrings(t *testing.T) {
	svc := newTestService(t)
	scope := core.TaskScope()

	require.Equal(t, "skill not found: ghost", svc.Offload(scope, "ghost"))
	require.Equal(t, "skill web-search is not active", svc.Offload(scope, "web-search"))
}

func TestActivateEmitsSkillTransition(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := logging.DefaultLoggerConfig()
	cfg.Output = buf
	cfg.AddSource = false
	svc := newTestService(t, WithLogger(logging.NewLogger(cfg)))
	scope := core.TaskScope()

	svc.Activate(context.Background(), scope, "web-search")
	out := buf.String()
	require.Contains(t, out, "Skill transition")
	require.Contains(t, out, `"skill":"web-search"`)
	require.Contains(t, out, `"action":"activate"`)
	require.Contains(t, out, `"component":"skill"`)

	buf.Reset()
	svc.Offload(scope, "web-search")
	require.Contains(t, buf.String(), `"action":"offload"`)
}

func TestPromptFragments(t *testing.T) {
	svc := newTestService(t)
	scope := core.TaskScope()
	svc.Activate(context.Background(), scope, "notes")
	svc.Activate(context.Background(), scope, "web-search")

	require.Equal(t, []string{"Keep notes terse."}, svc.PromptFragments(scope))
}
