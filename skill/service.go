package skill

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/logging"
)

// AgentFactory creates the sub-agent backing an agent-type skill on first
// activation. The returned id becomes a handoff target.
type AgentFactory interface {
	CreateAgent(ctx context.Context, scope core.Scope, s *Skill) (string, error)
}

// AgentFactoryFunc adapts a function to the AgentFactory interface.
type AgentFactoryFunc func(ctx context.Context, scope core.Scope, s *Skill) (string, error)

// CreateAgent implements AgentFactory.
func (f AgentFactoryFunc) CreateAgent(ctx context.Context, scope core.Scope, s *Skill) (string, error) {
	return f(ctx, scope, s)
}

// scopeState is the activation state for one scope.
type scopeState struct {
	active  map[string]bool
	created map[string]string // skill name -> sub-agent id, survives offload
}

// Service tracks skill registration and per-scope activation. Registered
// skills are shared; the active set and created sub-agents are tracked per
// scope so agents in the same task activate independently.
type Service struct {
	factory AgentFactory
	logger  logging.Logger

	mu     sync.RWMutex
	skills map[string]*Skill
	scopes map[core.Scope]*scopeState
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithAgentFactory sets the factory used by agent-type skills.
func WithAgentFactory(f AgentFactory) ServiceOption { return func(s *Service) { s.factory = f } }

// WithLogger sets the service logger.
func WithLogger(l logging.Logger) ServiceOption { return func(s *Service) { s.logger = l } }

// NewService creates an empty skill service.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		logger: logging.NoOpLogger{},
		skills: map[string]*Skill{},
		scopes: map[core.Scope]*scopeState{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.ForComponent(s.logger, "skill")
	return s
}

// logSkill records a lifecycle transition, preferring the structured domain
// event when the logger supports it.
func (s *Service) logSkill(name, action, status string) {
	if dl, ok := s.logger.(logging.DomainLogger); ok {
		dl.LogSkill(name, action, status)
		return
	}
	s.logger.Info("skill."+action, "skill", name, "status", status)
}

// Register adds skill definitions, replacing same-named ones.
func (s *Service) Register(skills ...*Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sk := range skills {
		if err := sk.Validate(); err != nil {
			return err
		}
		s.skills[sk.Name] = sk
	}
	return nil
}

// RegisterManifest registers every skill in a parsed manifest.
func (s *Service) RegisterManifest(m *Manifest) error {
	return s.Register(m.Skills...)
}

// Skills returns all registered definitions sorted by name.
func (s *Service) Skills() []*Skill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Skill, 0, len(s.skills))
	for _, sk := range s.skills {
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Activate moves a skill into the scope's active set. The returned string
// reports the outcome in a form meant to be relayed verbatim:
//
//   - an unknown skill reports "skill not found" and mutates nothing
//   - an already-active skill is a no-op reporting the current active set
//   - a tool skill reports the tools it unlocked
//   - an agent skill creates (or reuses) its sub-agent and reports the
//     handoff target
func (s *Service) Activate(ctx context.Context, scope core.Scope, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	sk, ok := s.skills[name]
	if !ok {
		return fmt.Sprintf("skill not found: %s", name)
	}

	st := s.scope(scope)
	if st.active[name] {
		return fmt.Sprintf("skill %s is already active; active skills: %s", name, strings.Join(sortedKeys(st.active), ", "))
	}

	if sk.Type == TypeAgent {
		agentID, created := st.created[name]
		if !created {
			if s.factory == nil {
				return fmt.Sprintf("skill %s requires an agent factory and none is configured", name)
			}
			id, err := s.factory.CreateAgent(ctx, scope, sk)
			if err != nil {
				s.logger.Error("skill.activate.create_agent_failed", "skill", name, "error", err)
				return fmt.Sprintf("failed to activate skill %s: %v", name, err)
			}
			st.created[name] = id
			agentID = id
		}
		st.active[name] = true
		status := fmt.Sprintf("activated skill %s; hand off to agent %s to use it", name, agentID)
		s.logSkill(name, "activate", status)
		return status
	}

	st.active[name] = true
	status := fmt.Sprintf("activated skill %s", name)
	if len(sk.Tools) > 0 {
		status = fmt.Sprintf("activated skill %s; tools now available: %s", name, strings.Join(sk.Tools, ", "))
	}
	s.logSkill(name, "activate", status)
	return status
}

// Offload removes a skill from the scope's active set. Sub-agents created by
// agent skills are kept so re-activation reuses them.
func (s *Service) Offload(scope core.Scope, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.skills[name]; !ok {
		return fmt.Sprintf("skill not found: %s", name)
	}
	st := s.scope(scope)
	if !st.active[name] {
		return fmt.Sprintf("skill %s is not active", name)
	}
	delete(st.active, name)
	status := fmt.Sprintf("offloaded skill %s", name)
	s.logSkill(name, "offload", status)
	return status
}

// ActiveSkills returns the scope's active skill names sorted.
func (s *Service) ActiveSkills(scope core.Scope) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scopes[scope]
	if !ok {
		return nil
	}
	return sortedKeys(st.active)
}

// ActiveTools returns the union of tools unlocked by the scope's active
// skills, sorted.
func (s *Service) ActiveTools(scope core.Scope) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scopes[scope]
	if !ok {
		return nil
	}
	set := map[string]bool{}
	for name := range st.active {
		if sk, ok := s.skills[name]; ok {
			for _, t := range sk.Tools {
				set[t] = true
			}
		}
	}
	return sortedKeys(set)
}

// HandoffTargets returns the sub-agent ids created for the scope's active
// agent-type skills, sorted.
func (s *Service) HandoffTargets(scope core.Scope) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scopes[scope]
	if !ok {
		return nil
	}
	var targets []string
	for name := range st.active {
		if id, ok := st.created[name]; ok {
			targets = append(targets, id)
		}
	}
	sort.Strings(targets)
	return targets
}

// PromptFragments returns the prompt fragments of the scope's active skills
// in skill-name order.
func (s *Service) PromptFragments(scope core.Scope) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.scopes[scope]
	if !ok {
		return nil
	}
	var fragments []string
	for _, name := range sortedKeys(st.active) {
		if sk, ok := s.skills[name]; ok && sk.Prompt != "" {
			fragments = append(fragments, sk.Prompt)
		}
	}
	return fragments
}

func (s *Service) scope(scope core.Scope) *scopeState {
	st, ok := s.scopes[scope]
	if !ok {
		st = &scopeState{active: map[string]bool{}, created: map[string]string{}}
		s.scopes[scope] = st
	}
	return st
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
