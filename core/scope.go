package core

// TaskNamespace is the namespace string that always resolves to the owning
// TaskState's WorkingState.
const TaskNamespace = "default"

// Scope is a tagged variant selecting which WorkingState an operation
// targets: the task-level state or a specific agent's state. It replaces
// namespace-string dispatch at the call boundary; resolve the string once
// with ParseScope and pass the typed value through the rest of the chain.
type Scope struct {
	agent string
}

// TaskScope returns the scope targeting the task-level WorkingState.
func TaskScope() Scope { return Scope{} }

// AgentScope returns the scope targeting the WorkingState of the agent
// registered under id.
func AgentScope(id string) Scope { return Scope{agent: id} }

// ParseScope resolves a namespace string: "default" (or empty) selects the
// task scope, anything else selects the agent registered under that id.
func ParseScope(namespace string) Scope {
	if namespace == "" || namespace == TaskNamespace {
		return TaskScope()
	}
	return AgentScope(namespace)
}

// IsTask reports whether the scope targets the task-level WorkingState.
func (s Scope) IsTask() bool { return s.agent == "" }

// Agent returns the agent id, or the empty string for the task scope.
func (s Scope) Agent() string { return s.agent }

// String returns the namespace string form of the scope.
func (s Scope) String() string {
	if s.agent == "" {
		return TaskNamespace
	}
	return s.agent
}
