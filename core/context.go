package core

import (
	"fmt"
	"sync"

	"github.com/hupe1980/contextmesh/logging"
)

// Common context errors.
var (
	// ErrUnknownSubTask is returned when merging a child whose spawn was
	// never recorded in the parent's sub-task list.
	ErrUnknownSubTask = fmt.Errorf("sub-task not registered in parent")
	// ErrAlreadyMerged guards against double-invocation of MergeSubContext,
	// which would double-count usage.
	ErrAlreadyMerged = fmt.Errorf("sub-context already merged")
)

// Edge records one child→parent link in the task graph, tagged with the
// identity of the agent that spawned the child. Edges enable trajectory
// reconstruction after a run.
type Edge struct {
	ChildID  string
	ParentID string
	Agent    string
}

// Registry is an arena of Context nodes indexed by task id. Parents are
// stored as ids rather than raw references, keeping ownership acyclic and
// making serialization straightforward. The registry is shared across
// sessions and safe for concurrent access.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Context
	edges []Edge
}

// NewRegistry constructs an empty context registry.
func NewRegistry() *Registry {
	return &Registry{nodes: map[string]*Context{}}
}

// Get returns the context registered under taskID.
func (r *Registry) Get(taskID string) (*Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.nodes[taskID]
	return c, ok
}

// Remove drops a context from the arena. Sub-trees of finished tasks are
// garbage-collected by the orchestrator through this call.
func (r *Registry) Remove(taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, taskID)
}

// Edges returns a snapshot of all recorded task-graph edges.
func (r *Registry) Edges() []Edge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make([]Edge, len(r.edges))
	copy(cp, r.edges)
	return cp
}

// Trajectory walks the edge list from taskID up to the root, returning the
// child→parent chain in order.
func (r *Registry) Trajectory(taskID string) []Edge {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byChild := make(map[string]Edge, len(r.edges))
	for _, e := range r.edges {
		byChild[e.ChildID] = e
	}
	var chain []Edge
	for {
		e, ok := byChild[taskID]
		if !ok {
			return chain
		}
		chain = append(chain, e)
		taskID = e.ParentID
	}
}

func (r *Registry) put(c *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[c.State.Input.TaskID] = c
}

func (r *Registry) addEdge(e Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = append(r.edges, e)
}

// Context is a node in the hierarchical state tree for one task or sub-task.
// It holds the TaskState, an optional workspace reference scoping artifact
// storage, and a config object. The parent link is a back-reference only (an
// id into the registry arena); a child never owns its parent. A context with
// no parent is a root.
type Context struct {
	registry *Registry
	parentID string

	// State is the task state owned by this context.
	State *TaskState
	// Workspace scopes artifact persistence for this context's task tree.
	Workspace string
	// Config tunes augmentation and retrieval for this context.
	Config *Config

	currentAgent string

	*loggerAdapter
}

// NewRootContext builds and registers a root context for a task. A task
// cannot proceed without its context, so construction failures are returned
// wrapped rather than swallowed.
func NewRootContext(reg *Registry, in TaskInput, cfg *Config, logger logging.Logger) (*Context, error) {
	if reg == nil {
		return nil, fmt.Errorf("build context %q: registry is required", in.TaskID)
	}
	if in.TaskID == "" {
		return nil, fmt.Errorf("build context: task id is required")
	}
	if _, exists := reg.Get(in.TaskID); exists {
		return nil, fmt.Errorf("build context %q: task already registered", in.TaskID)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Context{
		registry:      reg,
		State:         NewTaskState(in),
		Config:        cfg,
		loggerAdapter: newLoggerAdapter(logger),
	}
	reg.put(c)
	return c, nil
}

// TaskID returns the id of the task owning this context.
func (c *Context) TaskID() string { return c.State.Input.TaskID }

// Parent returns the parent context, or nil for a root.
func (c *Context) Parent() *Context {
	if c.parentID == "" {
		return nil
	}
	p, ok := c.registry.Get(c.parentID)
	if !ok {
		return nil
	}
	return p
}

// Root walks up the parent chain and returns the tree's root (possibly the
// receiver itself).
func (c *Context) Root() *Context {
	node := c
	for {
		p := node.Parent()
		if p == nil {
			return node
		}
		node = p
	}
}

// IsRoot reports whether the context has no parent.
func (c *Context) IsRoot() bool { return c.parentID == "" }

// Registry returns the arena this context is registered in.
func (c *Context) Registry() *Registry { return c.registry }

// CurrentAgent returns the agent namespace currently executing under this
// context, or empty when resolution should start at the task scope.
func (c *Context) CurrentAgent() string { return c.currentAgent }

// SetCurrentAgent records which agent is executing; bare-key resolution
// checks that agent's WorkingState before the task's.
func (c *Context) SetCurrentAgent(id string) {
	c.currentAgent = id
	if id != "" {
		c.State.RegisterAgent(id)
	}
}

// SpawnSubContext creates and registers a child context for decomposed work.
// The child's WorkingState starts with a deep copy of the parent's task-level
// kv store: mutations in the child never retro-actively affect the parent
// until merge. A SubTask entry with status init is recorded in the parent and
// a task-graph edge is tagged with the calling agent's identity.
func (c *Context) SpawnSubContext(content, subTaskID string, taskType TaskType) (*Context, error) {
	if subTaskID == "" {
		subTaskID = NewID()
	}
	if taskType == "" {
		taskType = TaskTypeNormal
	}
	if _, exists := c.registry.Get(subTaskID); exists {
		return nil, fmt.Errorf("spawn sub-context %q: task already registered", subTaskID)
	}

	in := TaskInput{
		UserID:          c.State.Input.UserID,
		SessionID:       c.State.Input.SessionID,
		TaskID:          subTaskID,
		Content:         content,
		OriginUserInput: c.State.Input.OriginUserInput,
	}

	child := &Context{
		registry:      c.registry,
		parentID:      c.TaskID(),
		State:         NewTaskState(in),
		Workspace:     c.Workspace,
		Config:        c.Config,
		loggerAdapter: c.loggerAdapter,
	}
	child.State.ParentTask = &c.State.Input
	child.State.Working.KV = c.State.Working.CloneKV()
	child.State.Output.Status = TaskStatusRunning

	c.State.Working.AddSubTask(&SubTask{
		TaskID: subTaskID,
		Input:  in,
		Status: SubTaskInit,
		Type:   taskType,
	})

	c.registry.put(child)
	c.registry.addEdge(Edge{ChildID: subTaskID, ParentID: c.TaskID(), Agent: c.currentAgent})

	c.LogDebug("context.spawn", "parent", c.TaskID(), "child", subTaskID, "type", string(taskType))

	return child, nil
}

// MergeSubContext folds a finished child's results back into the receiver
// (the parent). The child's kv entries win on conflict, the matching SubTask
// entry takes its status and result from the child's output (or from the
// live handle for background tasks still running), and token usage
// accumulates additively. The merge is one-directional and executed exactly
// once per child; a second call returns ErrAlreadyMerged.
func (c *Context) MergeSubContext(child *Context) error {
	if child == nil {
		return fmt.Errorf("merge sub-context: child is nil")
	}

	st := c.State.Working.FindSubTask(child.TaskID())
	if st == nil {
		return fmt.Errorf("merge sub-context %q: %w", child.TaskID(), ErrUnknownSubTask)
	}
	if st.merged {
		return fmt.Errorf("merge sub-context %q: %w", child.TaskID(), ErrAlreadyMerged)
	}

	c.State.Working.MergeKV(child.State.Working.KV)

	if st.Type == TaskTypeBackground && st.Handle != nil {
		st.Status = st.Handle.Status()
		st.Result = st.Handle.Result()
	} else {
		st.Status = subTaskStatusFromTask(child.State.Output.Status)
		st.Result = child.State.Output.Result
	}

	c.State.Usage.Add(child.State.Usage)
	st.merged = true

	c.LogDebug("context.merge", "parent", c.TaskID(), "child", child.TaskID(), "status", string(st.Status))

	return nil
}

// subTaskStatusFromTask maps a task status onto the sub-task state machine.
func subTaskStatusFromTask(ts TaskStatus) SubTaskStatus {
	switch ts {
	case TaskStatusSuccess:
		return SubTaskSuccess
	case TaskStatusFailed:
		return SubTaskFailed
	case TaskStatusRunning:
		return SubTaskRunning
	default:
		return SubTaskInit
	}
}
