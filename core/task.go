package core

import (
	"fmt"
	"sort"

	"github.com/hupe1980/contextmesh/internal/tokenutil"
)

// TaskStatus tracks the lifecycle of a task exchanged with the orchestrator.
type TaskStatus string

// Task lifecycle states.
const (
	TaskStatusInit    TaskStatus = "init"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusSuccess TaskStatus = "success"
	TaskStatusFailed  TaskStatus = "failed"
)

// TaskInput identifies one unit of work handed to the engine by the
// orchestrator. Treat it as immutable once a context has been built from it.
type TaskInput struct {
	UserID          string `json:"user_id"`
	SessionID       string `json:"session_id"`
	TaskID          string `json:"task_id"`
	Content         string `json:"task_content"`
	OriginUserInput string `json:"origin_user_input,omitempty"`
}

// TaskOutput carries the task result plus derived summaries filled in after
// a run.
type TaskOutput struct {
	Status     TaskStatus `json:"status"`
	Result     string     `json:"result"`
	ActionInfo string     `json:"action_info,omitempty"`
	TodoInfo   string     `json:"todo_info,omitempty"`
}

// Usage accumulates token counters for a task. Merging a sub-context adds
// the child's counters to the parent's.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// TaskState wraps a task's WorkingState with identity, input/output and the
// per-agent WorkingStates keyed by agent id.
type TaskState struct {
	Input      TaskInput
	Output     TaskOutput
	ParentTask *TaskInput
	Working    *WorkingState
	Agents     map[string]*WorkingState
	Usage      Usage
}

// NewTaskState builds a task state with an empty WorkingState and status init.
func NewTaskState(in TaskInput) *TaskState {
	return &TaskState{
		Input:   in,
		Output:  TaskOutput{Status: TaskStatusInit},
		Working: NewWorkingState(),
		Agents:  map[string]*WorkingState{},
	}
}

// RegisterAgent creates (or returns) the WorkingState for an agent id.
func (t *TaskState) RegisterAgent(id string) *WorkingState {
	if ws, ok := t.Agents[id]; ok {
		return ws
	}
	ws := NewWorkingState()
	t.Agents[id] = ws
	return ws
}

// AgentIDs returns the registered agent ids in sorted order.
func (t *TaskState) AgentIDs() []string {
	ids := make([]string, 0, len(t.Agents))
	for id := range t.Agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StateFor returns the WorkingState selected by scope: the task-level state
// for the task scope, or the agent's state if registered. Returns nil for an
// unknown agent; callers treat that as an absent namespace.
func (t *TaskState) StateFor(s Scope) *WorkingState {
	if s.IsTask() {
		return t.Working
	}
	return t.Agents[s.Agent()]
}

// RecordMessage appends a message to the scoped WorkingState and accounts
// its tokens: user/system content counts toward prompt tokens, assistant
// content toward completion tokens.
func (t *TaskState) RecordMessage(s Scope, m Message) {
	ws := t.StateFor(s)
	if ws == nil {
		ws = t.RegisterAgent(s.Agent())
	}
	ws.AppendMessage(m)
	n := tokenutil.Count(m.Content)
	if m.Role == RoleAssistant {
		t.Usage.CompletionTokens += n
	} else {
		t.Usage.PromptTokens += n
	}
	t.Usage.TotalTokens += n
}

// Finalize records the terminal status and result, and derives the action
// and todo summaries from the task's sub-task list and scratch state.
func (t *TaskState) Finalize(status TaskStatus, result string) {
	t.Output.Status = status
	t.Output.Result = result
	t.Output.ActionInfo = t.deriveActionInfo()
	t.Output.TodoInfo = t.deriveTodoInfo()
}

// deriveActionInfo summarizes sub-task outcomes for the orchestrator.
func (t *TaskState) deriveActionInfo() string {
	if len(t.Working.SubTasks) == 0 {
		return ""
	}
	var done, failed, pending int
	for _, st := range t.Working.SubTasks {
		switch st.Status {
		case SubTaskSuccess:
			done++
		case SubTaskFailed:
			failed++
		default:
			pending++
		}
	}
	return fmt.Sprintf("sub-tasks: %d total, %d success, %d failed, %d pending",
		len(t.Working.SubTasks), done, failed, pending)
}

// deriveTodoInfo surfaces any scratch todo list left by the agent loop.
func (t *TaskState) deriveTodoInfo() string {
	v, ok := t.Working.Get("todos")
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
