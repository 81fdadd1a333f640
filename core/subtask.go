package core

// SubTaskStatus tracks the lifecycle of a spawned sub-task.
type SubTaskStatus string

// Sub-task lifecycle states. Terminal states are success and failed.
const (
	SubTaskInit    SubTaskStatus = "init"
	SubTaskRunning SubTaskStatus = "running"
	SubTaskSuccess SubTaskStatus = "success"
	SubTaskFailed  SubTaskStatus = "failed"
)

// TaskType distinguishes sub-tasks the parent waits on from background tasks
// that may run concurrently with the parent's continued execution.
type TaskType string

// Supported sub-task execution modes.
const (
	TaskTypeNormal     TaskType = "normal"
	TaskTypeBackground TaskType = "background"
)

// BackgroundHandle exposes the live status of a still-running background
// task. When attached to a background SubTask, merge takes status and result
// from the handle instead of the child's recorded output, so a running task
// is not prematurely marked terminal. Cancellation is observed only at the
// next status merge, not proactively.
type BackgroundHandle interface {
	Status() SubTaskStatus
	Result() string
}

// SubTask is a child unit of work tracked in a parent's WorkingState.
// Entries are created at spawn time with status init, mutated by the parent
// when the child context reports completion, and never deleted.
type SubTask struct {
	TaskID string        `json:"task_id"`
	Input  TaskInput     `json:"input"`
	Status SubTaskStatus `json:"status"`
	Type   TaskType      `json:"task_type"`
	Result string        `json:"result,omitempty"`

	// Handle is the optional live task handle for background sub-tasks.
	Handle BackgroundHandle `json:"-"`

	merged bool
}

// Terminal reports whether the sub-task reached a final status.
func (st *SubTask) Terminal() bool {
	return st.Status == SubTaskSuccess || st.Status == SubTaskFailed
}

// Merged reports whether the child's results were already merged into the
// parent. Merge is executed exactly once per child; the flag guards against
// double-counting usage on retry.
func (st *SubTask) Merged() bool { return st.merged }
