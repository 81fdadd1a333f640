// Package testutil provides fluent builders for task state and contexts
// used across the package tests.
package testutil

import (
	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/logging"
)

// StateBuilder builds a TaskState step by step.
type StateBuilder struct {
	state *core.TaskState
}

// NewStateBuilder starts a builder for a task with the given id.
func NewStateBuilder(taskID string) *StateBuilder {
	return &StateBuilder{state: core.NewTaskState(core.TaskInput{
		UserID:    "user-1",
		SessionID: "session-1",
		TaskID:    taskID,
	})}
}

// WithUser sets the user id.
func (b *StateBuilder) WithUser(id string) *StateBuilder {
	b.state.Input.UserID = id
	return b
}

// WithContent sets the task content.
func (b *StateBuilder) WithContent(content string) *StateBuilder {
	b.state.Input.Content = content
	return b
}

// WithKV seeds a task-level kv entry.
func (b *StateBuilder) WithKV(key string, value any) *StateBuilder {
	b.state.Working.Put(key, value)
	return b
}

// WithAgent registers an agent working state.
func (b *StateBuilder) WithAgent(id string) *StateBuilder {
	b.state.RegisterAgent(id)
	return b
}

// WithMessage records a message under the given scope.
func (b *StateBuilder) WithMessage(scope core.Scope, m core.Message) *StateBuilder {
	b.state.RecordMessage(scope, m)
	return b
}

// Build returns the assembled state.
func (b *StateBuilder) Build() *core.TaskState { return b.state }

// ContextBuilder builds a registered root context.
type ContextBuilder struct {
	registry *core.Registry
	input    core.TaskInput
	config   *core.Config
	agent    string
}

// NewContextBuilder starts a builder for a root context with the given task id.
func NewContextBuilder(taskID string) *ContextBuilder {
	return &ContextBuilder{
		registry: core.NewRegistry(),
		input: core.TaskInput{
			UserID:    "user-1",
			SessionID: "session-1",
			TaskID:    taskID,
		},
	}
}

// WithRegistry uses a shared registry instead of a fresh one.
func (b *ContextBuilder) WithRegistry(reg *core.Registry) *ContextBuilder {
	b.registry = reg
	return b
}

// WithUser sets the user id.
func (b *ContextBuilder) WithUser(id string) *ContextBuilder {
	b.input.UserID = id
	return b
}

// WithContent sets the task content.
func (b *ContextBuilder) WithContent(content string) *ContextBuilder {
	b.input.Content = content
	return b
}

// WithOrigin sets the original user input.
func (b *ContextBuilder) WithOrigin(origin string) *ContextBuilder {
	b.input.OriginUserInput = origin
	return b
}

// WithConfig sets the context config.
func (b *ContextBuilder) WithConfig(cfg *core.Config) *ContextBuilder {
	b.config = cfg
	return b
}

// WithCurrentAgent sets the executing agent after construction.
func (b *ContextBuilder) WithCurrentAgent(id string) *ContextBuilder {
	b.agent = id
	return b
}

// Build constructs and registers the root context, panicking on invalid
// input since builders run inside tests.
func (b *ContextBuilder) Build() *core.Context {
	c, err := core.NewRootContext(b.registry, b.input, b.config, logging.NoOpLogger{})
	if err != nil {
		panic(err)
	}
	if b.agent != "" {
		c.SetCurrentAgent(b.agent)
	}
	return c
}
