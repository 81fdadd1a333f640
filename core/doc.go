// Package core provides the foundational domain types, interfaces and state
// containers used by ContextMesh. It defines the core abstractions for:
//
//   - Context (a node in the hierarchical per-task state tree) and the
//     Registry arena that owns the tree
//   - WorkingState (history, key/value scratch data, knowledge index, facts
//     and sub-task list owned by one task or agent)
//   - TaskState / TaskInput / TaskOutput (identity and result of one task)
//   - SubTask spawn & merge bookkeeping for decomposed work
//   - Field resolution across parent/child context links (Resolve)
//   - Pluggable contracts for artifact persistence and vector search
//
// The package intentionally keeps implementation concerns (persistence
// backends, retrieval services, prompt assembly) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
