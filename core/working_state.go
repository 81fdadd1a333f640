package core

import (
	"fmt"
	"sort"
	"strings"
)

// Reserved lookup names with specific formatting semantics (see Lookup).
const (
	LookupHistory      = "history"
	LookupSummaries    = "summaries"
	LookupFacts        = "facts"
	LookupUserProfiles = "user_profiles"
	LookupKnowledge    = "knowledge"
)

// SummarySuffix selects an artifact's summary instead of its content when
// appended to a lookup key.
const SummarySuffix = "/summary"

// WorkingState is the mutable state container owned by exactly one TaskState
// or one agent namespace. Ownership is exclusive: the single caller that owns
// the state performs all mutation, so no lock is taken here. Shared
// collaborators (Registry, ArtifactRepository, VectorStore) carry their own
// synchronization.
type WorkingState struct {
	History   []Message            `json:"history_messages"`
	KV        map[string]any       `json:"kv_store"`
	Knowledge map[string]*Artifact `json:"knowledge_index"`
	Facts     []string             `json:"facts"`
	Profiles  []string             `json:"user_profiles"`
	SubTasks  []*SubTask           `json:"sub_task_list"`
}

// NewWorkingState creates an empty working state.
func NewWorkingState() *WorkingState {
	return &WorkingState{
		KV:        map[string]any{},
		Knowledge: map[string]*Artifact{},
	}
}

// AppendMessage appends a message to the history. History is append-only.
func (w *WorkingState) AppendMessage(m Message) { w.History = append(w.History, m) }

// HasSystemMessage reports whether a system message already exists in the
// history. Prompt augmentation uses this to stay idempotent per task run.
func (w *WorkingState) HasSystemMessage() bool {
	for _, m := range w.History {
		if m.Role == RoleSystem {
			return true
		}
	}
	return false
}

// Put stores a key/value pair in the scratch kv store (last-write-wins).
func (w *WorkingState) Put(key string, value any) { w.KV[key] = value }

// Get returns the scratch value for key and whether it was present.
func (w *WorkingState) Get(key string) (any, bool) {
	v, ok := w.KV[key]
	return v, ok
}

// AddFact appends a long-term fact. Facts are append-only.
func (w *WorkingState) AddFact(fact string) { w.Facts = append(w.Facts, fact) }

// AddProfile appends a long-term user profile entry. Profiles are append-only.
func (w *WorkingState) AddProfile(profile string) { w.Profiles = append(w.Profiles, profile) }

// RegisterArtifact records an artifact in the knowledge index. The working
// state becomes the in-memory owner of the artifact; durable persistence is
// a separate, best-effort concern.
func (w *WorkingState) RegisterArtifact(a *Artifact) { w.Knowledge[a.ID] = a }

// UnregisterArtifact removes an artifact from the knowledge index.
func (w *WorkingState) UnregisterArtifact(id string) { delete(w.Knowledge, id) }

// ArtifactByID returns the registered artifact or nil.
func (w *WorkingState) ArtifactByID(id string) *Artifact { return w.Knowledge[id] }

// AddSubTask registers a sub-task entry. Entries are never deleted, only
// marked terminal.
func (w *WorkingState) AddSubTask(st *SubTask) { w.SubTasks = append(w.SubTasks, st) }

// FindSubTask returns the sub-task with the given task id or nil.
func (w *WorkingState) FindSubTask(taskID string) *SubTask {
	for _, st := range w.SubTasks {
		if st.TaskID == taskID {
			return st
		}
	}
	return nil
}

// HasPendingBackgroundTasks reports whether any background sub-task is still
// in a non-terminal status.
func (w *WorkingState) HasPendingBackgroundTasks() bool {
	for _, st := range w.SubTasks {
		if st.Type == TaskTypeBackground && !st.Terminal() {
			return true
		}
	}
	return false
}

// MarkBackgroundTaskCompleted marks the background sub-task with the given id
// as successful. It reports whether a matching pending task was found.
func (w *WorkingState) MarkBackgroundTaskCompleted(taskID string) bool {
	st := w.FindSubTask(taskID)
	if st == nil || st.Type != TaskTypeBackground || st.Terminal() {
		return false
	}
	st.Status = SubTaskSuccess
	return true
}

// CloneKV returns a deep copy of the kv store. Mutations on the copy never
// retro-actively affect the original; sub-context spawning relies on this.
func (w *WorkingState) CloneKV() map[string]any {
	return deepCopyMap(w.KV)
}

// MergeKV updates the kv store with all entries from delta; delta wins on
// key conflict (last-write-wins at merge time, not retroactive).
func (w *WorkingState) MergeKV(delta map[string]any) {
	for k, v := range delta {
		w.KV[k] = v
	}
}

// Lookup resolves a key inside this working state. Reserved semantic names
// (history, summaries, facts, user_profiles, knowledge) take precedence,
// then the kv store, then the knowledge index where a "knowledge/{id}" or
// bare artifact id returns content and a trailing "/summary" selects the
// artifact's summary. Missing keys return the Default sentinel, never an
// error.
func (w *WorkingState) Lookup(key string) any {
	switch key {
	case LookupHistory:
		return w.formatHistory()
	case LookupSummaries:
		return w.formatSummaries()
	case LookupFacts:
		return formatLines(w.Facts)
	case LookupUserProfiles:
		return formatLines(w.Profiles)
	case LookupKnowledge:
		return w.formatKnowledgeIndex()
	}
	if v, ok := w.KV[key]; ok {
		return v
	}
	return w.getFromArtifacts(key)
}

// getFromArtifacts resolves artifact-backed keys: "knowledge/{id}",
// "knowledge/{id}/summary", or a bare artifact id.
func (w *WorkingState) getFromArtifacts(key string) any {
	wantSummary := strings.HasSuffix(key, SummarySuffix)
	id := strings.TrimSuffix(key, SummarySuffix)
	id = strings.TrimPrefix(id, LookupKnowledge+"/")
	a, ok := w.Knowledge[id]
	if !ok {
		return Default
	}
	if wantSummary {
		return a.Summary
	}
	return a.Content
}

func (w *WorkingState) formatHistory() any {
	if len(w.History) == 0 {
		return Default
	}
	var b strings.Builder
	for _, m := range w.History {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (w *WorkingState) formatSummaries() any {
	if len(w.Knowledge) == 0 {
		return Default
	}
	var b strings.Builder
	for _, id := range w.sortedArtifactIDs() {
		fmt.Fprintf(&b, "- %s: %s\n", id, w.Knowledge[id].Summary)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (w *WorkingState) formatKnowledgeIndex() any {
	if len(w.Knowledge) == 0 {
		return Default
	}
	var b strings.Builder
	for _, id := range w.sortedArtifactIDs() {
		a := w.Knowledge[id]
		if a.Chunked {
			fmt.Fprintf(&b, "- %s (%d chunks): %s\n", id, a.ChunkCount, a.Summary)
		} else {
			fmt.Fprintf(&b, "- %s: %s\n", id, a.Summary)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// sortedArtifactIDs keeps formatted output deterministic across runs.
func (w *WorkingState) sortedArtifactIDs() []string {
	ids := make([]string, 0, len(w.Knowledge))
	for id := range w.Knowledge {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func formatLines(items []string) any {
	if len(items) == 0 {
		return Default
	}
	var b strings.Builder
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", it)
	}
	return strings.TrimRight(b.String(), "\n")
}

// deepCopyMap copies nested maps and slices; scalar values are shared.
func deepCopyMap(m map[string]any) map[string]any {
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = deepCopyValue(v)
	}
	return cp
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		cp := make([]any, len(t))
		for i, e := range t {
			cp[i] = deepCopyValue(e)
		}
		return cp
	case []string:
		cp := make([]string, len(t))
		copy(cp, t)
		return cp
	default:
		return v
	}
}
