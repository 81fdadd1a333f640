// Package knowledge implements the knowledge offload and retrieval service.
//
// Large intermediate results are registered as artifacts in a WorkingState,
// chunked, persisted through a core.ArtifactRepository and indexed into a
// core.VectorStore. Offload returns a compact index (or the raw content for
// a single small artifact) so the calling prompt stays small while still
// pointing at retrievable detail; Load brings relevant fragments back via
// semantic search or exhaustive index enumeration.
//
// Durable persistence is best-effort: storage errors are logged and
// swallowed so a failed background persist never aborts the in-flight chat
// turn. The in-memory WorkingState remains the source of truth.
package knowledge
