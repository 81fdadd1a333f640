// Package vectorstore contains concrete VectorStore implementations. The
// store contract and result types reside in the core package. Import
// github.com/hupe1980/contextmesh/core and depend on core.VectorStore in
// your code; select an implementation (the in-memory lexical store below, or
// the chromem-go embedding store) at wiring time.
//
// Rationale: keeps domain contracts centralized while allowing pluggable
// backends (vector databases, embedding indexes, etc.) to be added without
// introducing dependency cycles.
package vectorstore
