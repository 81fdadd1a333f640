// Package skill manages the per-agent skill lifecycle: declarative skill
// definitions loaded from YAML manifests, explicit activation and offload,
// and the handoff targets produced by agent-type skills.
//
// Activation state is tracked per scope (task or agent) so two agents in the
// same task can hold different active skill sets. Activation methods return
// human-readable status strings rather than errors for the "skill not
// found" and "already active" cases; the caller relays them to the model
// verbatim.
package skill
