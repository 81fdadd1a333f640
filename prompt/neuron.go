package prompt

import (
	"context"
	"sort"
	"sync"

	"github.com/hupe1980/contextmesh/core"
)

// Neuron contributes one concern to the assembled prompt. Description is
// computed synchronously during assembly; Content may do I/O and is invoked
// concurrently with the other neurons' Content calls.
type Neuron interface {
	// Name identifies the neuron for config filtering and logging.
	Name() string
	// Description returns the static framing text for this neuron's section,
	// or "" to omit the header.
	Description(c *core.Context, scope core.Scope) string
	// Content returns the neuron's content items.
	Content(ctx context.Context, c *core.Context, scope core.Scope) ([]string, error)
}

// NeuronFunc adapts plain functions to the Neuron interface.
type NeuronFunc struct {
	NeuronName string
	Describe   func(c *core.Context, scope core.Scope) string
	Generate   func(ctx context.Context, c *core.Context, scope core.Scope) ([]string, error)
}

// Name implements Neuron.
func (n NeuronFunc) Name() string { return n.NeuronName }

// Description implements Neuron.
func (n NeuronFunc) Description(c *core.Context, scope core.Scope) string {
	if n.Describe == nil {
		return ""
	}
	return n.Describe(c, scope)
}

// Content implements Neuron.
func (n NeuronFunc) Content(ctx context.Context, c *core.Context, scope core.Scope) ([]string, error) {
	if n.Generate == nil {
		return nil, nil
	}
	return n.Generate(ctx, c, scope)
}

// ResolveNeuron is a builtin neuron that surfaces resolved context fields:
// each configured key is resolved against the context and emitted as a
// "key: value" item. Missing fields are skipped.
func ResolveNeuron(name, description string, keys ...string) Neuron {
	return NeuronFunc{
		NeuronName: name,
		Describe: func(*core.Context, core.Scope) string {
			return description
		},
		Generate: func(_ context.Context, c *core.Context, _ core.Scope) ([]string, error) {
			var items []string
			for _, key := range keys {
				v := core.Resolve(key, c, true)
				if core.IsDefault(v) || v == nil {
					continue
				}
				if s, ok := v.(string); ok && s != "" {
					items = append(items, key+": "+s)
				}
			}
			return items, nil
		},
	}
}

// Registry holds neurons ordered by priority. Lower priority numbers appear
// earlier in the assembled prompt.
type Registry struct {
	mu      sync.RWMutex
	entries []registryEntry
}

type registryEntry struct {
	priority int
	neuron   Neuron
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds a neuron at the given priority, replacing a same-named one.
func (r *Registry) Register(priority int, n Neuron) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.neuron.Name() == n.Name() {
			r.entries[i] = registryEntry{priority: priority, neuron: n}
			r.sortLocked()
			return
		}
	}
	r.entries = append(r.entries, registryEntry{priority: priority, neuron: n})
	r.sortLocked()
}

func (r *Registry) sortLocked() {
	sort.SliceStable(r.entries, func(i, j int) bool { return r.entries[i].priority < r.entries[j].priority })
}

// Neurons returns the registered neurons in priority order, filtered by the
// config's neuron list.
func (r *Registry) Neurons(cfg *core.Config) []Neuron {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Neuron, 0, len(r.entries))
	for _, e := range r.entries {
		if cfg == nil || cfg.NeuronEnabled(e.neuron.Name()) {
			out = append(out, e.neuron)
		}
	}
	return out
}
