package core

// Default thresholds shared by the knowledge and prompt layers.
const (
	// DefaultInlineLimit is the character length below which a single
	// offloaded artifact is returned raw, and below which a neuron's items
	// skip reranking entirely.
	DefaultInlineLimit = 40000
	// DefaultPreviewChunks bounds the head and tail chunk previews emitted
	// in offload indexes.
	DefaultPreviewChunks = 5
)

// Config carries per-context tuning for prompt augmentation and knowledge
// retrieval. A child context inherits its parent's config at spawn time.
type Config struct {
	// AugmentationEnabled gates the whole prompt augmentation pipeline.
	AugmentationEnabled bool
	// Neurons filters the registered neurons by name; empty means all.
	Neurons []string
	// RerankThreshold is the concatenated item length at which a neuron's
	// contribution is reranked instead of appended verbatim.
	RerankThreshold int
	// MinRelevanceScore drops reranked items scoring below it.
	MinRelevanceScore float64
	// PreviewChunks bounds head/tail chunk previews in offload indexes.
	PreviewChunks int
	// MaxHistoryMessages caps the history window surfaced during resolution.
	MaxHistoryMessages int
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		AugmentationEnabled: true,
		RerankThreshold:     DefaultInlineLimit,
		MinRelevanceScore:   0.0,
		PreviewChunks:       DefaultPreviewChunks,
		MaxHistoryMessages:  50,
	}
}

// NeuronEnabled reports whether a neuron name passes the configured filter.
func (c *Config) NeuronEnabled(name string) bool {
	if len(c.Neurons) == 0 {
		return true
	}
	for _, n := range c.Neurons {
		if n == name {
			return true
		}
	}
	return false
}
