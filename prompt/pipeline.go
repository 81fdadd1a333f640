package prompt

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/internal/util"
	"github.com/hupe1980/contextmesh/logging"
)

// Pipeline runs the registered neurons and assembles the system prompt.
type Pipeline struct {
	registry *Registry
	reranker Reranker
	logger   logging.Logger
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithReranker overrides the default lexical reranker.
func WithReranker(r Reranker) PipelineOption { return func(p *Pipeline) { p.reranker = r } }

// WithLogger sets the pipeline logger.
func WithLogger(l logging.Logger) PipelineOption { return func(p *Pipeline) { p.logger = l } }

// NewPipeline creates a pipeline over a neuron registry.
func NewPipeline(registry *Registry, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		registry: registry,
		reranker: LexicalReranker{},
		logger:   logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.ForComponent(p.logger, "prompt")
	return p
}

// contribution is one neuron's assembled section.
type contribution struct {
	name        string
	description string
	items       []string
	err         error
}

// Augment assembles the system prompt for the given scope and appends it to
// the scope's working state as a single system message. It returns the
// rendered prompt.
//
// Augment is idempotent per working state: if the history already holds a
// system message its content is returned unchanged, whether augmentation is
// enabled or not. With augmentation disabled only the rendered base prompt
// is emitted. A failing neuron is logged and contributes nothing; it never
// aborts the pipeline.
func (p *Pipeline) Augment(ctx context.Context, c *core.Context, scope core.Scope, basePrompt string) (string, error) {
	cfg := c.Config
	if cfg == nil {
		cfg = core.DefaultConfig()
	}

	ws := c.State.StateFor(scope)

	// The idempotence guard comes before the disabled-path branch so repeated
	// calls never stack system messages in either mode.
	if ws != nil && ws.HasSystemMessage() {
		for _, m := range ws.History {
			if m.Role == core.RoleSystem {
				return m.Content, nil
			}
		}
	}

	if !cfg.AugmentationEnabled {
		rendered := util.RenderTemplate(basePrompt, c)
		if ws != nil && rendered != "" {
			ws.AppendMessage(core.NewSystemMessage(rendered))
		}
		return rendered, nil
	}

	neurons := p.registry.Neurons(cfg)
	contributions := make([]contribution, len(neurons))

	// Descriptions are synchronous and cheap; content generation may touch
	// storage or the vector index, so it fans out.
	for i, n := range neurons {
		contributions[i].name = n.Name()
		contributions[i].description = n.Description(c, scope)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, n := range neurons {
		g.Go(func() error {
			items, err := n.Content(gctx, c, scope)
			contributions[i].items = items
			contributions[i].err = err
			return nil
		})
	}
	_ = g.Wait() // per-neuron errors are captured, never propagated

	var b strings.Builder
	if basePrompt != "" {
		b.WriteString(basePrompt)
	}
	query := c.State.Input.Content
	for i := range contributions {
		con := &contributions[i]
		if con.err != nil {
			p.logNeuron(con.name, nil, false, con.err)
			continue
		}
		items, reranked, err := p.boundItems(ctx, cfg, query, con.items)
		if err != nil {
			p.logger.Warn("prompt.rerank_failed", "neuron", con.name, "error", err)
			items = con.items
		}
		if len(items) == 0 {
			continue
		}
		p.logNeuron(con.name, items, reranked, nil)
		b.WriteString("\n\n")
		if con.description != "" {
			b.WriteString(con.description)
			b.WriteString("\n")
		}
		for _, item := range items {
			b.WriteString(item)
			b.WriteString("\n")
		}
	}

	rendered := util.RenderTemplate(strings.TrimSpace(b.String()), c)
	if ws != nil && rendered != "" {
		ws.AppendMessage(core.NewSystemMessage(rendered))
	}
	return rendered, nil
}

// logNeuron records one neuron's contribution, preferring the structured
// domain event when the logger supports it.
func (p *Pipeline) logNeuron(name string, items []string, reranked bool, err error) {
	var chars int
	for _, item := range items {
		chars += len(item)
	}
	if dl, ok := p.logger.(logging.DomainLogger); ok {
		dl.LogNeuron(name, len(items), chars, reranked, err)
		return
	}
	if err != nil {
		p.logger.Warn("prompt.neuron_failed", "neuron", name, "error", err)
		return
	}
	p.logger.Debug("prompt.neuron_contributed", "neuron", name, "items", len(items), "reranked", reranked)
}

// boundItems passes small contributions through verbatim and reranks large
// ones against the task input, dropping items under the relevance floor.
// Surviving items keep their original order.
func (p *Pipeline) boundItems(ctx context.Context, cfg *core.Config, query string, items []string) ([]string, bool, error) {
	if len(items) == 0 {
		return nil, false, nil
	}
	threshold := cfg.RerankThreshold
	if threshold <= 0 {
		threshold = core.DefaultInlineLimit
	}
	var total int
	for _, item := range items {
		total += len(item)
	}
	if total < threshold {
		return items, false, nil
	}

	scores, err := p.reranker.Rank(ctx, query, items)
	if err != nil {
		return nil, true, err
	}
	kept := make([]string, 0, len(items))
	for i, item := range items {
		if i < len(scores) && scores[i] >= cfg.MinRelevanceScore {
			kept = append(kept, item)
		}
	}
	return kept, true, nil
}
