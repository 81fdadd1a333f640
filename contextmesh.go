// Package contextmesh is a context engine for multi-agent LLM applications:
// hierarchical task contexts with scoped working state, template-friendly
// field resolution, sub-task spawn and merge, knowledge offload with
// chunked retrieval, skill activation, and neuron-based prompt
// augmentation.
//
// The Engine ties the layers together with sensible in-memory defaults so
// a zero-config engine works out of the box; production deployments swap in
// an object-store repository, an embedding-backed vector store and a model
// reranker through options.
package contextmesh

import (
	"context"
	"strings"

	"github.com/hupe1980/contextmesh/core"
	"github.com/hupe1980/contextmesh/knowledge"
	"github.com/hupe1980/contextmesh/logging"
	"github.com/hupe1980/contextmesh/prompt"
	"github.com/hupe1980/contextmesh/repository"
	"github.com/hupe1980/contextmesh/skill"
	"github.com/hupe1980/contextmesh/vectorstore"
)

// Options configures an Engine.
type Options struct {
	// Repository stores offloaded artifact bytes. Defaults to in-memory.
	Repository core.ArtifactRepository
	// Vectors indexes knowledge chunks. Defaults to the in-memory lexical store.
	Vectors core.VectorStore
	// Reranker bounds oversized neuron contributions. Defaults to lexical.
	Reranker prompt.Reranker
	// AgentFactory backs agent-type skills. Optional.
	AgentFactory skill.AgentFactory
	// Config is the root context config. Defaults to core.DefaultConfig.
	Config *core.Config
	// Collection names the vector collection for knowledge chunks.
	Collection string
	// Logger receives engine logs. Defaults to a no-op logger.
	Logger logging.Logger
}

// Engine wires the context, knowledge, skill and prompt layers together.
type Engine struct {
	registry  *core.Registry
	repo      core.ArtifactRepository
	vectors   core.VectorStore
	knowledge *knowledge.Service
	skills    *skill.Service
	neurons   *prompt.Registry
	pipeline  *prompt.Pipeline
	config    *core.Config
	logger    logging.Logger
}

// New constructs an Engine. All options are optional; the zero-config
// engine runs fully in memory.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:     core.DefaultConfig(),
		Collection: knowledge.DefaultCollection,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Repository == nil {
		opts.Repository = repository.NewInMemoryRepository()
	}
	if opts.Vectors == nil {
		opts.Vectors = vectorstore.NewInMemoryStore()
	}
	if opts.Reranker == nil {
		opts.Reranker = prompt.LexicalReranker{}
	}
	if opts.Config == nil {
		opts.Config = core.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	e := &Engine{
		registry: core.NewRegistry(),
		repo:     opts.Repository,
		vectors:  opts.Vectors,
		config:   opts.Config,
		logger:   opts.Logger,
	}
	e.knowledge = knowledge.NewService(opts.Repository, opts.Vectors,
		knowledge.WithCollection(opts.Collection),
		knowledge.WithPreviewChunks(opts.Config.PreviewChunks),
		knowledge.WithLogger(opts.Logger),
	)
	e.skills = skill.NewService(
		skill.WithAgentFactory(opts.AgentFactory),
		skill.WithLogger(opts.Logger),
	)
	e.neurons = prompt.NewRegistry()
	e.registerBuiltinNeurons()
	e.pipeline = prompt.NewPipeline(e.neurons,
		prompt.WithReranker(opts.Reranker),
		prompt.WithLogger(opts.Logger),
	)
	return e
}

// registerBuiltinNeurons wires the default prompt sections: resolved task
// identity fields, the scope's active skills, and offloaded knowledge.
func (e *Engine) registerBuiltinNeurons() {
	e.neurons.Register(10, prompt.ResolveNeuron("task",
		"Task context:",
		"task_content", "origin_user_input", "user_id"))

	e.neurons.Register(20, prompt.NeuronFunc{
		NeuronName: "skills",
		Describe: func(_ *core.Context, scope core.Scope) string {
			if len(e.skills.ActiveSkills(scope)) == 0 {
				return ""
			}
			return "Active skills:"
		},
		Generate: func(_ context.Context, _ *core.Context, scope core.Scope) ([]string, error) {
			var items []string
			items = append(items, e.skills.PromptFragments(scope)...)
			if targets := e.skills.HandoffTargets(scope); len(targets) > 0 {
				items = append(items, "Hand off to: "+strings.Join(targets, ", "))
			}
			if tools := e.skills.ActiveTools(scope); len(tools) > 0 {
				items = append(items, "Available tools: "+strings.Join(tools, ", "))
			}
			return items, nil
		},
	})

	e.neurons.Register(30, prompt.NeuronFunc{
		NeuronName: "knowledge",
		Describe: func(_ *core.Context, _ core.Scope) string {
			return "Offloaded knowledge:"
		},
		Generate: func(ctx context.Context, c *core.Context, _ core.Scope) ([]string, error) {
			if len(c.State.Working.Knowledge) == 0 {
				return nil, nil
			}
			doc, err := e.knowledge.Load(ctx, knowledge.LoadOptions{Workspace: c.Workspace})
			if err != nil || doc == "" {
				return nil, err
			}
			return []string{doc}, nil
		},
	})
}

// NewRootContext builds and registers a root context for a task. When the
// engine carries a ContextMeshLogger, the context's logger is scoped to the
// task's session and task ids.
func (e *Engine) NewRootContext(in core.TaskInput) (*core.Context, error) {
	return core.NewRootContext(e.registry, in, e.config, logging.ForTask(e.logger, in.SessionID, in.TaskID))
}

// Context returns the registered context for a task id.
func (e *Engine) Context(taskID string) (*core.Context, bool) {
	return e.registry.Get(taskID)
}

// Registry exposes the context arena.
func (e *Engine) Registry() *core.Registry { return e.registry }

// Knowledge exposes the knowledge service.
func (e *Engine) Knowledge() *knowledge.Service { return e.knowledge }

// Skills exposes the skill service.
func (e *Engine) Skills() *skill.Service { return e.skills }

// Neurons exposes the prompt neuron registry for custom registrations.
func (e *Engine) Neurons() *prompt.Registry { return e.neurons }

// Offload persists a batch of artifacts under the context's workspace and
// returns the context string to place in the conversation.
func (e *Engine) Offload(ctx context.Context, c *core.Context, artifacts []*core.Artifact, bizID string) (string, error) {
	return e.knowledge.Offload(ctx, c.State.Working, c.Workspace, artifacts, bizID)
}

// Load retrieves previously offloaded knowledge for the context's workspace.
func (e *Engine) Load(ctx context.Context, c *core.Context, opts knowledge.LoadOptions) (string, error) {
	opts.Workspace = c.Workspace
	return e.knowledge.Load(ctx, opts)
}

// Augment runs the prompt pipeline for the given scope and appends the
// assembled system prompt to the scope's working state.
func (e *Engine) Augment(ctx context.Context, c *core.Context, scope core.Scope, basePrompt string) (string, error) {
	return e.pipeline.Augment(ctx, c, scope, basePrompt)
}

// Resolve resolves a context field using the hierarchical resolution rules.
func (e *Engine) Resolve(key string, c *core.Context) any {
	return core.Resolve(key, c, true)
}
