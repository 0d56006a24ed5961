package callflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aretw0/callflow/internal/logging"
	"github.com/aretw0/callflow/internal/runtime"
	"github.com/aretw0/callflow/pkg/actions"
	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/flows/leadqual"
	"github.com/aretw0/callflow/pkg/graph"
	"github.com/aretw0/callflow/pkg/guard"
	"github.com/aretw0/callflow/pkg/ports"
	"github.com/aretw0/callflow/pkg/prompts"
	"github.com/aretw0/callflow/pkg/registry"
	"github.com/aretw0/callflow/pkg/session"
)

// ErrNoBookingService is returned by New when no scheduling backend was supplied.
var ErrNoBookingService = errors.New("a booking service is required")

// Engine is the high-level entry point for the callflow library.
// It owns the validated graph and builds one dispatcher per conversation.
type Engine struct {
	graph atomic.Pointer[graph.Graph]

	booking ports.BookingService
	loader  ports.DefinitionLoader
	persona prompts.Persona
	policy  guard.Policy
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	now     func() time.Time

	registry *registry.Registry
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithBookingService sets the scheduling backend used by the booking handlers.
func WithBookingService(svc ports.BookingService) Option {
	return func(e *Engine) {
		e.booking = svc
	}
}

// WithLoader replaces the built-in lead-qualification graph with a loaded definition.
// Its actions must name handlers of the built-in registry.
func WithLoader(l ports.DefinitionLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithPersona sets the assistant identity rendered into prompts and fallback messages.
func WithPersona(p prompts.Persona) Option {
	return func(e *Engine) {
		e.persona = p
	}
}

// WithPolicy sets the retry policy of the booking handlers.
func WithPolicy(p guard.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithLifecycleHooks registers observability hooks on every conversation.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source used for prompts and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New validates the graph and returns an engine ready to open conversations.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	eng := &Engine{
		persona: prompts.DefaultPersona(),
		policy:  guard.DefaultPolicy(),
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.booking == nil {
		return nil, ErrNoBookingService
	}

	eng.registry = leadqual.Registry(eng.booking, actions.Deps{
		Persona: eng.persona,
		Policy:  eng.policy,
		Logger:  eng.logger,
	})
	if err := eng.Reload(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}

// Graph returns the graph new conversations are built on.
func (e *Engine) Graph() *graph.Graph {
	return e.graph.Load()
}

// Reload rebuilds the graph from the loader. Running conversations keep the graph they started with.
func (e *Engine) Reload(ctx context.Context) error {
	def := leadqual.Definition()
	if e.loader != nil {
		var err error
		if def, err = e.loader.Load(ctx); err != nil {
			return fmt.Errorf("load definition: %w", err)
		}
	}

	g, err := graph.New(def, e.registry)
	if err != nil {
		return err
	}
	if unreachable := g.Unreachable(); len(unreachable) > 0 {
		e.logger.Warn("graph has unreachable nodes", "graph", g.Name(), "nodes", strings.Join(unreachable, ","))
	}
	e.graph.Store(g)
	e.logger.Info("graph loaded", "graph", g.Name(), "initial", g.InitialNode())
	return nil
}

// Watch reloads the graph whenever the loader reports a change, until ctx is done.
// A definition that fails validation is logged and the previous graph is kept.
func (e *Engine) Watch(ctx context.Context) error {
	w, ok := e.loader.(ports.Watchable)
	if !ok {
		return fmt.Errorf("current loader does not support watching")
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for range changes {
		if err := e.Reload(ctx); err != nil {
			e.logger.Error("reload failed, keeping previous graph", "error", err)
		}
	}
	return nil
}

// NewConversation builds a dispatcher on the current graph. Every injected message goes to convo.
// Its signature matches session.Factory.
func (e *Engine) NewConversation(sessionID string, convo ports.ConversationContext) (*runtime.Dispatcher, error) {
	g := e.Graph()
	if g == nil {
		return nil, errors.New("engine has no graph")
	}
	renderer := prompts.NewRenderer(e.persona, prompts.WithClock(e.now))
	return runtime.New(g, convo,
		runtime.WithSessionID(sessionID),
		runtime.WithRenderer(renderer),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger.With("graph", g.Name())),
		runtime.WithClock(e.now),
	), nil
}

// Sessions returns a session manager opening conversations on this engine.
func (e *Engine) Sessions(opts ...session.Option) *session.Manager {
	all := append([]session.Option{session.WithLogger(e.logger)}, opts...)
	return session.NewManager(e.NewConversation, all...)
}
