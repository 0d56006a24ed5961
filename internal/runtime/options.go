package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/callflow/pkg/domain"
)

// Renderer turns node message templates into the text handed to the model.
type Renderer interface {
	RenderMessages(ctx context.Context, msgs []domain.Message, collected map[string]any) ([]domain.Message, error)
}

// PostActionFunc runs a post-action of the given node.
type PostActionFunc func(ctx context.Context, d *Dispatcher, node string) error

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a custom structured logger for the dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Dispatcher) {
		d.hooks = hooks
	}
}

// WithRenderer sets the message renderer. Messages are passed through untouched without one.
func WithRenderer(r Renderer) Option {
	return func(d *Dispatcher) {
		d.renderer = r
	}
}

// WithSessionID sets the conversation identifier carried by state and events.
func WithSessionID(id string) Option {
	return func(d *Dispatcher) {
		d.sessionID = id
	}
}

// WithPostAction registers a handler for a custom post-action type.
// The graph must be built with graph.WithPostActionTypes for the type to be accepted.
func WithPostAction(t domain.PostActionType, fn PostActionFunc) Option {
	return func(d *Dispatcher) {
		d.postActions[t] = fn
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}
