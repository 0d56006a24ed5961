package ports

import (
	"context"

	"github.com/aretw0/callflow/pkg/domain"
)

// ActionCall is the input handed to an ActionHandler.
type ActionCall struct {
	SessionID string
	Node      string
	Action    string
	Params    map[string]any

	// Collected is a read-only copy of the fields gathered so far.
	Collected map[string]any
}

// ActionHandler defines how an action is executed.
// Expected failures (missing data, service outages, empty results) are reported
// through the ActionResult. A non-nil error means the invocation could not be
// processed at all and the dispatcher leaves the flow state untouched.
type ActionHandler interface {
	Execute(ctx context.Context, call ActionCall) (domain.ActionResult, error)
}

// ActionHandlerFunc adapts a plain function to ActionHandler.
type ActionHandlerFunc func(ctx context.Context, call ActionCall) (domain.ActionResult, error)

// Execute calls f.
func (f ActionHandlerFunc) Execute(ctx context.Context, call ActionCall) (domain.ActionResult, error) {
	return f(ctx, call)
}
