// Package middleware wraps a ports.StateStore to protect the caller data kept in flow-state snapshots.
package middleware

import (
	"context"

	"github.com/aretw0/callflow/pkg/ports"
)

// Middleware allows wrapping a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain wraps store so that the first middleware sees a Save first.
func Chain(store ports.StateStore, mws ...Middleware) ports.StateStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

type pinger interface {
	Ping(ctx context.Context) error
}

// ping forwards health checks to stores that support them.
func ping(ctx context.Context, next ports.StateStore) error {
	if p, ok := next.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
