package ports

import (
	"context"

	"github.com/aretw0/callflow/pkg/domain"
)

// DefinitionLoader defines how the engine retrieves a graph definition.
// This keeps the storage of definitions (files, memory) decoupled from validation.
type DefinitionLoader interface {
	Load(ctx context.Context) (*domain.Definition, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// It is used to hot-reload definitions for new conversations.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying definition changes.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
