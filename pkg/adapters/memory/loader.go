package memory

import (
	"context"
	"fmt"

	"github.com/aretw0/callflow/pkg/domain"
)

// Loader implements ports.DefinitionLoader over a definition held in memory.
type Loader struct {
	def *domain.Definition
}

// NewLoader wraps def. Node IDs are filled from their map keys.
func NewLoader(def *domain.Definition) (*Loader, error) {
	if def == nil {
		return nil, fmt.Errorf("definition is nil")
	}
	return &Loader{def: copyDefinition(def)}, nil
}

// Load returns an independent copy of the definition.
func (l *Loader) Load(ctx context.Context) (*domain.Definition, error) {
	return copyDefinition(l.def), nil
}

func copyDefinition(def *domain.Definition) *domain.Definition {
	out := &domain.Definition{
		Name:        def.Name,
		InitialNode: def.InitialNode,
		Nodes:       make(map[string]domain.Node, len(def.Nodes)),
	}
	for id, n := range def.Nodes {
		c := n.Clone()
		c.ID = id
		out.Nodes[id] = c
	}
	return out
}
