package ports_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/aretw0/callflow/pkg/ports"
)

// MockStore is a minimal StateStore used to exercise the contract suite itself.
type MockStore struct {
	mu   sync.Mutex
	data map[string]*domain.FlowState
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.FlowState),
	}
}

func (m *MockStore) Save(ctx context.Context, sessionID string, state *domain.FlowState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = state.Snapshot()
	return nil
}

func (m *MockStore) Load(ctx context.Context, sessionID string) (*domain.FlowState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state.Snapshot(), nil
}

func (m *MockStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *MockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func TestStateStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, NewMockStore())
}

type staticLoader struct {
	def domain.Definition
}

func (l staticLoader) Load(ctx context.Context) (*domain.Definition, error) {
	def := l.def
	def.Nodes = make(map[string]domain.Node, len(l.def.Nodes))
	for id, n := range l.def.Nodes {
		def.Nodes[id] = n.Clone()
	}
	return &def, nil
}

func TestDefinitionLoader_Contract(t *testing.T) {
	loader := staticLoader{def: domain.Definition{
		InitialNode: "a",
		Nodes: map[string]domain.Node{
			"a": {ID: "a", Actions: []domain.ActionDef{{Name: "go", Next: "b"}}},
			"b": {ID: "b"},
		},
	}}

	ports.RunDefinitionLoaderContract(t, loader, "a", []string{"a", "b"})
}

func TestActionHandlerFunc(t *testing.T) {
	var h ports.ActionHandler = ports.ActionHandlerFunc(func(ctx context.Context, call ports.ActionCall) (domain.ActionResult, error) {
		return domain.Success("hi "+call.Action, nil), nil
	})

	res, err := h.Execute(context.Background(), ports.ActionCall{Action: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Message != "hi x" {
		t.Errorf("Expected 'hi x', got %q", res.Message)
	}
}
