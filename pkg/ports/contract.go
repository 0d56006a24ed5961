package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewFlowState(sessionID, "greeting")
		state.Collected["name"] = "Ada Lovelace"
		state.Collected["budget"] = 5000
		state.History = []domain.Transition{{From: "consent", To: "greeting", Action: "collect_recording_consent"}}

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrentNode, loaded.CurrentNode)
		assert.Equal(t, state.Status, loaded.Status)
		assert.Equal(t, "Ada Lovelace", loaded.Collected["name"])
		// JSON-backed stores turn ints into float64; only presence is part of the contract.
		assert.NotNil(t, loaded.Collected["budget"])
		assert.Len(t, loaded.History, 1)
	})

	t.Run("Load Returns a Copy", func(t *testing.T) {
		state := domain.NewFlowState(sessionID, "greeting")
		require.NoError(t, store.Save(ctx, sessionID, state))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Collected["tampered"] = true

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotContains(t, again.Collected, "tampered")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewFlowState(sessionID, "greeting"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewFlowState(id1, "greeting"))
		_ = store.Save(ctx, id2, domain.NewFlowState(id2, "greeting"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunDefinitionLoaderContract verifies that a loader returns a definition whose
// initial node and node keys are consistent with the expected node IDs.
func RunDefinitionLoaderContract(t *testing.T, loader DefinitionLoader, wantInitial string, wantNodes []string) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load", func(t *testing.T) {
		def, err := loader.Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, def)
		assert.Equal(t, wantInitial, def.InitialNode)
		assert.ElementsMatch(t, wantNodes, def.NodeIDs())
	})

	t.Run("Node IDs Match Keys", func(t *testing.T) {
		def, err := loader.Load(ctx)
		require.NoError(t, err)
		for id, node := range def.Nodes {
			assert.Equal(t, id, node.ID, "node %q must carry its own key as ID", id)
		}
	})

	t.Run("Load Returns Independent Copies", func(t *testing.T) {
		first, err := loader.Load(ctx)
		require.NoError(t, err)
		delete(first.Nodes, wantInitial)

		second, err := loader.Load(ctx)
		require.NoError(t, err)
		assert.Contains(t, second.Nodes, wantInitial)
	})
}
