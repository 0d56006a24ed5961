package domain

import (
	"reflect"
)

// StateDiff represents the changes an invocation made to a flow state.
// It is serialized to JSON so clients can apply partial updates.
type StateDiff struct {
	SessionID string `json:"session_id"`

	CurrentNode *string          `json:"current_node,omitempty"`
	Status      *ExecutionStatus `json:"status,omitempty"`

	// Collected contains only changed, added or deleted keys.
	// Deleted keys are present with a nil value.
	Collected map[string]any `json:"collected,omitempty"`

	// Transitions holds history entries appended since the old state.
	Transitions []Transition `json:"transitions,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, the diff describes the whole newState.
// It returns nil when nothing changed.
func Diff(oldState, newState *FlowState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.CurrentNode != newState.CurrentNode {
		node := newState.CurrentNode
		diff.CurrentNode = &node
	}
	if oldState == nil || oldState.Status != newState.Status {
		status := newState.Status
		diff.Status = &status
	}

	diff.Collected = diffCollected(oldState, newState)
	diff.Transitions = diffHistory(oldState, newState)

	if diff.CurrentNode == nil &&
		diff.Status == nil &&
		len(diff.Collected) == 0 &&
		len(diff.Transitions) == 0 {
		return nil
	}

	return diff
}

func diffCollected(old *FlowState, new *FlowState) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Collected {
			delta[k] = v
		}
		return nilIfEmpty(delta)
	}

	for k, newVal := range new.Collected {
		oldVal, exists := old.Collected[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range old.Collected {
		if _, exists := new.Collected[k]; !exists {
			delta[k] = nil
		}
	}

	return nilIfEmpty(delta)
}

// diffHistory assumes history is append-only.
func diffHistory(old *FlowState, new *FlowState) []Transition {
	if len(new.History) == 0 {
		return nil
	}
	if old == nil {
		return append([]Transition(nil), new.History...)
	}
	if len(new.History) > len(old.History) {
		return append([]Transition(nil), new.History[len(old.History):]...)
	}
	return nil
}

func nilIfEmpty(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}
