package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	active := StatusActive
	term := StatusTerminated
	hop := Transition{From: "greeting", To: "qualify", Action: "collect_name"}

	tests := []struct {
		name     string
		old      *FlowState
		new      *FlowState
		wantDiff *StateDiff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &FlowState{
				SessionID:   "sess-1",
				CurrentNode: "greeting",
				Status:      StatusActive,
				Collected:   map[string]any{"a": 1},
			},
			wantDiff: &StateDiff{
				SessionID:   "sess-1",
				CurrentNode: &[]string{"greeting"}[0],
				Status:      &active,
				Collected:   map[string]any{"a": 1},
			},
		},
		{
			name: "No Changes",
			old: &FlowState{
				SessionID:   "sess-1",
				CurrentNode: "greeting",
				Status:      StatusActive,
				Collected:   map[string]any{"a": 1},
			},
			new: &FlowState{
				SessionID:   "sess-1",
				CurrentNode: "greeting",
				Status:      StatusActive,
				Collected:   map[string]any{"a": 1},
			},
			wantDiff: nil,
		},
		{
			name: "Status Change",
			old: &FlowState{
				SessionID:   "sess-1",
				CurrentNode: "close_call",
				Status:      StatusActive,
			},
			new: &FlowState{
				SessionID:   "sess-1",
				CurrentNode: "close_call",
				Status:      StatusTerminated,
			},
			wantDiff: &StateDiff{
				SessionID: "sess-1",
				Status:    &term,
			},
		},
		{
			name: "Collected Added & Modified",
			old: &FlowState{
				SessionID:   "sess-1",
				CurrentNode: "qualify",
				Collected:   map[string]any{"a": 1, "b": "old"},
			},
			new: &FlowState{
				SessionID:   "sess-1",
				CurrentNode: "qualify",
				Collected:   map[string]any{"a": 1, "b": "new", "c": true},
			},
			wantDiff: &StateDiff{
				SessionID: "sess-1",
				Collected: map[string]any{"b": "new", "c": true},
			},
		},
		{
			name: "History Append",
			old: &FlowState{
				SessionID:   "sess-1",
				CurrentNode: "greeting",
			},
			new: &FlowState{
				SessionID:   "sess-1",
				CurrentNode: "qualify",
				History:     []Transition{hop},
			},
			wantDiff: &StateDiff{
				SessionID:   "sess-1",
				CurrentNode: &[]string{"qualify"}[0],
				Transitions: []Transition{hop},
			},
		},
		{
			name: "Collected Deletion",
			old: &FlowState{
				Collected: map[string]any{"a": 1, "b": 2},
			},
			new: &FlowState{
				Collected: map[string]any{"a": 1},
			},
			wantDiff: &StateDiff{
				Collected: map[string]any{"b": nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("Diff() = nil, want %v", tt.wantDiff)
			}

			if got.SessionID != tt.wantDiff.SessionID {
				t.Errorf("Diff().SessionID = %v, want %v", got.SessionID, tt.wantDiff.SessionID)
			}
			if !reflect.DeepEqual(got.Collected, tt.wantDiff.Collected) {
				t.Errorf("Diff().Collected = %v, want %v", got.Collected, tt.wantDiff.Collected)
			}
			if !reflect.DeepEqual(got.Transitions, tt.wantDiff.Transitions) {
				t.Errorf("Diff().Transitions = %v, want %v", got.Transitions, tt.wantDiff.Transitions)
			}
			if !equalPtr(got.CurrentNode, tt.wantDiff.CurrentNode) {
				t.Errorf("Diff().CurrentNode = %v, want %v", got.CurrentNode, tt.wantDiff.CurrentNode)
			}
			if !equalPtr(got.Status, tt.wantDiff.Status) {
				t.Errorf("Diff().Status = %v, want %v", got.Status, tt.wantDiff.Status)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Empty Collected Omitted", func(t *testing.T) {
		s1 := &FlowState{CurrentNode: "a", Collected: map[string]any{"a": 1}}
		s2 := &FlowState{CurrentNode: "b", Collected: map[string]any{"a": 1}}
		diff := Diff(s1, s2)

		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}
		bytes, _ := json.Marshal(diff)
		if strings.Contains(string(bytes), `"collected"`) {
			t.Errorf("JSON should not contain 'collected' when empty, got: %s", string(bytes))
		}
	})

	t.Run("Deletions as Null", func(t *testing.T) {
		s1 := &FlowState{Collected: map[string]any{"a": 1, "b": 2}}
		s2 := &FlowState{Collected: map[string]any{"a": 1}}
		diff := Diff(s1, s2)

		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"b":null`) {
			t.Errorf("JSON should contain 'b':null for deletion, got: %s", string(bytes))
		}
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
