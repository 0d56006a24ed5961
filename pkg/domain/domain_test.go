package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_ActionLookupIsScopedToNode(t *testing.T) {
	n := Node{
		ID: "qualify",
		Actions: []ActionDef{
			{Name: "collect_qualification_data", Next: "offer"},
		},
	}

	a, ok := n.Action("collect_qualification_data")
	require.True(t, ok)
	assert.Equal(t, "offer", a.Next)

	_, ok = n.Action("check_availability")
	assert.False(t, ok)
	assert.False(t, n.IsTerminal())
	assert.True(t, Node{ID: "end"}.IsTerminal())
}

func TestNode_CloneIsDeep(t *testing.T) {
	n := Node{
		ID:           "a",
		TaskMessages: []Message{SystemMessage("ask")},
		Actions: []ActionDef{{
			Name:       "x",
			Parameters: map[string]any{"properties": map[string]any{"name": map[string]any{"type": "string"}}},
		}},
	}

	c := n.Clone()
	c.TaskMessages[0].Content = "changed"
	c.Actions[0].Parameters["properties"].(map[string]any)["name"] = "mutated"

	assert.Equal(t, "ask", n.TaskMessages[0].Content)
	assert.Equal(t, map[string]any{"type": "string"},
		n.Actions[0].Parameters["properties"].(map[string]any)["name"])
}

func TestPostAction_DefaultPhaseIsEnter(t *testing.T) {
	n := Node{PostActions: []PostAction{
		{Type: PostActionEndConversation},
		{Type: "custom", When: PhaseLeave},
	}}

	assert.Len(t, n.PostActionsFor(PhaseEnter), 1)
	assert.Equal(t, PostActionType("custom"), n.PostActionsFor(PhaseLeave)[0].Type)
}

func TestActionDef_SpecDefaultsToEmptyObjectSchema(t *testing.T) {
	spec := ActionDef{Name: "choose_email_follow_up", Description: "d"}.Spec()

	assert.Equal(t, "object", spec.Parameters["type"])
	assert.Equal(t, []string(nil), ActionDef{}.Destinations())
	assert.Equal(t, []string{"b", "c"}, ActionDef{Next: "b", OnError: "c"}.Destinations())
}

func TestFlowState_MergeAndSnapshot(t *testing.T) {
	s := NewFlowState("sess", "greeting")
	s.Merge(map[string]any{"name": "Ada", "morning_slot": "9am", "note": nil})
	s.Forget("morning_slot", "unknown")

	assert.Equal(t, map[string]any{"name": "Ada", "note": nil}, s.Collected)

	snap := s.Snapshot()
	snap.Collected["name"] = "changed"
	assert.Equal(t, "Ada", s.Collected["name"])
}

func TestFlowState_Visited(t *testing.T) {
	s := NewFlowState("sess", "a")
	assert.Equal(t, []string{"a"}, s.Visited())

	s.History = []Transition{{From: "a", To: "b"}, {From: "b", To: "c"}}
	assert.Equal(t, []string{"a", "b", "c"}, s.Visited())
}

func TestActionNotAvailableError_Unwraps(t *testing.T) {
	var err error = &ActionNotAvailableError{Action: "confirm_booking", Node: "greeting", Available: []string{"collect_name"}}

	assert.True(t, errors.Is(err, ErrActionNotAvailable))
	assert.Contains(t, err.Error(), "confirm_booking")

	var unknown error = &UnknownNodeError{Node: "ghost"}
	assert.ErrorIs(t, unknown, ErrUnknownNode)
}

func TestBookingCandidate(t *testing.T) {
	c := BookingCandidate{Date: "2026-10-19", Morning: &Slot{Time: "9:00 AM"}}

	assert.False(t, c.Empty())
	assert.Len(t, c.Slots(), 1)
	assert.True(t, BookingCandidate{}.Empty())
}
