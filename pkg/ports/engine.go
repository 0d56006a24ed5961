package ports

import (
	"context"

	"github.com/aretw0/callflow/pkg/domain"
)

// Outcome describes what a single invocation did.
type Outcome struct {
	Result domain.ActionResult `json:"result"`
	From   string              `json:"from"`
	To     string              `json:"to"`

	// Transitioned is false when the result kept the conversation on the same node.
	Transitioned bool `json:"transitioned"`

	// Messages holds the destination's task messages when a transition happened.
	Messages []domain.Message `json:"messages,omitempty"`

	Terminated bool `json:"terminated"`

	// Unsaved is set when the step committed but its snapshot could not be stored.
	Unsaved bool `json:"unsaved,omitempty"`

	// Diff is the change the step made to the flow state. Set by the session manager.
	Diff *domain.StateDiff `json:"-"`
}

// Conversation is the model-facing contract of a single flow dispatcher.
type Conversation interface {
	Initialize(ctx context.Context) ([]domain.Message, error)
	Invoke(ctx context.Context, action string, params map[string]any) (*Outcome, error)
	CurrentNode() string
	Catalog() []domain.ActionSpec
	State() *domain.FlowState
	Done() <-chan struct{}
}
