package ports

import "github.com/aretw0/callflow/pkg/domain"

// ConversationContext receives every message the dispatcher injects.
// The aggregator owns ordering and delivery to the model.
type ConversationContext interface {
	Append(role domain.Role, content string)
}

// Transcript is implemented by contexts that can replay what they received.
type Transcript interface {
	ConversationContext
	Messages() []domain.Message
}
