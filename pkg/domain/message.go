package domain

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn injected into the conversation context.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// SystemMessage is shorthand for a system-authored message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}
