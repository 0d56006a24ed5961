package memory

import (
	"sync"

	"github.com/aretw0/callflow/pkg/domain"
)

// Transcript is an in-process conversation context.
// It keeps every appended message in order and is safe for concurrent use.
type Transcript struct {
	mu   sync.RWMutex
	msgs []domain.Message
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append records one message.
func (t *Transcript) Append(role domain.Role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = append(t.msgs, domain.Message{Role: role, Content: content})
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.Message(nil), t.msgs...)
}

// Since returns the messages appended after the first n.
func (t *Transcript) Since(n int) []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if n >= len(t.msgs) {
		return nil
	}
	if n < 0 {
		n = 0
	}
	return append([]domain.Message(nil), t.msgs[n:]...)
}

// Len reports how many messages were appended.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.msgs)
}
