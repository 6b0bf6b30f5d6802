package application

import (
	"context"
	"sync"

	"voice-home/internal/domain"
)

// Transcript is the ordered, append-only record of chat messages.
type Transcript interface {
	Append(ctx context.Context, msg domain.Message) error
	Recent(ctx context.Context, limit int) ([]domain.Message, error)
}

type MemoryTranscript struct {
	mu       sync.RWMutex
	messages []domain.Message
}

func NewMemoryTranscript() *MemoryTranscript {
	return &MemoryTranscript{}
}

func (t *MemoryTranscript) Append(_ context.Context, msg domain.Message) error {
	t.mu.Lock()
	t.messages = append(t.messages, msg)
	t.mu.Unlock()
	return nil
}

// Recent returns up to limit of the newest messages, oldest first. A
// non-positive limit returns everything.
func (t *MemoryTranscript) Recent(_ context.Context, limit int) ([]domain.Message, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	start := 0
	if limit > 0 && len(t.messages) > limit {
		start = len(t.messages) - limit
	}
	out := make([]domain.Message, len(t.messages)-start)
	copy(out, t.messages[start:])
	return out, nil
}
