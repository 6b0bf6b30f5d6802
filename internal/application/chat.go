package application

import (
	"context"

	"voice-home/internal/domain"
)

// Prompt is everything a chat model needs for one reply.
type Prompt struct {
	Instruction string
	History     []domain.Turn
	Message     string
}

// ChatModel is the hosted text-generation service used for non-command text.
type ChatModel interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) (string, error)
}
