package application

import (
	"context"
	"fmt"
)

type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// NoopSTT is used when no transcription backend is configured.
// It returns an error if called with actual audio data.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return "", fmt.Errorf("speech-to-text not configured: set openai.api_key to enable audio transcription")
}
