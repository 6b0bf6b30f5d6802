//go:build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"

	"voice-home/internal/domain"
)

// MicrophoneSource stub when portaudio is not available
type MicrophoneSource struct {
	logger *slog.Logger
}

func NewMicrophoneSource(sampleRate int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{logger: logger}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	return fmt.Errorf("%w: rebuild with -tags portaudio", domain.ErrMicUnavailable)
}

func (m *MicrophoneSource) Stop() error {
	return nil
}

func (m *MicrophoneSource) NextCommand(_ context.Context) ([]byte, error) {
	return nil, domain.ErrMicUnavailable
}
