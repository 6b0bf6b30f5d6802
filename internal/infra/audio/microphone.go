//go:build portaudio

package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"voice-home/internal/domain"
)

const framesPerBuffer = 1024

// MicrophoneSource records one utterance at a time from the default input
// device, ending each on a second of silence.
type MicrophoneSource struct {
	sampleRate int
	logger     *slog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	frame  []int16
}

func NewMicrophoneSource(sampleRate int, logger *slog.Logger) *MicrophoneSource {
	return &MicrophoneSource{
		sampleRate: sampleRate,
		logger:     logger,
	}
}

func (m *MicrophoneSource) Name() string {
	return "microphone"
}

func (m *MicrophoneSource) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w: %w", domain.ErrMicUnavailable, err)
	}

	m.frame = make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, m.frame)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w: %w", domain.ErrMicUnavailable, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w: %w", domain.ErrMicUnavailable, err)
	}

	m.stream = stream
	m.logger.Info("microphone started", "sampleRate", m.sampleRate)
	return nil
}

func (m *MicrophoneSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		m.stream.Stop()
		m.stream.Close()
		m.stream = nil
	}
	portaudio.Terminate()
	return nil
}

func (m *MicrophoneSource) NextCommand(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil, domain.ErrMicUnavailable
	}

	u := newUtterance(m.sampleRate)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := m.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			return nil, fmt.Errorf("reading from stream: %w: %w", domain.ErrMicUnavailable, err)
		}

		frame := make([]int16, len(m.frame))
		copy(frame, m.frame)
		if u.add(frame) {
			break
		}
	}

	m.logger.Info("utterance recorded", "samples", len(u.samples))
	return EncodeWAV(u.samples, m.sampleRate)
}
