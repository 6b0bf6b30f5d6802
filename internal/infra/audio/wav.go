package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV packs mono 16-bit samples into a WAV file.
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	tmp, err := os.CreateTemp("", "voice-home-*.wav")
	if err != nil {
		return nil, fmt.Errorf("creating temp wav: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	enc := wav.NewEncoder(tmp, sampleRate, 16, 1, 1)
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing wav: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding wav: %w", err)
	}
	return io.ReadAll(tmp)
}

// isSilent reports whether every sample stays within threshold of zero.
func isSilent(samples []int16, threshold int16) bool {
	for _, s := range samples {
		if s > threshold || s < -threshold {
			return false
		}
	}
	return true
}

// utterance collects frames until trailing silence or the length cap is hit.
type utterance struct {
	threshold      int16
	silentSamples  int
	heardSpeech    bool
	samples        []int16
	maxSamples     int
	silenceSamples int
}

func newUtterance(sampleRate int) *utterance {
	return &utterance{
		threshold:      500,
		maxSamples:     sampleRate * 10,
		silenceSamples: sampleRate,
	}
}

// add appends a frame and reports whether the utterance is complete.
func (u *utterance) add(frame []int16) bool {
	silent := isSilent(frame, u.threshold)
	if !silent {
		u.heardSpeech = true
		u.silentSamples = 0
	} else {
		u.silentSamples += len(frame)
	}
	if u.heardSpeech {
		u.samples = append(u.samples, frame...)
	}

	if len(u.samples) >= u.maxSamples {
		return true
	}
	return u.heardSpeech && u.silentSamples >= u.silenceSamples
}
