package audio_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"voice-home/internal/domain"
	"voice-home/internal/infra/audio"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileSource_ReadsAndMarksFiles(t *testing.T) {
	dir := t.TempDir()
	source := audio.NewFileSource(dir, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := source.Start(ctx); err != nil {
		t.Fatalf("starting source: %v", err)
	}
	defer source.Stop()

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644)
	testAudio := []byte("fake webm audio")
	go func() {
		time.Sleep(50 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "command.webm"), testAudio, 0644)
	}()

	received, err := source.NextCommand(ctx)
	if err != nil {
		t.Fatalf("receiving audio: %v", err)
	}

	if !bytes.Equal(received, testAudio) {
		t.Errorf("audio mismatch: got %q", received)
	}
	if _, err := os.Stat(filepath.Join(dir, "command.webm.processed")); err != nil {
		t.Errorf("file not marked processed: %v", err)
	}
}

func TestFileSource_SkipsInvalidWav(t *testing.T) {
	dir := t.TempDir()
	source := audio.NewFileSource(dir, 10*time.Millisecond, discardLogger())

	os.WriteFile(filepath.Join(dir, "a.wav"), []byte("not a wav"), 0644)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := source.NextCommand(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestEncodeWAV(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768}

	data, err := audio.EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		t.Fatal("encoded data is not a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("format: rate=%d chans=%d depth=%d", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
	}
	for i, s := range samples {
		if buf.Data[i] != int(s) {
			t.Errorf("sample %d = %d, want %d", i, buf.Data[i], s)
		}
	}
}

func TestMicrophoneSource_Unavailable(t *testing.T) {
	mic := audio.NewMicrophoneSource(16000, discardLogger())
	if err := mic.Start(context.Background()); err == nil {
		mic.Stop()
		t.Skip("microphone available in this build")
	} else if !errors.Is(err, domain.ErrMicUnavailable) {
		t.Errorf("err = %v, want ErrMicUnavailable", err)
	}
}
