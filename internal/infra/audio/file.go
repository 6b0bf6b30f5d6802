package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

var fileExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".webm": true,
	".ogg":  true,
}

// FileSource polls a directory for recorded commands. Each file is consumed
// once and renamed with a ".processed" suffix.
type FileSource struct {
	dir      string
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	processed map[string]bool
}

func NewFileSource(dir string, interval time.Duration, logger *slog.Logger) *FileSource {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		dir:       dir,
		interval:  interval,
		logger:    logger,
		processed: make(map[string]bool),
	}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(_ context.Context) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("creating audio dir: %w", err)
	}
	return nil
}

func (f *FileSource) Stop() error {
	return nil
}

func (f *FileSource) NextCommand(ctx context.Context) ([]byte, error) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		audio, err := f.checkForNewFile()
		if err != nil {
			return nil, err
		}
		if audio != nil {
			return audio, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f *FileSource) checkForNewFile() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("reading dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !fileExtensions[ext] {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		if f.processed[path] {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", path, err)
		}

		f.processed[path] = true
		if err := os.Rename(path, path+".processed"); err != nil {
			f.logger.Warn("marking audio file processed", "path", path, "error", err)
		}

		if ext == ".wav" && !wav.NewDecoder(bytes.NewReader(data)).IsValidFile() {
			f.logger.Warn("skipping invalid wav file", "path", path)
			continue
		}

		f.logger.Info("picked up audio file", "path", path, "bytes", len(data))
		return data, nil
	}

	return nil, nil
}
