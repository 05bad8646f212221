package asr

import (
	"context"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"jarvis/internal/speech"
	"jarvis/pkg/audioconv"
)

// Replay plays back a directory of recorded utterances in file name order,
// one per Listen call. A .txt file is taken as already recognized text;
// audio files are decoded and transcribed. Once every file is used, each
// Listen waits out its timeout and reports silence.
type Replay struct {
	stt Transcriber

	mu    sync.Mutex
	files []string
	next  int
}

func NewReplay(dir string, stt Transcriber) (*Replay, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		name := e.Name()
		switch {
		case strings.EqualFold(filepath.Ext(name), ".txt"):
		case audioconv.Supported(name) && stt != nil:
		default:
			log.Debug("Replay skips file", "file", name)
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)

	log.Info("Replaying utterances", "dir", dir, "count", len(files))
	return &Replay{stt: stt, files: files}, nil
}

func (r *Replay) Listen(ctx context.Context, timeout, _ time.Duration) (string, error) {
	path, ok := r.take()
	if !ok {
		return "", waitSilence(ctx, timeout)
	}

	if strings.EqualFold(filepath.Ext(path), ".txt") {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: %w", speech.ErrUnavailable, err)
		}
		if text := strings.TrimSpace(string(b)); text != "" {
			return text, nil
		}
		return "", speech.ErrNoSpeech
	}

	pcm, err := audioconv.Decode(ctx, path, audioconv.Options{})
	if err != nil {
		return "", fmt.Errorf("%w: %w", speech.ErrUnavailable, err)
	}

	return NewWhisper(pcmRecorder(pcm), r.stt).Listen(ctx, timeout, 0)
}

// Remaining reports how many utterances have not been played yet.
func (r *Replay) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files) - r.next
}

func (r *Replay) take() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next >= len(r.files) {
		return "", false
	}
	path := r.files[r.next]
	r.next++
	return path, true
}

func waitSilence(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return speech.ErrNoSpeech
	}
}

// pcmRecorder hands out already decoded audio.
type pcmRecorder []float32

func (p pcmRecorder) Record(context.Context, time.Duration, time.Duration) ([]float32, error) {
	return p, nil
}
