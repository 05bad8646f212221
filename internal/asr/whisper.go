// Package asr provides speech.Listener implementations.
package asr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jarvis/internal/speech"
)

// shortest recording worth transcribing, in samples at 16kHz
const minSamples = 16000 / 4

type Recorder interface {
	Record(ctx context.Context, timeout, phraseLimit time.Duration) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

// Whisper records from the microphone and transcribes locally.
type Whisper struct {
	rec Recorder
	stt Transcriber
}

func NewWhisper(rec Recorder, stt Transcriber) *Whisper {
	return &Whisper{rec: rec, stt: stt}
}

func (w *Whisper) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
	pcm, err := w.rec.Record(ctx, timeout, phraseLimit)
	if err != nil {
		return "", err
	}
	if len(pcm) < minSamples {
		return "", speech.ErrNoSpeech
	}

	text, err := w.stt.Transcribe(ctx, pcm)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %w", speech.ErrUnavailable, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", speech.ErrNoSpeech
	}
	return text, nil
}
