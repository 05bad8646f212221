// Package audio captures microphone input through PortAudio.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"jarvis/internal/speech"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
	frameDur   = 20 * time.Millisecond
)

var ErrNoInputDevice = errors.New("no audio input device")

type Recorder struct {
	mu        sync.Mutex
	threshold float64
}

func NewRecorder(threshold float64) *Recorder {
	return &Recorder{threshold: threshold}
}

// Init starts PortAudio and checks that a default input device exists.
func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio: %w", err)
	}

	dev, err := portaudio.DefaultInputDevice()
	if err != nil || dev == nil {
		portaudio.Terminate()
		return fmt.Errorf("%w: %v", ErrNoInputDevice, err)
	}

	return nil
}

func (r *Recorder) Close() error {
	return portaudio.Terminate()
}

// Record captures one utterance as 16kHz mono samples. It waits up to
// timeout for speech to start and stops after phraseLimit of speech or a
// short trailing silence.
func (r *Recorder) Record(ctx context.Context, timeout, phraseLimit time.Duration) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep := speech.NewEndpointer(speech.EndpointConfig{
		Frame:       frameDur,
		Threshold:   r.threshold,
		Timeout:     timeout,
		PhraseLimit: phraseLimit,
	})

	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("%w: open stream: %w", speech.ErrUnavailable, err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("%w: start stream: %w", speech.ErrUnavailable, err)
	}
	defer stream.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("%w: read: %w", speech.ErrUnavailable, err)
		}

		keep, verdict := ep.Push(buf)
		if keep {
			out = append(out, buf...)
		}

		switch verdict {
		case speech.NoSpeech:
			return nil, speech.ErrNoSpeech
		case speech.Complete:
			return out, nil
		}
	}
}
