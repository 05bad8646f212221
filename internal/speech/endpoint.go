package speech

import (
	"math"
	"time"
)

// Verdict is the endpointer's decision after each frame.
type Verdict int

const (
	Continue Verdict = iota
	Complete
	NoSpeech
)

// EndpointConfig tunes the energy based utterance detector.
type EndpointConfig struct {
	Frame           time.Duration // duration of one pushed frame
	Threshold       float64       // RMS above which a frame counts as speech
	Timeout         time.Duration // max wait for speech onset
	PhraseLimit     time.Duration // max utterance length once speech started
	TrailingSilence time.Duration // silence that ends an utterance
}

// Endpointer decides, frame by frame, where an utterance starts and ends.
type Endpointer struct {
	cfg EndpointConfig

	waited   time.Duration
	spoken   time.Duration
	silence  time.Duration
	speaking bool
}

func NewEndpointer(cfg EndpointConfig) *Endpointer {
	if cfg.Frame <= 0 {
		cfg.Frame = 20 * time.Millisecond
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.015
	}
	if cfg.TrailingSilence <= 0 {
		cfg.TrailingSilence = 600 * time.Millisecond
	}

	return &Endpointer{cfg: cfg}
}

// Push feeds one frame. keep reports whether the frame belongs to the
// utterance and should be retained.
func (e *Endpointer) Push(frame []float32) (keep bool, v Verdict) {
	loud := RMS(frame) > e.cfg.Threshold

	if !e.speaking {
		if loud {
			e.speaking = true
			e.spoken = e.cfg.Frame
			return true, Continue
		}

		e.waited += e.cfg.Frame
		if e.cfg.Timeout > 0 && e.waited >= e.cfg.Timeout {
			return false, NoSpeech
		}
		return false, Continue
	}

	e.spoken += e.cfg.Frame
	if loud {
		e.silence = 0
	} else {
		e.silence += e.cfg.Frame
	}

	if e.silence >= e.cfg.TrailingSilence {
		return true, Complete
	}
	if e.cfg.PhraseLimit > 0 && e.spoken >= e.cfg.PhraseLimit {
		return true, Complete
	}

	return true, Continue
}

// Speaking reports whether speech onset has been seen.
func (e *Endpointer) Speaking() bool { return e.speaking }

func RMS(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}

	var s float64
	for _, x := range frame {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(frame)))
}
