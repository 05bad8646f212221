// Package speech is the boundary between the assistant core and the audio
// engines: one utterance in as text, one utterance out as audio.
package speech

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrNoSpeech means the listen window elapsed without a recognizable
	// utterance. It is the normal outcome of most wake polls.
	ErrNoSpeech = errors.New("no speech detected")

	// ErrUnavailable means the recognition engine or the input device failed.
	ErrUnavailable = errors.New("recognition unavailable")

	// ErrMicBusy is returned by a non-blocking listen when another listen
	// already holds the microphone.
	ErrMicBusy = errors.New("microphone busy")
)

// Listener captures one utterance and returns it as text. timeout bounds the
// wait for speech onset, phraseLimit bounds the utterance itself.
type Listener interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)
}

// Speaker renders text as audio and returns once playback has finished.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// annotationRe matches the bracketed non-speech markers whisper emits,
// e.g. "[BLANK_AUDIO]" or "(music playing)".
var annotationRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// Normalize turns raw recognizer output into a command: lower-cased, trimmed,
// whitespace collapsed, annotations and surrounding punctuation removed.
func Normalize(text string) string {
	text = annotationRe.ReplaceAllString(text, " ")
	text = strings.ToLower(strings.Join(strings.Fields(text), " "))

	return strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}
