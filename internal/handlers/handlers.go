// Package handlers implements the command handlers the router dispatches to.
// Each handler owns one intent: CanHandle is a pure check on the normalized
// command and Handle performs the side effects.
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jarvis/internal/automation"
)

// Voice is the part of the speech boundary handlers use. *speech.IO
// implements it.
type Voice interface {
	Speak(ctx context.Context, text string) error
	Listen(ctx context.Context) (string, error)
}

// Launcher opens URLs and desktop applications.
type Launcher interface {
	OpenURL(ctx context.Context, url string) error
	OpenApp(ctx context.Context, name string) error
}

// Keyboard sends key presses to the focused window.
type Keyboard interface {
	Press(ctx context.Context, chord automation.Chord) error
	Type(ctx context.Context, text string) error
}

// Library is the persisted song table.
type Library interface {
	Find(query string) (string, bool)
	Learn(name, url string) error
}

// Resolver turns a free-text query into a single playable URL.
type Resolver interface {
	Resolve(ctx context.Context, query string) (string, error)
}

// AutomationError reports a failed step while driving an external
// application.
type AutomationError struct {
	App  string
	Step string
	Err  error
}

func (e *AutomationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.App, e.Step, e.Err)
}

func (e *AutomationError) Unwrap() error { return e.Err }

// hasWord reports whether cmd contains word as a whole word.
func hasWord(cmd, word string) bool {
	for _, f := range strings.Fields(cmd) {
		if f == word {
			return true
		}
	}
	return false
}

func hasAnyWord(cmd string, words ...string) bool {
	for _, w := range words {
		if hasWord(cmd, w) {
			return true
		}
	}
	return false
}

// removeWords drops every whole-word occurrence of words from cmd.
func removeWords(cmd string, words ...string) string {
	fields := strings.Fields(cmd)
	out := fields[:0]
	for _, f := range fields {
		drop := false
		for _, w := range words {
			if f == w {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

// pause waits d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
