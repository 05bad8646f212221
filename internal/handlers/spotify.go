package handlers

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"jarvis/internal/automation"
)

const spotifyWeb = "https://open.spotify.com"

type step struct {
	name string
	run  func(ctx context.Context) error
}

// Spotify drives the Spotify desktop client with its keyboard shortcuts.
type Spotify struct {
	voice    Voice
	launcher Launcher
	keys     Keyboard
	delay    time.Duration
}

func NewSpotify(voice Voice, launcher Launcher, keys Keyboard, delay time.Duration) *Spotify {
	return &Spotify{voice: voice, launcher: launcher, keys: keys, delay: delay}
}

func (*Spotify) Name() string { return "spotify" }

func (*Spotify) CanHandle(cmd string) bool {
	return strings.Contains(cmd, "spotify")
}

func (s *Spotify) Handle(ctx context.Context, cmd string) error {
	if err := s.launcher.OpenApp(ctx, "spotify"); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		log.Warn("Spotify app unavailable, using web player", "err", err)
		if err := s.launcher.OpenURL(ctx, spotifyWeb); err != nil {
			return &AutomationError{App: "spotify", Step: "launch", Err: err}
		}
		// the web player has no global shortcuts to drive
		return s.voice.Speak(ctx, "Opening Spotify in your browser.")
	}

	reply, steps := s.plan(cmd)

	// let the window take focus
	if err := pause(ctx, s.delay); err != nil {
		return err
	}

	for i, st := range steps {
		if i > 0 {
			if err := pause(ctx, s.delay); err != nil {
				return err
			}
		}
		if err := st.run(ctx); err != nil {
			return &AutomationError{App: "spotify", Step: st.name, Err: err}
		}
	}

	return s.voice.Speak(ctx, reply)
}

// plan maps a command to what is said afterwards and the key steps to run.
func (s *Spotify) plan(cmd string) (string, []step) {
	press := func(name string, c automation.Chord) step {
		return step{name: name, run: func(ctx context.Context) error { return s.keys.Press(ctx, c) }}
	}

	if song := spotifySong(cmd); song != "" {
		return fmt.Sprintf("Playing %s on Spotify.", song), []step{
			press("focus search", automation.Ctrl(automation.KeyL)),
			{name: "type query", run: func(ctx context.Context) error { return s.keys.Type(ctx, song) }},
			press("submit", automation.Press(automation.KeyEnter)),
		}
	}

	switch {
	case hasAnyWord(cmd, "next", "skip"):
		return "Next track.", []step{press("next", automation.Ctrl(automation.KeyRight))}
	case hasAnyWord(cmd, "previous", "back"):
		return "Previous track.", []step{press("previous", automation.Ctrl(automation.KeyLeft))}
	case strings.Contains(cmd, "volume up") || hasWord(cmd, "louder"):
		return "Volume up.", []step{press("volume up", automation.Ctrl(automation.KeyUp))}
	case strings.Contains(cmd, "volume down") || hasWord(cmd, "quieter"):
		return "Volume down.", []step{press("volume down", automation.Ctrl(automation.KeyDown))}
	case hasAnyWord(cmd, "pause", "stop", "resume", "continue", "play"):
		return "Done, sir.", []step{press("toggle playback", automation.Press(automation.KeySpace))}
	}

	return "Opening Spotify.", nil
}

// spotifySong extracts the song from "play <song> on spotify".
func spotifySong(cmd string) string {
	fields := strings.Fields(cmd)

	start := -1
	for i, f := range fields {
		if f == "play" {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return ""
	}

	song := fields[start:]
	if n := len(song); n > 0 && song[n-1] == "spotify" {
		song = song[:n-1]
		if n := len(song); n > 0 && (song[n-1] == "on" || song[n-1] == "in") {
			song = song[:n-1]
		}
	}

	return strings.Join(song, " ")
}
