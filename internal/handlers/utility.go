package handlers

import (
	"context"
	log "log/slog"
	"strings"
)

const farewell = "Goodbye, sir. Systems powering down."

// Utility ends the session. The shutdown func cancels the daemon's root
// context so every component stops cleanly.
type Utility struct {
	voice    Voice
	shutdown func()
}

func NewUtility(voice Voice, shutdown func()) *Utility {
	return &Utility{voice: voice, shutdown: shutdown}
}

func (*Utility) Name() string { return "utility" }

func (*Utility) CanHandle(cmd string) bool {
	return hasAnyWord(cmd, "exit", "quit", "goodbye", "shutdown") || strings.Contains(cmd, "shut down")
}

func (u *Utility) Handle(ctx context.Context, _ string) error {
	if err := u.voice.Speak(ctx, farewell); err != nil {
		log.Warn("Failed to say goodbye", "err", err)
	}

	log.Info("Shutdown requested")
	u.shutdown()
	return nil
}
