package handlers

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"jarvis/internal/library"
)

// Music plays songs from the library, falling back to the first YouTube
// result. Resolved songs are learned so the next request is a library hit.
type Music struct {
	voice    Voice
	launcher Launcher
	library  Library
	resolver Resolver
}

func NewMusic(voice Voice, launcher Launcher, lib Library, resolver Resolver) *Music {
	return &Music{voice: voice, launcher: launcher, library: lib, resolver: resolver}
}

func (*Music) Name() string { return "music" }

func (*Music) CanHandle(cmd string) bool {
	return hasWord(cmd, "play")
}

func (m *Music) Handle(ctx context.Context, cmd string) error {
	song := strings.TrimSuffix(removeWords(cmd, "play"), " on youtube")

	if song == "" {
		if err := m.voice.Speak(ctx, "What should I play, sir?"); err != nil {
			return err
		}

		var err error
		song, err = m.voice.Listen(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Debug("No song named", "err", err)
			return nil
		}
	}

	if url, ok := m.library.Find(song); ok {
		if err := m.launcher.OpenURL(ctx, url); err != nil {
			return fmt.Errorf("open %s: %w", song, err)
		}
		return m.voice.Speak(ctx, fmt.Sprintf("Playing %s from your collection.", song))
	}

	if err := m.voice.Speak(ctx, fmt.Sprintf("Searching YouTube for %s.", song)); err != nil {
		log.Warn("Failed to announce search", "err", err)
	}

	return m.playFromYouTube(ctx, song)
}

func (m *Music) playFromYouTube(ctx context.Context, song string) error {
	url, err := m.resolver.Resolve(ctx, song)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("YouTube lookup failed, opening results", "song", song, "err", err)
		return m.launcher.OpenURL(ctx, youtubeSearchURL(song))
	}

	if err := m.launcher.OpenURL(ctx, url); err != nil {
		return fmt.Errorf("open %s: %w", song, err)
	}

	if err := m.library.Learn(song, url); err != nil {
		var perr *library.PersistError
		if !errors.As(err, &perr) {
			return err
		}
		log.Warn("Learned song not saved", "song", song, "err", err)
		return nil
	}

	log.Info("Learned song", "song", song, "url", url)
	return nil
}
