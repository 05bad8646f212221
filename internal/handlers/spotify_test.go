package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpotify_KeySequences(t *testing.T) {
	tests := []struct {
		cmd    string
		events []string
		reply  string
	}{
		{"next song on spotify", []string{"ctrl+right"}, "Next track."},
		{"spotify skip", []string{"ctrl+right"}, "Next track."},
		{"go back on spotify", []string{"ctrl+left"}, "Previous track."},
		{"pause spotify", []string{"space"}, "Done, sir."},
		{"spotify volume up", []string{"ctrl+up"}, "Volume up."},
		{"spotify volume down", []string{"ctrl+down"}, "Volume down."},
		{"play blinding lights on spotify", []string{"ctrl+l", "type:blinding lights", "enter"}, "Playing blinding lights on Spotify."},
		{"open spotify", nil, "Opening Spotify."},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			voice, launcher, keys := &fakeVoice{}, &fakeLauncher{}, &fakeKeyboard{}
			s := NewSpotify(voice, launcher, keys, 0)

			require.True(t, s.CanHandle(tt.cmd))
			require.NoError(t, s.Handle(context.Background(), tt.cmd))

			assert.Equal(t, []string{"spotify"}, launcher.apps)
			assert.Equal(t, tt.events, keys.events)
			assert.Equal(t, []string{tt.reply}, voice.spoken)
		})
	}
}

func TestSpotify_FallsBackToWebPlayer(t *testing.T) {
	voice, keys := &fakeVoice{}, &fakeKeyboard{}
	launcher := &fakeLauncher{appErr: errors.New("executable file not found")}
	s := NewSpotify(voice, launcher, keys, 0)

	require.NoError(t, s.Handle(context.Background(), "play starboy on spotify"))

	assert.Equal(t, []string{spotifyWeb}, launcher.urls)
	assert.Empty(t, keys.events)
	assert.Equal(t, []string{"Opening Spotify in your browser."}, voice.spoken)
}

func TestSpotify_LaunchFailure(t *testing.T) {
	launcher := &fakeLauncher{appErr: errors.New("no app"), urlErr: errors.New("no browser")}
	s := NewSpotify(&fakeVoice{}, launcher, &fakeKeyboard{}, 0)

	err := s.Handle(context.Background(), "open spotify")

	var aerr *AutomationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "launch", aerr.Step)
}

func TestSpotify_StepFailure(t *testing.T) {
	voice := &fakeVoice{}
	keys := &fakeKeyboard{failAt: 2}
	s := NewSpotify(voice, &fakeLauncher{}, keys, 0)

	err := s.Handle(context.Background(), "play starboy on spotify")

	var aerr *AutomationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "type query", aerr.Step)
	assert.Len(t, keys.events, 2, "later steps are skipped")
	assert.Empty(t, voice.spoken)
}

func TestSpotify_CancelStopsSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keys := &fakeKeyboard{}
	keys.onKey = func(n int) {
		if n == 1 {
			cancel()
		}
	}
	s := NewSpotify(&fakeVoice{}, &fakeLauncher{}, keys, 0)

	err := s.Handle(ctx, "play starboy on spotify")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"ctrl+l"}, keys.events)
}

func TestSpotifySong(t *testing.T) {
	assert.Equal(t, "starboy", spotifySong("play starboy on spotify"))
	assert.Equal(t, "starboy", spotifySong("spotify play starboy"))
	assert.Equal(t, "turn on the lights", spotifySong("play turn on the lights in spotify"))
	assert.Equal(t, "", spotifySong("play spotify"))
	assert.Equal(t, "", spotifySong("pause spotify"))
}
