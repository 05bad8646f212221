package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeb_OpensKnownSite(t *testing.T) {
	voice, launcher := &fakeVoice{}, &fakeLauncher{}
	w := NewWeb(voice, launcher, nil)

	require.True(t, w.CanHandle("open github"))
	require.NoError(t, w.Handle(context.Background(), "open github"))

	assert.Equal(t, []string{"https://github.com"}, launcher.urls)
	assert.Equal(t, []string{"Opening github"}, voice.spoken)
}

func TestWeb_GoogleSearch(t *testing.T) {
	voice, launcher := &fakeVoice{}, &fakeLauncher{}
	w := NewWeb(voice, launcher, nil)

	require.True(t, w.CanHandle("search for golang generics"))
	require.NoError(t, w.Handle(context.Background(), "search for golang generics"))

	assert.Equal(t, []string{"https://www.google.com/search?q=golang+generics"}, launcher.urls)
	assert.Equal(t, []string{"Searching Google."}, voice.spoken)
}

func TestWeb_CanHandle(t *testing.T) {
	w := NewWeb(&fakeVoice{}, &fakeLauncher{}, nil)

	assert.False(t, w.CanHandle("tell me a joke"))
	assert.False(t, w.CanHandle("research papers"), "search must be a whole word")
}

func TestWeb_SetSites(t *testing.T) {
	launcher := &fakeLauncher{}
	w := NewWeb(&fakeVoice{}, launcher, nil)

	w.SetSites([]Site{{Name: "reddit", URL: "https://reddit.com"}})

	assert.False(t, w.CanHandle("open github"))
	require.NoError(t, w.Handle(context.Background(), "open reddit"))
	assert.Equal(t, []string{"https://reddit.com"}, launcher.urls)
}

func TestWeb_LauncherError(t *testing.T) {
	boom := errors.New("no browser")
	w := NewWeb(&fakeVoice{}, &fakeLauncher{urlErr: boom}, nil)

	assert.ErrorIs(t, w.Handle(context.Background(), "open youtube"), boom)
}

func TestClock(t *testing.T) {
	voice := &fakeVoice{}
	c := NewClock(voice)
	c.now = func() time.Time { return time.Date(2024, time.March, 9, 14, 5, 0, 0, time.Local) }

	require.True(t, c.CanHandle("what time is it"))
	require.NoError(t, c.Handle(context.Background(), "what time is it"))
	require.NoError(t, c.Handle(context.Background(), "what's the date today"))

	assert.Equal(t, []string{"It's 2:05 PM, sir.", "Today is Saturday, March 9, 2024."}, voice.spoken)
	assert.False(t, c.CanHandle("play timeless"))
}

type fakeAnswerer struct {
	answer string
	err    error
}

func (f fakeAnswerer) Answer(context.Context, string) (string, error) { return f.answer, f.err }

func TestAsk(t *testing.T) {
	voice := &fakeVoice{}
	a := NewAsk(voice, fakeAnswerer{answer: "Forty-two, sir."})

	assert.True(t, a.CanHandle("what is the meaning of life"))
	assert.False(t, a.CanHandle(""))

	require.NoError(t, a.Handle(context.Background(), "what is the meaning of life"))
	assert.Equal(t, []string{"Forty-two, sir."}, voice.spoken)

	boom := errors.New("rate limited")
	assert.ErrorIs(t, NewAsk(voice, fakeAnswerer{err: boom}).Handle(context.Background(), "hi"), boom)
}
