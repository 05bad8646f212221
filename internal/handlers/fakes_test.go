package handlers

import (
	"context"
	"errors"
	"sync"

	"jarvis/internal/automation"
)

type fakeVoice struct {
	mu     sync.Mutex
	spoken []string
	heard  []string
}

func (v *fakeVoice) Speak(_ context.Context, text string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spoken = append(v.spoken, text)
	return nil
}

func (v *fakeVoice) Listen(context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.heard) == 0 {
		return "", errors.New("no speech")
	}
	text := v.heard[0]
	v.heard = v.heard[1:]
	return text, nil
}

type fakeLauncher struct {
	urls   []string
	apps   []string
	appErr error
	urlErr error
}

func (l *fakeLauncher) OpenURL(_ context.Context, url string) error {
	if l.urlErr != nil {
		return l.urlErr
	}
	l.urls = append(l.urls, url)
	return nil
}

func (l *fakeLauncher) OpenApp(_ context.Context, name string) error {
	if l.appErr != nil {
		return l.appErr
	}
	l.apps = append(l.apps, name)
	return nil
}

type fakeKeyboard struct {
	events []string
	onKey  func(n int)
	failAt int // 1-based event index that fails, 0 for never
}

func (k *fakeKeyboard) record(ev string) error {
	k.events = append(k.events, ev)
	if k.onKey != nil {
		k.onKey(len(k.events))
	}
	if k.failAt == len(k.events) {
		return errors.New("window not focused")
	}
	return nil
}

func (k *fakeKeyboard) Press(ctx context.Context, c automation.Chord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.record(c.String())
}

func (k *fakeKeyboard) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.record("type:" + text)
}

type fakeResolver struct {
	url     string
	err     error
	queries []string
}

func (r *fakeResolver) Resolve(_ context.Context, q string) (string, error) {
	r.queries = append(r.queries, q)
	return r.url, r.err
}
