package speech

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"
)

// Options are the default listen bounds used by IO.Listen.
type Options struct {
	Timeout     time.Duration
	PhraseLimit time.Duration
}

// IO bundles the microphone guard with the recognition and synthesis
// engines. It is built once at startup and handed to the wake controller
// and to every handler that needs to talk to the user.
type IO struct {
	mic      *Microphone
	listener Listener
	speaker  Speaker
	opts     Options

	mu      sync.RWMutex
	onSpeak func(string)
}

func NewIO(mic *Microphone, listener Listener, speaker Speaker, opts Options) *IO {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.PhraseLimit <= 0 {
		opts.PhraseLimit = 5 * time.Second
	}

	return &IO{
		mic:      mic,
		listener: listener,
		speaker:  speaker,
		opts:     opts,
	}
}

// OnSpeak registers a hook called with every line the assistant says.
func (io *IO) OnSpeak(f func(text string)) {
	io.mu.Lock()
	defer io.mu.Unlock()
	io.onSpeak = f
}

// Listen waits for the microphone and captures one command with the default
// bounds.
func (io *IO) Listen(ctx context.Context) (string, error) {
	return io.ListenFor(ctx, io.opts.Timeout, io.opts.PhraseLimit)
}

// ListenFor waits for the microphone and captures one utterance.
func (io *IO) ListenFor(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
	release, err := io.mic.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	return io.listen(ctx, timeout, phraseLimit)
}

// TryListen captures one utterance only if the microphone is free right now;
// otherwise it returns ErrMicBusy without touching the device.
func (io *IO) TryListen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
	release, ok := io.mic.TryAcquire()
	if !ok {
		return "", ErrMicBusy
	}
	defer release()

	return io.listen(ctx, timeout, phraseLimit)
}

func (io *IO) listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
	raw, err := io.listener.Listen(ctx, timeout, phraseLimit)
	if err != nil {
		return "", err
	}

	text := Normalize(raw)
	if text == "" {
		return "", ErrNoSpeech
	}

	log.Debug("Recognized", "text", text)
	return text, nil
}

func (io *IO) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	io.mu.RLock()
	hook := io.onSpeak
	io.mu.RUnlock()

	if hook != nil {
		hook(text)
	}

	log.Info("Speaking", "text", text)
	if err := io.speaker.Speak(ctx, text); err != nil {
		return fmt.Errorf("speak: %w", err)
	}

	return nil
}
