// Package wake runs the listening loop: poll for the wake phrase while Idle,
// capture and dispatch one command while Capturing.
package wake

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"jarvis/internal/shell"
	"jarvis/internal/speech"
)

type State int32

const (
	Idle State = iota
	Capturing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrCaptureActive is returned by Capture when another capture is running.
var ErrCaptureActive = errors.New("capture already in progress")

// Spoken lines.
const (
	Confirmation  = "Yes, sir?"
	NotUnderstood = "I didn't catch that, sir."
	Apology       = "I'm sorry, sir. Something went wrong."
)

// Voice is the speech boundary the controller drives. *speech.IO implements it.
type Voice interface {
	Listen(ctx context.Context) (string, error)
	TryListen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)
	Speak(ctx context.Context, text string) error
}

// Dispatcher routes one command. *router.Router implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd string) (bool, error)
}

// Ducker lowers other audio while a command is being captured.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Config struct {
	WakePhrase     string
	PollTimeout    time.Duration // onset wait of one wake poll
	PollLimit      time.Duration // max length of a wake utterance
	PollInterval   time.Duration // min spacing between polls
	ErrorBackoff   time.Duration // poll spacing after an engine failure
	HandlerTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.WakePhrase == "" {
		c.WakePhrase = "jarvis"
	}
	c.WakePhrase = strings.ToLower(strings.TrimSpace(c.WakePhrase))
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Second
	}
	if c.PollLimit <= 0 {
		c.PollLimit = 3 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = 2 * time.Second
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
}

type Option func(*Controller)

func WithShell(s shell.Shell) Option {
	return func(c *Controller) { c.shell = s }
}

func WithDucker(d Ducker) Option {
	return func(c *Controller) { c.ducker = d }
}

// WithChime plays a short cue whenever a capture starts.
func WithChime(f func(ctx context.Context) error) Option {
	return func(c *Controller) { c.chime = f }
}

type Controller struct {
	cfg    Config
	voice  Voice
	router Dispatcher
	shell  shell.Shell
	ducker Ducker
	chime  func(ctx context.Context) error

	state    atomic.Int32
	requests chan struct{}

	pollMu     sync.Mutex
	cancelPoll context.CancelFunc
}

func New(cfg Config, voice Voice, router Dispatcher, opts ...Option) *Controller {
	cfg.setDefaults()

	c := &Controller{
		cfg:      cfg,
		voice:    voice,
		router:   router,
		shell:    shell.Nop{},
		requests: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Trigger requests one capture without a wake phrase. It aborts an
// in-flight wake poll so the microphone frees up quickly. A trigger while a
// capture is running or already queued is dropped and false is returned.
func (c *Controller) Trigger() bool {
	if c.State() == Capturing {
		return false
	}

	select {
	case c.requests <- struct{}{}:
	default:
		return false
	}

	c.pollMu.Lock()
	if c.cancelPoll != nil {
		c.cancelPoll()
	}
	c.pollMu.Unlock()

	return true
}

// Run polls for the wake phrase until ctx is done. It serves manual triggers
// between polls.
func (c *Controller) Run(ctx context.Context) error {
	limiter := rate.NewLimiter(rate.Every(c.cfg.PollInterval), 1)

	log.Info("Listening loop started", "wake", c.cfg.WakePhrase)
	c.shell.StatusChanged(shell.StatusIdle)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.requests:
			c.runCapture(ctx, false)
			continue
		default:
		}

		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		woke, err := c.poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Warn("Wake poll failed", "err", err)
			limiter.SetLimit(rate.Every(c.cfg.ErrorBackoff))
			continue
		}
		limiter.SetLimit(rate.Every(c.cfg.PollInterval))

		if woke {
			c.runCapture(ctx, true)
		}
	}
}

// poll runs one PollOnce that Trigger can cancel.
func (c *Controller) poll(ctx context.Context) (bool, error) {
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.pollMu.Lock()
	c.cancelPoll = cancel
	c.pollMu.Unlock()

	defer func() {
		c.pollMu.Lock()
		c.cancelPoll = nil
		c.pollMu.Unlock()
	}()

	woke, err := c.PollOnce(pctx)
	if errors.Is(err, context.Canceled) {
		return false, nil
	}
	return woke, err
}

// PollOnce listens once for the wake phrase. It never waits for the
// microphone: if a capture holds it, PollOnce returns false immediately.
func (c *Controller) PollOnce(ctx context.Context) (bool, error) {
	if c.State() == Capturing {
		return false, nil
	}

	text, err := c.voice.TryListen(ctx, c.cfg.PollTimeout, c.cfg.PollLimit)
	switch {
	case errors.Is(err, speech.ErrMicBusy), errors.Is(err, speech.ErrNoSpeech):
		return false, nil
	case err != nil:
		return false, err
	}

	if !strings.Contains(text, c.cfg.WakePhrase) {
		log.Debug("Ignoring utterance", "text", text)
		return false, nil
	}

	log.Info("Wake phrase detected", "text", text)
	return true, nil
}

func (c *Controller) runCapture(ctx context.Context, confirm bool) {
	if confirm {
		if err := c.voice.Speak(ctx, Confirmation); err != nil {
			log.Error("Failed to confirm wake", "err", err)
		}
	}

	if err := c.Capture(ctx); err != nil && ctx.Err() == nil {
		log.Warn("Capture aborted", "err", err)
	}
}

// Capture records one command and dispatches it. Empty or failed
// recognition returns to Idle silently. Handler failures are logged and
// answered with a spoken apology; they are never returned.
func (c *Controller) Capture(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(Idle), int32(Capturing)) {
		return ErrCaptureActive
	}
	defer func() {
		c.state.Store(int32(Idle))
		c.shell.StatusChanged(shell.StatusIdle)
	}()

	// this capture serves any trigger queued before it started
	select {
	case <-c.requests:
	default:
	}

	lg := log.With("session", uuid.NewString())
	lg.Info("Capturing command")

	c.shell.StatusChanged(shell.StatusCapturing)
	c.shell.TranscriptAppended("Listening...")

	if c.chime != nil {
		if err := c.chime(ctx); err != nil {
			lg.Debug("Chime failed", "err", err)
		}
	}

	text, err := c.listen(ctx, lg)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lg.Debug("No command", "err", err)
		return nil
	}

	lg.Info("Command", "text", text)
	c.shell.TranscriptAppended("You: " + text)
	c.dispatch(ctx, lg, text)

	return nil
}

func (c *Controller) listen(ctx context.Context, lg *log.Logger) (string, error) {
	if c.ducker != nil {
		if err := c.ducker.Duck(ctx); err != nil {
			lg.Warn("Failed to duck audio", "err", err)
		}
		defer func() {
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := c.ducker.Restore(rctx); err != nil {
				lg.Warn("Failed to restore audio", "err", err)
			}
		}()
	}

	return c.voice.Listen(ctx)
}

func (c *Controller) dispatch(ctx context.Context, lg *log.Logger, text string) {
	hctx, cancel := context.WithTimeout(ctx, c.cfg.HandlerTimeout)
	defer cancel()

	handled, err := c.safeDispatch(hctx, text)
	if ctx.Err() != nil {
		// shutting down
		return
	}

	switch {
	case err != nil:
		lg.Error("Handler failed", "text", text, "err", err)
		c.shell.TranscriptAppended("Error: " + err.Error())
		c.say(ctx, lg, Apology)
	case !handled:
		lg.Info("Unhandled command", "text", text)
		c.say(ctx, lg, NotUnderstood)
	}
}

func (c *Controller) safeDispatch(ctx context.Context, text string) (handled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			handled, err = true, fmt.Errorf("handler panic: %v", r)
		}
	}()

	return c.router.Dispatch(ctx, text)
}

func (c *Controller) say(ctx context.Context, lg *log.Logger, text string) {
	if err := c.voice.Speak(ctx, text); err != nil {
		lg.Error("Failed to voice out", "err", err)
	}
}
