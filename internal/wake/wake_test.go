package wake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/shell"
	"jarvis/internal/speech"
)

// fakeListener answers from a script; past the end it blocks until ctx is done.
type fakeListener struct {
	mu     sync.Mutex
	script []string
	calls  int
	gate   chan struct{} // when set, every call waits on it first
}

func (l *fakeListener) Listen(ctx context.Context, _, _ time.Duration) (string, error) {
	l.mu.Lock()
	i := l.calls
	l.calls++
	gate := l.gate
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	l.mu.Lock()
	var line string
	scripted := i < len(l.script)
	if scripted {
		line = l.script[i]
	}
	l.mu.Unlock()

	if scripted {
		if line == "" {
			return "", speech.ErrNoSpeech
		}
		return line, nil
	}

	<-ctx.Done()
	return "", ctx.Err()
}

func (l *fakeListener) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type fakeSpeaker struct {
	mu    sync.Mutex
	lines []string
}

func (s *fakeSpeaker) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
	return nil
}

func (s *fakeSpeaker) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

type fakeRouter struct {
	mu      sync.Mutex
	cmds    []string
	handled bool
	err     error
	panic   bool
}

func (r *fakeRouter) Dispatch(_ context.Context, cmd string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	if r.panic {
		panic("handler exploded")
	}
	return r.handled, r.err
}

func (r *fakeRouter) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cmds...)
}

type fakeDucker struct {
	mu    sync.Mutex
	calls []string
}

func (d *fakeDucker) Duck(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "duck")
	return nil
}

func (d *fakeDucker) Restore(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "restore")
	return errors.New("pactl missing")
}

type fixture struct {
	listener *fakeListener
	speaker  *fakeSpeaker
	router   *fakeRouter
	shell    *shell.Recorder
	io       *speech.IO
	ctrl     *Controller
}

func newFixture(script []string, opts ...Option) *fixture {
	f := &fixture{
		listener: &fakeListener{script: script},
		speaker:  &fakeSpeaker{},
		router:   &fakeRouter{handled: true},
		shell:    &shell.Recorder{},
	}
	f.io = speech.NewIO(speech.NewMicrophone(), f.listener, f.speaker, speech.Options{})

	opts = append([]Option{WithShell(f.shell)}, opts...)
	f.ctrl = New(Config{PollInterval: time.Millisecond}, f.io, f.router, opts...)
	return f
}

func TestCapture_EmptyRecognitionTwice(t *testing.T) {
	f := newFixture([]string{"", ""})

	for i := 0; i < 2; i++ {
		require.NoError(t, f.ctrl.Capture(context.Background()))
		assert.Equal(t, Idle, f.ctrl.State())
	}

	assert.Empty(t, f.router.Commands(), "empty recognition must not dispatch")
	assert.Empty(t, f.speaker.Lines(), "no error is surfaced to the user")
	assert.Equal(t, []string{
		shell.StatusCapturing, shell.StatusIdle,
		shell.StatusCapturing, shell.StatusIdle,
	}, f.shell.Statuses())
}

func TestCapture_DispatchesCommand(t *testing.T) {
	f := newFixture([]string{"Play one song."})

	require.NoError(t, f.ctrl.Capture(context.Background()))

	assert.Equal(t, []string{"play one song"}, f.router.Commands())
	assert.Contains(t, f.shell.Transcript(), "You: play one song")
	assert.Empty(t, f.speaker.Lines())
}

func TestCapture_Unhandled(t *testing.T) {
	f := newFixture([]string{"tell me a joke"})
	f.router.handled = false

	require.NoError(t, f.ctrl.Capture(context.Background()))
	assert.Equal(t, []string{NotUnderstood}, f.speaker.Lines())
}

func TestCapture_HandlerErrorBecomesApology(t *testing.T) {
	f := newFixture([]string{"open spotify"})
	f.router.err = errors.New("spotify not responding")

	require.NoError(t, f.ctrl.Capture(context.Background()))
	assert.Equal(t, []string{Apology}, f.speaker.Lines())
	assert.Equal(t, Idle, f.ctrl.State())
}

func TestCapture_HandlerPanicBecomesApology(t *testing.T) {
	f := newFixture([]string{"play starboy"})
	f.router.panic = true

	require.NotPanics(t, func() {
		require.NoError(t, f.ctrl.Capture(context.Background()))
	})
	assert.Equal(t, []string{Apology}, f.speaker.Lines())
	assert.Equal(t, Idle, f.ctrl.State())
}

func TestCapture_DucksOnlyWhileListening(t *testing.T) {
	d := &fakeDucker{}
	f := newFixture([]string{"play starboy"}, WithDucker(d))

	require.NoError(t, f.ctrl.Capture(context.Background()))
	assert.Equal(t, []string{"duck", "restore"}, d.calls)
	assert.Len(t, f.router.Commands(), 1, "a restore failure does not block dispatch")
}

func TestCapture_SecondCaptureRejected(t *testing.T) {
	f := newFixture(nil)
	f.listener.gate = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Capture(context.Background()) }()

	require.Eventually(t, func() bool { return f.listener.Calls() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, Capturing, f.ctrl.State())

	assert.ErrorIs(t, f.ctrl.Capture(context.Background()), ErrCaptureActive)

	f.listener.mu.Lock()
	f.listener.script = []string{""}
	f.listener.mu.Unlock()
	close(f.listener.gate)

	require.NoError(t, <-done)
	assert.Equal(t, Idle, f.ctrl.State())
}

func TestCapture_ShutdownCancelsListen(t *testing.T) {
	f := newFixture(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Capture(ctx) }()

	require.Eventually(t, func() bool { return f.listener.Calls() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("capture did not observe cancellation")
	}
	assert.Equal(t, Idle, f.ctrl.State())
	assert.Empty(t, f.router.Commands())
}

func TestPollOnce_DoesNotTakeMicWhileCapturing(t *testing.T) {
	f := newFixture(nil)
	f.listener.gate = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Capture(context.Background()) }()
	require.Eventually(t, func() bool { return f.listener.Calls() == 1 }, time.Second, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			woke, err := f.ctrl.PollOnce(context.Background())
			assert.NoError(t, err)
			assert.False(t, woke)
		}()
	}
	wg.Wait()

	_, err := f.io.TryListen(context.Background(), time.Second, time.Second)
	assert.ErrorIs(t, err, speech.ErrMicBusy)
	assert.Equal(t, 1, f.listener.Calls(), "only the capture reached the microphone")

	f.listener.mu.Lock()
	f.listener.script = []string{""}
	f.listener.mu.Unlock()
	close(f.listener.gate)
	require.NoError(t, <-done)
}

func TestPollOnce_MicHeldByHandler(t *testing.T) {
	mic := speech.NewMicrophone()
	l := &fakeListener{script: []string{"jarvis"}}
	io := speech.NewIO(mic, l, &fakeSpeaker{}, speech.Options{})
	ctrl := New(Config{}, io, &fakeRouter{})

	release, err := mic.Acquire(context.Background())
	require.NoError(t, err)

	woke, err := ctrl.PollOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, woke)
	assert.Equal(t, 0, l.Calls())

	release()
	woke, err = ctrl.PollOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, woke)
}

func TestPollOnce_WakePhraseMatching(t *testing.T) {
	f := newFixture([]string{"Hey, Jarvis!", "hello there", ""})

	woke, err := f.ctrl.PollOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, woke)

	woke, err = f.ctrl.PollOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, woke)

	woke, err = f.ctrl.PollOnce(context.Background())
	require.NoError(t, err, "silence is not an error")
	assert.False(t, woke)
}

func TestRun_WakePhraseThenCommand(t *testing.T) {
	f := newFixture([]string{"jarvis", "play starboy"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Run(ctx) }()

	require.Eventually(t, func() bool { return len(f.router.Commands()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"play starboy"}, f.router.Commands())
	assert.Equal(t, []string{Confirmation}, f.speaker.Lines())

	cancel()
	require.NoError(t, <-done)
}

func TestRun_TriggerInterruptsPoll(t *testing.T) {
	// first listen is a wake poll that would hang; the trigger cancels it
	f := newFixture(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.ctrl.Run(ctx) }()
	require.Eventually(t, func() bool { return f.listener.Calls() == 1 }, time.Second, time.Millisecond)

	f.listener.mu.Lock()
	f.listener.script = []string{"", "open github"}
	f.listener.mu.Unlock()

	require.True(t, f.ctrl.Trigger())

	require.Eventually(t, func() bool { return len(f.router.Commands()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"open github"}, f.router.Commands())
	assert.Empty(t, f.speaker.Lines(), "manual wake is not confirmed aloud")

	cancel()
	require.NoError(t, <-done)
}

func TestTrigger_Coalesces(t *testing.T) {
	f := newFixture(nil)

	assert.True(t, f.ctrl.Trigger())
	assert.False(t, f.ctrl.Trigger(), "one capture already queued")
}
