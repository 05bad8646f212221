package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"jarvis/internal/asr"
	"jarvis/internal/audio"
	"jarvis/internal/automation"
	"jarvis/internal/config"
	"jarvis/internal/handlers"
	"jarvis/internal/ipc"
	"jarvis/internal/launcher"
	"jarvis/internal/library"
	"jarvis/internal/logging"
	"jarvis/internal/mixer"
	"jarvis/internal/nlu"
	"jarvis/internal/notify"
	"jarvis/internal/proxy"
	"jarvis/internal/router"
	"jarvis/internal/shell"
	"jarvis/internal/speech"
	"jarvis/internal/tts"
	"jarvis/internal/wake"
	"jarvis/pkg/stt"
)

const greeting = "Systems initialized. JARVIS online."

func main() {
	if err := run(); err != nil {
		log.Error("Fatal error", "err", err)
		os.Exit(1)
	}
}

func run() error {
	loader := config.NewLoader("jarvis")
	cfg, err := loader.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	logger, logFile := logging.New(logging.Options{
		Level:   level,
		Console: os.Stdout,
		File:    cfg.Log.File,
	})
	defer logFile.Close()
	log.SetDefault(logger)

	log.Info("Booting up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy, 30*time.Second)
	if err != nil {
		return fmt.Errorf("proxy: %w", err)
	}
	log.Debug("Loaded http client", "proxy", cfg.Proxy)

	listener, closeListener, err := newListener(cfg)
	if err != nil {
		return err
	}
	defer closeListener()

	speaker, err := tts.New(cfg.TTS.Voice, cfg.TTS.Rate)
	if err != nil {
		return fmt.Errorf("tts: %w", err)
	}
	defer speaker.Close()
	log.Debug("Loaded speech synthesizer", "voice", cfg.TTS.Voice)

	io := speech.NewIO(speech.NewMicrophone(), listener, speaker, speech.Options{
		Timeout:     cfg.Listen.Timeout,
		PhraseLimit: cfg.Listen.PhraseLimit,
	})

	// the controller is built after the shells; hub wake frames may arrive first
	var ctrl atomic.Pointer[wake.Controller]
	trigger := func() bool {
		c := ctrl.Load()
		return c != nil && c.Trigger()
	}

	shells := []shell.Shell{shell.NewConsole(os.Stdout)}
	if cfg.Notify.Desktop {
		shells = append(shells, shell.NewDesktop())
	}

	var hub *shell.Hub
	if cfg.Hub.URL != "" {
		hub, err = shell.NewHub(ctx, cfg.Hub.URL, cfg.Hub.Shard, func() { trigger() })
		if err != nil {
			log.Warn("Hub unavailable, continuing without it", "url", cfg.Hub.URL, "err", err)
		} else {
			shells = append(shells, hub)
		}
	}
	sh := shell.Tee(shells...)
	io.OnSpeak(func(text string) { sh.TranscriptAppended("Jarvis: " + text) })

	lib := library.Open(cfg.Library)
	log.Debug("Loaded library", "path", cfg.Library, "entries", lib.Len())

	launch := launcher.New()
	web := handlers.NewWeb(io, launch, cfg.SiteList())

	r := router.New(
		handlers.NewUtility(io, shutdown),
		handlers.NewSpotify(io, launch, automation.NewKeyboard(), cfg.Spotify.StepDelay),
		handlers.NewClock(io),
		handlers.NewWikipedia(io, httpClient),
		handlers.NewMusic(io, launch, lib, handlers.NewYouTube(httpClient)),
		web,
	)
	if cfg.OpenAI.Key != "" {
		r.Register(handlers.NewAsk(io, nlu.New(nlu.Config{
			APIKey: cfg.OpenAI.Key,
			Model:  cfg.OpenAI.Model,
			Client: httpClient,
		})))
	}
	log.Debug("Registered handlers", "order", r.Handlers())

	opts := []wake.Option{wake.WithShell(sh)}
	if cfg.Duck.Enabled {
		opts = append(opts, wake.WithDucker(mixer.NewDucker(mixer.Options{
			Factor:    cfg.Duck.Factor,
			Fade:      200 * time.Millisecond,
			SelfNames: []string{"jarvis", "espeak"},
		})))
	}
	if _, err := os.Stat(cfg.Chime); err == nil {
		opts = append(opts, wake.WithChime(notify.NewChime(cfg.Chime).Play))
	} else if cfg.Chime != "" {
		log.Debug("No chime", "path", cfg.Chime, "err", err)
	}

	ctrl.Store(wake.New(wake.Config{
		WakePhrase:     cfg.WakePhrase,
		PollTimeout:    cfg.Poll.Timeout,
		PollInterval:   cfg.Poll.Interval,
		HandlerTimeout: cfg.HandlerTimeout,
	}, io, r, opts...))

	if loader.Watch(func(c *config.Config) { web.SetSites(c.SiteList()) }) {
		log.Debug("Watching config for site changes")
	}

	log.Info("Boot up - successful")
	if err := io.Speak(ctx, greeting); err != nil {
		log.Error("Failed to voice out", "err", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Load().Run(gctx)
	})
	g.Go(func() error {
		return ipc.Serve(gctx, cfg.Socket, control(ctrl.Load(), shutdown))
	})
	if hub != nil {
		g.Go(func() error {
			return hub.Run(gctx)
		})
	}

	err = g.Wait()
	log.Info("Shut down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newListener picks the recognition engine: a replay directory when one is
// configured, the microphone and whisper otherwise.
func newListener(cfg *config.Config) (speech.Listener, func(), error) {
	sttOpts := stt.Options{
		Language:      cfg.Language,
		Threads:       cfg.Whisper.Threads,
		InitialPrompt: "Jarvis, play, open, Spotify, YouTube, Wikipedia.",
	}

	if cfg.Replay != "" {
		var tr asr.Transcriber
		closeFn := func() {}
		if whisper, err := stt.NewTranscriber(cfg.Whisper.Model, sttOpts); err == nil {
			tr = whisper
			closeFn = func() { whisper.Close() }
		} else {
			log.Warn("Whisper unavailable, replaying text files only", "err", err)
		}

		replay, err := asr.NewReplay(cfg.Replay, tr)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		log.Info("Replaying utterances", "dir", cfg.Replay, "files", replay.Remaining())
		return replay, closeFn, nil
	}

	rec := audio.NewRecorder(cfg.Listen.Threshold)
	if err := rec.Init(); err != nil {
		return nil, nil, fmt.Errorf("audio: %w", err)
	}
	log.Debug("Loaded recorder")

	whisper, err := stt.NewTranscriber(cfg.Whisper.Model, sttOpts)
	if err != nil {
		rec.Close()
		return nil, nil, fmt.Errorf("whisper: %w", err)
	}
	log.Debug("Loaded whisper", "model", cfg.Whisper.Model)

	return asr.NewWhisper(rec, whisper), func() {
		whisper.Close()
		rec.Close()
	}, nil
}

func control(ctrl *wake.Controller, shutdown func()) ipc.Handler {
	return func(msg ipc.ControlMessage) ipc.Reply {
		switch msg.Cmd {
		case ipc.CmdWake:
			if !ctrl.Trigger() {
				return ipc.Reply{State: ctrl.State().String(), Error: "capture already active or queued"}
			}
			return ipc.Reply{OK: true, State: ctrl.State().String()}
		case ipc.CmdStatus:
			return ipc.Reply{OK: true, State: ctrl.State().String()}
		case ipc.CmdQuit:
			log.Info("Quit requested over control socket")
			shutdown()
			return ipc.Reply{OK: true}
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ipc.Reply{Error: "unknown command " + msg.Cmd}
		}
	}
}
