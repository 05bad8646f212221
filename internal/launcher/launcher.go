// Package launcher opens URLs in the default browser and starts desktop
// applications through the platform opener.
package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os/exec"
	"runtime"
	"strings"
)

var ErrInvalidTarget = errors.New("invalid target")

type Launcher struct {
	goos string
	run  func(cmd *exec.Cmd) error
}

func New() *Launcher {
	return &Launcher{
		goos: runtime.GOOS,
		run:  runCmd,
	}
}

// OpenURL hands url to the system opener. It does not wait for the browser.
func (l *Launcher) OpenURL(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("%w: %q is not a web url", ErrInvalidTarget, url)
	}

	args, err := openArgs(l.goos, url)
	if err != nil {
		return err
	}

	log.Debug("Opening url", "url", url)
	return l.exec(ctx, args)
}

// OpenApp launches or focuses a desktop application by name.
func (l *Launcher) OpenApp(ctx context.Context, name string) error {
	args, err := appArgs(l.goos, name)
	if err != nil {
		return err
	}

	if _, err := exec.LookPath(args[0]); err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}

	log.Debug("Opening app", "app", name)
	return l.exec(ctx, args)
}

// exec starts the command detached from ctx: the opened program outlives
// the command that asked for it.
func (l *Launcher) exec(ctx context.Context, args []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.run(exec.Command(args[0], args[1:]...))
}

func validate(target string) error {
	switch {
	case strings.TrimSpace(target) == "":
		return fmt.Errorf("%w: empty", ErrInvalidTarget)
	case strings.HasPrefix(target, "-"):
		return fmt.Errorf("%w: cannot start with dash", ErrInvalidTarget)
	}
	return nil
}

func openArgs(goos, target string) ([]string, error) {
	if err := validate(target); err != nil {
		return nil, err
	}

	switch goos {
	case "darwin":
		return []string{"open", "--", target}, nil
	case "linux", "freebsd", "openbsd":
		return []string{"xdg-open", target}, nil
	case "windows":
		return []string{"cmd", "/c", "start", "", target}, nil
	default:
		return nil, fmt.Errorf("open not supported on %s", goos)
	}
}

func appArgs(goos, name string) ([]string, error) {
	if err := validate(name); err != nil {
		return nil, err
	}

	switch goos {
	case "darwin":
		return []string{"open", "-a", name}, nil
	case "windows":
		return []string{"cmd", "/c", "start", "", name}, nil
	case "linux", "freebsd", "openbsd":
		// desktop apps ship a launcher binary named after them
		return []string{strings.ToLower(name)}, nil
	default:
		return nil, fmt.Errorf("open not supported on %s", goos)
	}
}

// runCmd starts the opener and reaps it in the background. Openers like
// xdg-open may keep running for as long as the browser does.
func runCmd(cmd *exec.Cmd) error {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", cmd.Path, err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("Opener exited", "cmd", cmd.Path, "err", err, "stderr", strings.TrimSpace(stderr.String()))
		}
	}()

	return nil
}
