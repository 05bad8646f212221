// Package mixer lowers the volume of other applications' PulseAudio streams
// while the assistant is listening, and restores them afterwards.
package mixer

import (
	"context"
	"fmt"
	log "log/slog"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type stream struct {
	ID      int
	Volume  int
	AppName string
}

type fade struct {
	id   int
	from int
	to   int
}

// runner executes one pactl invocation and returns its stdout.
type runner func(ctx context.Context, args ...string) ([]byte, error)

type Options struct {
	Factor    float64       // target = current * Factor
	MinVolume int           // never duck below this percentage
	Fade      time.Duration // fade length in both directions
	SelfNames []string      // application.name values that are left alone
}

// Ducker fades every sink input except our own. Duck and Restore are
// idempotent.
type Ducker struct {
	mu       sync.Mutex
	opts     Options
	pactl    runner
	active   bool
	original map[int]int
}

func NewDucker(opts Options) *Ducker {
	if opts.Factor <= 0 || opts.Factor > 1 {
		opts.Factor = 0.3
	}
	opts.MinVolume = clamp(opts.MinVolume)
	if opts.Fade < 0 {
		opts.Fade = 0
	}

	return &Ducker{
		opts:     opts,
		pactl:    execPactl,
		original: make(map[int]int),
	}
}

func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.original = make(map[int]int)
	fades := duckTargets(streams, d.opts)
	for _, f := range fades {
		d.original[f.id] = f.from
	}

	// streams that fail mid fade are still restored later
	d.active = true

	if len(fades) == 0 {
		return nil
	}

	log.Debug("Ducking streams", "count", len(fades))
	return d.fade(ctx, fades)
}

func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := d.list(ctx)
	if err != nil {
		return err
	}

	var fades []fade
	for _, s := range streams {
		orig, ok := d.original[s.ID]
		if !ok {
			// started after the duck
			continue
		}
		fades = append(fades, fade{id: s.ID, from: s.Volume, to: orig})
	}

	d.original = make(map[int]int)
	d.active = false

	if len(fades) == 0 {
		return nil
	}
	return d.fade(ctx, fades)
}

func duckTargets(streams []stream, opts Options) []fade {
	var fades []fade

	for _, s := range streams {
		if isSelf(s, opts.SelfNames) {
			continue
		}

		to := math.Max(float64(s.Volume)*opts.Factor, float64(opts.MinVolume))
		fades = append(fades, fade{
			id:   s.ID,
			from: s.Volume,
			to:   clamp(int(math.Round(to))),
		})
	}

	return fades
}

func isSelf(s stream, names []string) bool {
	for _, name := range names {
		if s.AppName == name {
			return true
		}
	}
	return false
}

// fade steps every target linearly from its current to its final volume.
func (d *Ducker) fade(ctx context.Context, fades []fade) error {
	const minStep = 10 * time.Millisecond

	steps := int(d.opts.Fade / minStep)
	if steps < 1 {
		steps = 1
	}

	tick := time.NewTicker(max(d.opts.Fade/time.Duration(steps), time.Millisecond))
	defer tick.Stop()

	for i := 1; i <= steps; i++ {
		frac := float64(i) / float64(steps)

		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			if err := d.setVolume(ctx, f.id, v); err != nil {
				return err
			}
		}

		if i == steps {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}

	return nil
}

func (d *Ducker) list(ctx context.Context) ([]stream, error) {
	out, err := d.pactl(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	_, err := d.pactl(ctx, "set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", clamp(percent)))
	if err != nil {
		return fmt.Errorf("set volume id=%d: %w", id, err)
	}
	return nil
}

// parseSinkInputs reads the output of `pactl list sink-inputs`.
func parseSinkInputs(text string) []stream {
	parts := strings.Split(text, "Sink Input #")
	if len(parts) <= 1 {
		return nil
	}

	var res []stream

	for _, block := range parts[1:] {
		newline := strings.IndexByte(block, '\n')
		if newline <= 0 {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(block[:newline]))
		if err != nil {
			continue
		}

		s := stream{ID: id}
		for _, line := range strings.Split(block[newline+1:], "\n") {
			line = strings.TrimSpace(line)

			switch {
			case strings.HasPrefix(line, "Volume:") && s.Volume == 0:
				if m := percentRe.FindStringSubmatch(line); m != nil {
					s.Volume, _ = strconv.Atoi(m[1])
				}
			case strings.HasPrefix(line, "application.name =") && s.AppName == "":
				s.AppName = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "application.name =")), `"`)
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}

	return res
}

func execPactl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "pactl", args...).Output()
}

func clamp(v int) int {
	return min(max(v, 0), maxVolume)
}
