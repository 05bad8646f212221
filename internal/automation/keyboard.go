// Package automation drives the desktop through synthetic key presses.
package automation

import (
	"context"
	"fmt"
	log "log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

// Keyboard sends key presses to the focused window. The virtual device is
// created on first use.
type Keyboard struct {
	mu  sync.Mutex
	kb  keybd_event.KeyBonding
	err error

	once sync.Once
}

func NewKeyboard() *Keyboard {
	return &Keyboard{}
}

func (k *Keyboard) init() error {
	k.once.Do(func() {
		k.kb, k.err = keybd_event.NewKeyBonding()
		if k.err != nil {
			k.err = fmt.Errorf("keyboard: %w", k.err)
			return
		}
		// uinput devices need a moment before the desktop picks them up
		if runtime.GOOS == "linux" {
			time.Sleep(2 * time.Second)
		}
	})
	return k.err
}

func (k *Keyboard) Press(ctx context.Context, c Chord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := k.init(); err != nil {
		return err
	}

	codes := make([]int, 0, len(c.Keys))
	for _, key := range c.Keys {
		code, ok := vk[key]
		if !ok {
			return fmt.Errorf("keyboard: unknown key %s", key)
		}
		codes = append(codes, code)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	log.Debug("Pressing", "chord", c.String())
	return k.launch(c.Ctrl, c.Shift, codes...)
}

// Type enters text one key at a time, checking ctx between keys.
func (k *Keyboard) Type(ctx context.Context, text string) error {
	if err := k.init(); err != nil {
		return err
	}

	keys, skipped := strokes(text)
	if len(skipped) > 0 {
		log.Debug("Cannot type characters", "runes", string(skipped))
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	for _, s := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := k.launch(false, s.shift, s.code); err != nil {
			return err
		}
	}

	return nil
}

func (k *Keyboard) launch(ctrl, shift bool, codes ...int) error {
	defer k.kb.Clear()

	k.kb.HasCTRL(ctrl)
	k.kb.HasSHIFT(shift)
	k.kb.SetKeys(codes...)

	if err := k.kb.Launching(); err != nil {
		return fmt.Errorf("keyboard: %w", err)
	}
	return nil
}
