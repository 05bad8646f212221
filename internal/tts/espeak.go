// Package tts speaks text through espeak-ng.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
jarvis_init(const char *voice, int rate)
{
	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) <= 0)
	{ return -1; }

	if (espeak_SetVoiceByName(voice) != EE_OK)
	{ return -2; }

	if (espeak_SetParameter(espeakRATE, rate, 0) != EE_OK)
	{ return -3; }

	return 0;
}

static int
jarvis_say(const char *text)
{
	if (!text)
	{ return -1; }

	if (espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL) != EE_OK)
	{ return -2; }

	return espeak_Synchronize() == EE_OK ? 0 : -3;
}

static void
jarvis_close(void)
{
	espeak_Terminate();
}
*/
import "C"

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"unsafe"

	"jarvis/internal/speech"
)

// Espeak is a speech.Speaker. espeak-ng keeps global state, so there must
// be at most one per process.
type Espeak struct {
	mu sync.Mutex
}

func New(voice string, rate int) (*Espeak, error) {
	if voice == "" {
		voice = "en"
	}
	if rate <= 0 {
		rate = 150
	}

	cvoice := C.CString(voice)
	defer C.free(unsafe.Pointer(cvoice))

	if rc := C.jarvis_init(cvoice, C.int(rate)); rc != 0 {
		return nil, fmt.Errorf("espeak init (voice %q): code %d", voice, int(rc))
	}

	log.Debug("espeak ready", "voice", voice, "rate", rate)
	return &Espeak{}, nil
}

// Speak blocks until playback finishes. If ctx ends first Speak returns
// early; the utterance still plays out in the background.
func (e *Espeak) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		done <- say(speech.BritishSpelling(text))
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Espeak) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	C.jarvis_close()
}

func say(text string) error {
	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	if rc := C.jarvis_say(ctext); rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}
	return nil
}
