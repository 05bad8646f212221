package shell

import (
	log "log/slog"
	"strings"

	"github.com/gen2brain/beeep"
)

const title = "J.A.R.V.I.S."

// Desktop mirrors the interesting parts of the session as desktop
// notifications: the start of a capture and whatever the assistant says.
type Desktop struct {
	notify func(title, message string) error
}

func NewDesktop() *Desktop {
	return &Desktop{notify: func(title, message string) error {
		return beeep.Notify(title, message, "")
	}}
}

func (d *Desktop) StatusChanged(text string) {
	if text == StatusCapturing {
		d.send(text)
	}
}

func (d *Desktop) TranscriptAppended(line string) {
	if reply, ok := strings.CutPrefix(line, "Jarvis: "); ok {
		d.send(reply)
		return
	}
	if strings.HasPrefix(line, "Error: ") {
		d.send(line)
	}
}

func (d *Desktop) send(msg string) {
	if err := d.notify(title, msg); err != nil {
		log.Debug("Desktop notification failed", "err", err)
	}
}
