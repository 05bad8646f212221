// Package shell carries status and transcript updates to whatever is showing
// them: a terminal, desktop notifications or a websocket hub.
package shell

import "sync"

// Status lines shown while the assistant changes state.
const (
	StatusIdle      = "Listening for wake word..."
	StatusCapturing = "Say your command..."
)

// Shell receives presentation events. Implementations must not block for
// long; they are called from the listening loop.
type Shell interface {
	StatusChanged(text string)
	TranscriptAppended(line string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) StatusChanged(string)      {}
func (Nop) TranscriptAppended(string) {}

// Tee fans events out to several shells in order.
func Tee(shells ...Shell) Shell {
	return tee(shells)
}

type tee []Shell

func (t tee) StatusChanged(text string) {
	for _, s := range t {
		s.StatusChanged(text)
	}
}

func (t tee) TranscriptAppended(line string) {
	for _, s := range t {
		s.TranscriptAppended(line)
	}
}

// Recorder keeps every event in memory. Useful to inspect what a user would
// have seen.
type Recorder struct {
	mu         sync.Mutex
	statuses   []string
	transcript []string
}

func (r *Recorder) StatusChanged(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, text)
}

func (r *Recorder) TranscriptAppended(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcript = append(r.transcript, line)
}

func (r *Recorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

func (r *Recorder) Transcript() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transcript...)
}
