package speech

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Microphone serializes access to the single physical input device. Every
// listen holds it for the whole capture and releases it before returning.
type Microphone struct {
	sem *semaphore.Weighted
}

func NewMicrophone() *Microphone {
	return &Microphone{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the microphone is free or ctx is done. The returned
// release func is safe to call more than once.
func (m *Microphone) Acquire(ctx context.Context) (func(), error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	return m.releaser(), nil
}

// TryAcquire takes the microphone only if nobody holds it.
func (m *Microphone) TryAcquire() (func(), bool) {
	if !m.sem.TryAcquire(1) {
		return nil, false
	}

	return m.releaser(), true
}

func (m *Microphone) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(func() { m.sem.Release(1) })
	}
}
