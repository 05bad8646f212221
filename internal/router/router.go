// Package router dispatches a normalized command to the first registered
// handler that claims it.
package router

import (
	"context"
	log "log/slog"
)

// Handler is one category of user intent.
//
// CanHandle must be cheap and total: no I/O, no panics. Handle owns the
// command until it returns and must give up promptly when ctx is done.
type Handler interface {
	Name() string
	CanHandle(cmd string) bool
	Handle(ctx context.Context, cmd string) error
}

// Router keeps handlers in registration order. Order is significant: a
// general handler registered early shadows every specific one after it.
type Router struct {
	handlers []Handler
}

func New(handlers ...Handler) *Router {
	r := &Router{}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

func (r *Router) Register(h Handler) {
	r.handlers = append(r.handlers, h)
}

// Match returns the handler Dispatch would pick, or nil.
func (r *Router) Match(cmd string) Handler {
	for _, h := range r.handlers {
		if h.CanHandle(cmd) {
			return h
		}
	}
	return nil
}

// Dispatch runs the first matching handler. handled is false when nobody
// claimed the command, in which case no handler ran.
func (r *Router) Dispatch(ctx context.Context, cmd string) (handled bool, err error) {
	h := r.Match(cmd)
	if h == nil {
		log.Debug("No handler", "cmd", cmd)
		return false, nil
	}

	log.Debug("Dispatching", "handler", h.Name(), "cmd", cmd)
	return true, h.Handle(ctx, cmd)
}

// Handlers lists handler names in registration order.
func (r *Router) Handlers() []string {
	names := make([]string, 0, len(r.handlers))
	for _, h := range r.handlers {
		names = append(names, h.Name())
	}
	return names
}
