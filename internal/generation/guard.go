// Package generation sequences the calls to the text services: one
// guarded request at a time per operation, with shared failure routing.
package generation

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrInFlight is returned when the same operation is already running.
var ErrInFlight = errors.New("request already in flight")

// Guard wraps an external call so that at most one invocation runs at a
// time. The flag is cleared on every exit path, panics included.
type Guard[Req, Resp any] struct {
	call func(context.Context, Req) (Resp, error)
	busy atomic.Bool
}

func NewGuard[Req, Resp any](call func(context.Context, Req) (Resp, error)) *Guard[Req, Resp] {
	return &Guard[Req, Resp]{call: call}
}

func (g *Guard[Req, Resp]) InFlight() bool { return g.busy.Load() }

// Do runs the call, or returns ErrInFlight without calling anything.
func (g *Guard[Req, Resp]) Do(ctx context.Context, req Req) (Resp, error) {
	if !g.busy.CompareAndSwap(false, true) {
		var zero Resp
		return zero, ErrInFlight
	}
	defer g.busy.Store(false)
	return g.call(ctx, req)
}
