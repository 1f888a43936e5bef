package effect

import (
	"context"
	"sync"

	"github.com/on-the-ground/effect_ive_store/effects/cancellation"
)

// Cancellable registers every run of e under id in the context's registry, so that
// cancelling id stops it.
//
// With cancelInFlight set, runs already registered under id are cancelled before the
// new one is registered. A run cancelled through the registry completes without
// further values. The registration is removed on every terminal path.
func (e Effect[T]) Cancellable(id cancellation.ID, cancelInFlight bool) Effect[T] {
	return Effect[T]{start: func(parent context.Context, s sink[T]) {
		reg := cancellation.RegistryFrom(parent)
		if cancelInFlight {
			reg.CancelAll(id)
		}

		ctx, cancel := context.WithCancel(parent)
		var h *cancellation.Handle
		h = cancellation.NewHandle(func() {
			cancel()
			reg.Remove(id, h)
		})
		reg.Register(id, h)
		stop := context.AfterFunc(ctx, h.Dispose)

		var once sync.Once
		e.run(ctx, sink[T]{
			value: func(v T) bool {
				if ctx.Err() != nil {
					return false
				}
				return s.value(v)
			},
			terminate: func(err error) {
				once.Do(func() {
					stop()
					cancelled := ctx.Err() != nil && parent.Err() == nil
					h.Dispose()
					// h may be mid-disposal on another goroutine
					reg.Remove(id, h)
					if cancelled {
						err = nil
					}
					s.terminate(err)
				})
			},
		})
	}}
}

// Cancel returns an effect that, when run, cancels every effect registered under
// the given ids. It emits nothing and completes at once.
func Cancel[T any](ids ...cancellation.ID) Effect[T] {
	return Effect[T]{start: func(ctx context.Context, s sink[T]) {
		reg := cancellation.RegistryFrom(ctx)
		for _, id := range ids {
			reg.CancelAll(id)
		}
		s.terminate(nil)
	}}
}
