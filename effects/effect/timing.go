package effect

import (
	"context"
	"sync"
	"time"

	"github.com/on-the-ground/effect_ive_store/effects/cancellation"
)

// Deferred starts e after d, unless the subscription is cancelled first.
func Deferred[T any](e Effect[T], d time.Duration) Effect[T] {
	return Effect[T]{start: func(ctx context.Context, s sink[T]) {
		if err := ctx.Err(); err != nil {
			s.terminate(err)
			return
		}
		timer := time.AfterFunc(d, func() {
			e.run(ctx, s)
		})
		context.AfterFunc(ctx, func() {
			if timer.Stop() {
				s.terminate(ctx.Err())
			}
		})
	}}
}

// Debounce delays e by d and cancels any earlier run under id that is still waiting
// or running, so only the last of a burst gets through.
func Debounce[T any](e Effect[T], id cancellation.ID, d time.Duration) Effect[T] {
	return Deferred(e, d).Cancellable(id, true)
}

// Throttle delivers at most one value of e per interval under id.
//
// A value arriving in an open window is held until the window closes. With latest
// set the newest held value is delivered, otherwise the first one. Windows are
// tracked per id in the context's registry, so they span subscriptions.
func Throttle[T any](e Effect[T], id cancellation.ID, interval time.Duration, latest bool) Effect[T] {
	return Effect[T]{start: func(ctx context.Context, s sink[T]) {
		reg := cancellation.RegistryFrom(ctx)

		var (
			mu           sync.Mutex
			scheduled    *time.Timer
			pending      int
			upstreamDone bool
			upstreamErr  error
			finished     bool
		)
		// settle must be called with mu held; it reports whether the caller has to
		// terminate downstream.
		settle := func() bool {
			if upstreamDone && pending == 0 && !finished {
				finished = true
				return true
			}
			return false
		}
		release := func() {
			mu.Lock()
			pending--
			done := settle()
			err := upstreamErr
			mu.Unlock()
			if done {
				s.terminate(err)
			}
		}
		context.AfterFunc(ctx, func() {
			mu.Lock()
			t := scheduled
			scheduled = nil
			mu.Unlock()
			if t != nil && t.Stop() {
				release()
			}
		})

		e.run(ctx, sink[T]{
			value: func(v T) bool {
				held, delay := reg.Throttle(id, time.Now(), interval, v, latest)
				out, ok := held.(T)
				if !ok {
					out = v
				}
				if delay <= 0 {
					return s.value(out)
				}

				mu.Lock()
				defer mu.Unlock()
				if scheduled != nil && scheduled.Stop() {
					pending--
				}
				pending++
				var t *time.Timer
				t = time.AfterFunc(delay, func() {
					mu.Lock()
					current := scheduled == t
					if current {
						scheduled = nil
					}
					mu.Unlock()
					if current && ctx.Err() == nil {
						reg.MarkThrottled(id, time.Now(), interval)
						s.value(out)
					}
					release()
				})
				scheduled = t
				return true
			},
			terminate: func(err error) {
				mu.Lock()
				upstreamDone = true
				upstreamErr = err
				done := settle()
				mu.Unlock()
				if done {
					s.terminate(err)
				}
			},
		})
	}}.Cancellable(id, true)
}
