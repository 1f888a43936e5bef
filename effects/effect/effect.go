package effect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/on-the-ground/effect_ive_store/effects/log"
)

// ErrPanicked wraps the value recovered from a panicking producer.
var ErrPanicked = errors.New("effect producer panicked")

// Producer is the raw asynchronous computation behind an Effect.
//
// emit hands a value downstream and reports false once nobody listens anymore.
// A producer must return promptly after ctx is done.
type Producer[T any] func(ctx context.Context, emit func(T) bool) error

// sink receives what an effect produces. terminate is called exactly once.
type sink[T any] struct {
	value     func(T) bool
	terminate func(error)
}

// Effect is a lazily started asynchronous producer of T values.
// The zero value is an effect that completes immediately without output.
type Effect[T any] struct {
	start func(ctx context.Context, s sink[T])
}

// New wraps a producer into an effect.
func New[T any](producer Producer[T]) Effect[T] {
	return Effect[T]{start: func(ctx context.Context, s sink[T]) {
		spawn(ctx, func(runCtx context.Context) {
			var err error
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %v", ErrPanicked, r)
					log.TryEffect(ctx, log.LogError, "effect producer panicked", map[string]interface{}{
						"error": r,
					})
				}
				s.terminate(err)
			}()

			if err = runCtx.Err(); err != nil {
				return
			}
			err = producer(runCtx, func(v T) bool {
				if runCtx.Err() != nil {
					return false
				}
				return s.value(v)
			})
		})
	}}
}

// IsNone reports whether e is the empty effect.
func (e Effect[T]) IsNone() bool {
	return e.start == nil
}

func (e Effect[T]) run(ctx context.Context, s sink[T]) {
	if e.start == nil {
		s.terminate(nil)
		return
	}
	e.start(ctx, s)
}

// Observer receives the events of a subscription. Every callback is optional.
type Observer[T any] struct {
	OnValue     func(T)
	OnFailed    func(error)
	OnCompleted func()
}

// Subscription is one running instance of an effect.
type Subscription struct {
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
	cancelled atomic.Bool
}

// Dispose cancels the subscription. No value is delivered once Dispose has
// returned, except one whose delivery had already begun, and no terminal callback
// runs. Done closes once the producer has returned.
func (s *Subscription) Dispose() {
	s.cancel()
}

// Done is closed when the subscription has terminated on any path.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the failure of a terminated subscription; nil for success,
// cancellation or while still running.
func (s *Subscription) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Cancelled reports whether the subscription ended because it was disposed or its
// context was cancelled.
func (s *Subscription) Cancelled() bool {
	return s.cancelled.Load()
}

// Subscribe starts e and returns immediately.
//
// A failure of the wrapped computation reaches OnFailed unchanged. Cancelling ctx
// or disposing the subscription terminates it silently.
func (e Effect[T]) Subscribe(ctx context.Context, obs Observer[T]) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	var once sync.Once
	e.run(subCtx, sink[T]{
		value: func(v T) bool {
			if subCtx.Err() != nil {
				return false
			}
			if obs.OnValue != nil {
				obs.OnValue(v)
			}
			return true
		},
		terminate: func(err error) {
			once.Do(func() {
				defer close(sub.done)
				cancelled := subCtx.Err() != nil
				cancel()
				switch {
				case cancelled:
					sub.cancelled.Store(true)
				case err != nil:
					sub.err = err
					if obs.OnFailed != nil {
						obs.OnFailed(err)
					}
				default:
					if obs.OnCompleted != nil {
						obs.OnCompleted()
					}
				}
			})
		},
	})
	return sub
}

// Collect subscribes to e and blocks until it terminates, returning every value it
// emitted and its failure. A cancelled ctx ends the wait with ctx.Err().
func Collect[T any](ctx context.Context, e Effect[T]) ([]T, error) {
	var mu sync.Mutex
	var values []T
	sub := e.Subscribe(ctx, Observer[T]{
		OnValue: func(v T) {
			mu.Lock()
			values = append(values, v)
			mu.Unlock()
		},
	})
	<-sub.Done()

	mu.Lock()
	defer mu.Unlock()
	if sub.Cancelled() {
		return values, ctx.Err()
	}
	return values, sub.Err()
}
