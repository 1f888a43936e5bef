package effect

import (
	"context"
	"sync"
)

// None returns an effect that completes immediately without output.
func None[T any]() Effect[T] {
	return Effect[T]{}
}

// Just emits the given values in order and completes.
func Just[T any](values ...T) Effect[T] {
	return New(func(ctx context.Context, emit func(T) bool) error {
		for _, v := range values {
			if !emit(v) {
				return ctx.Err()
			}
		}
		return nil
	})
}

// Fail terminates with err without emitting anything.
func Fail[T any](err error) Effect[T] {
	return New(func(context.Context, func(T) bool) error {
		return err
	})
}

// Task runs fn once and emits its result.
func Task[T any](fn func(ctx context.Context) (T, error)) Effect[T] {
	return New(func(ctx context.Context, emit func(T) bool) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		emit(v)
		return nil
	})
}

// FireAndForget runs fn for its side effect only.
func FireAndForget[T any](fn func(ctx context.Context) error) Effect[T] {
	return New(func(ctx context.Context, _ func(T) bool) error {
		return fn(ctx)
	})
}

// Map transforms every value of e with f.
func Map[T, R any](e Effect[T], f func(T) R) Effect[R] {
	if e.IsNone() {
		return None[R]()
	}
	return Effect[R]{start: func(ctx context.Context, s sink[R]) {
		e.run(ctx, sink[T]{
			value:     func(v T) bool { return s.value(f(v)) },
			terminate: s.terminate,
		})
	}}
}

// Merge runs all effects concurrently and completes when every one has terminated.
// The first failure cancels the remaining effects and is reported once they are done.
// Values are delivered one at a time.
func Merge[T any](effects ...Effect[T]) Effect[T] {
	running := make([]Effect[T], 0, len(effects))
	for _, e := range effects {
		if !e.IsNone() {
			running = append(running, e)
		}
	}
	switch len(running) {
	case 0:
		return None[T]()
	case 1:
		return running[0]
	}

	return Effect[T]{start: func(ctx context.Context, s sink[T]) {
		ctx, cancel := context.WithCancel(ctx)

		var (
			deliverMu sync.Mutex
			mu        sync.Mutex
			remaining = len(running)
			failure   error
		)
		for _, e := range running {
			e.run(ctx, sink[T]{
				value: func(v T) bool {
					deliverMu.Lock()
					defer deliverMu.Unlock()
					if ctx.Err() != nil {
						return false
					}
					return s.value(v)
				},
				terminate: func(err error) {
					mu.Lock()
					remaining--
					first := err != nil && failure == nil && ctx.Err() == nil
					if first {
						failure = err
					}
					last := remaining == 0
					result := failure
					mu.Unlock()

					if first || last {
						cancel()
					}
					if last {
						s.terminate(result)
					}
				},
			})
		}
	}}
}

// Concat runs the effects one after another. A failure stops the sequence.
func Concat[T any](effects ...Effect[T]) Effect[T] {
	if len(effects) == 0 {
		return None[T]()
	}

	return Effect[T]{start: func(ctx context.Context, s sink[T]) {
		var next func(i int)
		next = func(i int) {
			if i == len(effects) {
				s.terminate(nil)
				return
			}
			if err := ctx.Err(); err != nil {
				s.terminate(err)
				return
			}
			effects[i].run(ctx, sink[T]{
				value: s.value,
				terminate: func(err error) {
					if err != nil {
						s.terminate(err)
						return
					}
					next(i + 1)
				},
			})
		}
		next(0)
	}}
}
