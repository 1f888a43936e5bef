// Package effects provides the handler layer of Effect-ive Store, a unidirectional
// state store whose side effects are cancellable by identifier.
//
// Side effects such as logging, configuration lookup, goroutine supervision and
// cancellation are delegated to handlers installed in a context.Context. Business
// logic performs them and never owns the runtime behind them.
//
// # Handlers
//
// Handlers are registered via `WithXxxEffectHandler(ctx, ...)`, which returns the
// derived context and a teardown giving back the parent context. Effects are
// performed through `FireAndForgetEffect` or `PerformResumableEffect`. Handlers are
// scope-bound: a nested scope shadows the outer one until its teardown runs.
//
// This package exports the registration primitives. Built-in handlers live in
// subpackages:
//   - log: zap-backed structured logging
//   - binding: key/value configuration lookup with upper-scope delegation
//   - concurrency: supervised goroutines joined on teardown
//   - cancellation: identifier-keyed registry of live effects
//
// # Store
//
// On top of the handlers, package effect models asynchronous work that emits values
// and can be cancelled by identifier, and package store runs a reducer whose
// effects feed actions back into it.
//
// Example:
//
//	func run(ctx context.Context) {
//	    ctx, endOfLog := log.WithZapEffectHandler(ctx, 10, zap.NewExample())
//	    defer endOfLog()
//
//	    ctx, endOfCancellation := cancellation.WithEffectHandler(ctx, 16, nil)
//	    defer endOfCancellation()
//
//	    s := store.New(ctx, State{}, reduce)
//	    defer s.Close()
//
//	    s.Send(QueryChanged{Query: "ber"})
//	}
package effects
