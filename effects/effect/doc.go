// Package effect models asynchronous units of work that emit zero or more values
// and then terminate.
//
// An Effect is inert until subscribed. Subscribing starts it and returns at once;
// values, completion and failure arrive later on whichever goroutine the producer
// runs on. When a concurrency handler is installed in the context, producers run as
// supervised children of it, otherwise on plain goroutines.
//
// Effects can be grouped under a cancellation.ID:
//
//	type searchID struct{}
//
//	search := effect.Task(func(ctx context.Context) (Results, error) {
//	    return api.Search(ctx, query)
//	}).Cancellable(cancellation.IDOf(searchID{}), true)
//
//	// later, from any goroutine
//	effect.Cancel[Results](cancellation.IDOf(searchID{})).Subscribe(ctx, effect.Observer[Results]{})
//
// Cancellation is cooperative: a producer must watch its context and return. A
// cancellable effect stops forwarding values the moment it is cancelled and leaves
// nothing behind in the registry on any terminal path.
package effect
