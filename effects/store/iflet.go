package store

import (
	"sync"

	"github.com/on-the-ground/effect_ive_store/effects/cancellation"
)

type presence int

const (
	presenceUnknown presence = iota
	presenceAbsent
	presencePresent
)

type edge int

const (
	edgeNone edge = iota
	edgeAppeared
	edgeVanished
)

// nextPresence folds one observation into the presence machine. Starting from
// presenceUnknown the first observation is always an edge.
func nextPresence(prev presence, present bool) (presence, edge) {
	switch {
	case present && prev != presencePresent:
		return presencePresent, edgeAppeared
	case !present && prev != presenceAbsent:
		return presenceAbsent, edgeVanished
	default:
		return prev, edgeNone
	}
}

// IfLet watches an optional piece of state and reacts only when it flips between
// nil and non-nil.
//
// On every flip to non-nil, unwrap receives a store narrowed to the value. On every
// flip to nil, and on a nil initial state, orElse is called. Changes of the value
// while it stays non-nil are not reported. Both callbacks may be nil.
//
// At most one narrowed store is live. It is closed on the flip back to nil, before
// orElse runs, and keeps reporting the last non-nil value it saw afterwards.
//
// The returned handle stops the observation, closes the live narrowed store and
// calls onDisposed, exactly once.
func IfLet[S, A any](
	parent *Store[*S, A],
	unwrap func(*Store[S, A]),
	orElse func(),
	onDisposed func(),
) cancellation.Disposable {
	var (
		mu       sync.Mutex
		current  = presenceUnknown
		live     *Store[S, A]
		disposed bool
	)

	observation := parent.Observe(func(opt *S) {
		mu.Lock()
		if disposed {
			mu.Unlock()
			return
		}
		var e edge
		current, e = nextPresence(current, opt != nil)
		var child, stale *Store[S, A]
		switch e {
		case edgeAppeared:
			child = narrow(parent, *opt)
			live = child
		case edgeVanished:
			stale, live = live, nil
		}
		mu.Unlock()

		switch e {
		case edgeAppeared:
			if unwrap != nil {
				unwrap(child)
			}
		case edgeVanished:
			if stale != nil {
				stale.Close()
			}
			if orElse != nil {
				orElse()
			}
		}
	})

	closeNarrowed := cancellation.DisposableFunc(func() {
		mu.Lock()
		disposed = true
		stale := live
		live = nil
		mu.Unlock()

		if stale != nil {
			stale.Close()
		}
	})

	return cancellation.Join(onDisposed, observation, closeNarrowed)
}

// narrow scopes parent down to the value behind its pointer, holding on to the last
// non-nil value once the pointer goes nil.
func narrow[S, A any](parent *Store[*S, A], first S) *Store[S, A] {
	var (
		mu   sync.Mutex
		last = first
	)
	unwrapLast := func(opt *S) S {
		mu.Lock()
		defer mu.Unlock()
		if opt != nil {
			last = *opt
		}
		return last
	}
	return Scope(parent, unwrapLast, func(action A) A { return action })
}
