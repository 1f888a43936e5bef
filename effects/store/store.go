// Package store holds state, reduces actions into it and feeds the values of the
// resulting effects back in as actions.
package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/on-the-ground/effect_ive_store/effects/cancellation"
	"github.com/on-the-ground/effect_ive_store/effects/effect"
	"github.com/on-the-ground/effect_ive_store/effects/log"
)

// Reducer mutates state in response to action and returns the work to run next.
// It must not call back into the store.
type Reducer[S, A any] func(state *S, action A) effect.Effect[A]

// Store is a unidirectional state container.
//
// A root store owns state and a reducer. A scoped store, built with Scope, mirrors
// part of its parent's state and forwards its actions to the parent.
type Store[S, A any] struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     S
	version   uint64
	observers map[*observer[S]]struct{}

	sendMu  sync.Mutex
	queue   []A
	sending bool

	reducer Reducer[S, A]
	forward func(A)

	closeOnce sync.Once
	onClose   []func()
}

// New returns a root store. Effects run under ctx; cancelling ctx has the same
// effect as Close.
func New[S, A any](ctx context.Context, initial S, reducer Reducer[S, A]) *Store[S, A] {
	s := newStore[S, A](ctx, initial)
	s.reducer = reducer
	return s
}

func newStore[S, A any](ctx context.Context, initial S) *Store[S, A] {
	ctx, cancel := context.WithCancel(ctx)
	return &Store[S, A]{
		ctx:       ctx,
		cancel:    cancel,
		state:     initial,
		version:   1,
		observers: make(map[*observer[S]]struct{}),
	}
}

// Send reduces action into the state.
//
// Actions are handled one at a time. An action sent while another is being handled,
// from an observer, an effect or another goroutine, is queued and handled by the
// goroutine already sending. Actions sent to a closed store are dropped.
func (s *Store[S, A]) Send(action A) {
	if s.ctx.Err() != nil {
		return
	}
	if s.reducer == nil {
		if s.forward != nil {
			s.forward(action)
		}
		return
	}

	s.sendMu.Lock()
	s.queue = append(s.queue, action)
	if s.sending {
		s.sendMu.Unlock()
		return
	}
	s.sending = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		var zero A
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.sendMu.Unlock()

		s.reduce(next)

		s.sendMu.Lock()
	}
	s.sending = false
	s.sendMu.Unlock()
}

func (s *Store[S, A]) reduce(action A) {
	if s.ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	eff := s.reducer(&s.state, action)
	s.version++
	state, version := s.state, s.version
	s.mu.Unlock()

	s.publish(state, version)

	if eff.IsNone() {
		return
	}
	eff.Subscribe(s.ctx, effect.Observer[A]{
		OnValue: s.Send,
		OnFailed: func(err error) {
			log.TryEffect(s.ctx, log.LogError, "store effect failed", map[string]interface{}{
				"error": err.Error(),
			})
		},
	})
}

// State returns the current state.
func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Observe calls fn with the current state before returning, then with every state
// the store publishes until the returned handle is disposed.
//
// Calls to fn never overlap and never go back in time: a state older than one
// already delivered is skipped.
func (s *Store[S, A]) Observe(fn func(S)) cancellation.Disposable {
	o := &observer[S]{fn: fn}

	s.mu.Lock()
	live := s.ctx.Err() == nil
	if live {
		s.observers[o] = struct{}{}
	}
	state, version := s.state, s.version
	s.mu.Unlock()

	o.deliver(state, version)

	if !live {
		return cancellation.NewHandle(nil)
	}
	return cancellation.NewHandle(func() {
		o.disposed.Store(true)
		s.mu.Lock()
		delete(s.observers, o)
		s.mu.Unlock()
	})
}

// Close cancels every effect still running for the store and detaches it from its
// parent. It is safe to call more than once.
func (s *Store[S, A]) Close() {
	s.closeOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		clear(s.observers)
		s.mu.Unlock()

		for _, fn := range s.onClose {
			fn()
		}
	})
}

// Done is closed once the store is closed.
func (s *Store[S, A]) Done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Store[S, A]) set(state S) {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.version++
	version := s.version
	s.mu.Unlock()

	s.publish(state, version)
}

func (s *Store[S, A]) publish(state S, version uint64) {
	s.mu.Lock()
	observers := make([]*observer[S], 0, len(s.observers))
	for o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o.deliver(state, version)
	}
}

// Scope derives a store that mirrors toLocal of the parent's state. Actions sent to
// it are translated by fromLocal and sent to the parent; with a nil fromLocal the
// scoped store is read-only and drops its actions.
func Scope[S, A, L, LA any](parent *Store[S, A], toLocal func(S) L, fromLocal func(LA) A) *Store[L, LA] {
	child := newStore[L, LA](parent.ctx, toLocal(parent.State()))
	if fromLocal != nil {
		child.forward = func(action LA) {
			parent.Send(fromLocal(action))
		}
	}

	sub := parent.Observe(func(state S) {
		child.set(toLocal(state))
	})
	child.onClose = append(child.onClose, sub.Dispose)
	return child
}

type versioned[S any] struct {
	state   S
	version uint64
}

// observer serializes deliveries to one callback. A delivery arriving while the
// callback runs, on the same goroutine or another one, is parked and handed over
// by the running drain loop once the callback returns; only the newest parked
// state survives.
type observer[S any] struct {
	fn       func(S)
	disposed atomic.Bool

	mu        sync.Mutex
	draining  bool
	delivered uint64
	pending   *versioned[S]
}

func (o *observer[S]) deliver(state S, version uint64) {
	o.mu.Lock()
	if version <= o.delivered || (o.pending != nil && version <= o.pending.version) {
		o.mu.Unlock()
		return
	}
	o.pending = &versioned[S]{state: state, version: version}
	if o.draining {
		o.mu.Unlock()
		return
	}

	o.draining = true
	for o.pending != nil {
		next := o.pending
		o.pending = nil
		o.delivered = next.version
		o.mu.Unlock()

		if !o.disposed.Load() {
			o.fn(next.state)
		}

		o.mu.Lock()
	}
	o.draining = false
	o.mu.Unlock()
}
