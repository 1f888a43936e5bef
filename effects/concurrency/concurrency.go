package concurrency

import (
	"context"
	"sync"

	"github.com/on-the-ground/effect_ive_store/effects"
	effectmodel "github.com/on-the-ground/effect_ive_store/effects/internal/model"
	"github.com/on-the-ground/effect_ive_store/effects/log"
)

// WithEffectHandler installs a fire-and-forget concurrency effect handler.
//
// It allows `Effect(ctx, fns...)` to spawn goroutines under a managed scope.
//
//   - WaitGroup + cancellation tracking ensures children are joined on shutdown.
//   - Cancelling the parent context cancels every child.
//   - Worker count is fixed to 1 (non-partitioned).
//   - The returned teardown blocks until every child has returned, then gives back
//     the parent context.
func WithEffectHandler(
	ctx context.Context,
	bufferSize int,
) (context.Context, func() context.Context) {
	sv := &supervisor{
		wg:              &sync.WaitGroup{},
		childrenCancels: make(map[int]context.CancelFunc),
		doneCh:          make(chan struct{}),
	}
	sv.watchParentCancel(ctx)

	return effects.WithFireAndForgetEffectHandler(
		ctx,
		bufferSize,
		effectmodel.EffectConcurrency,
		sv.spawnConcurrentChildren,
		func() {
			sv.waitChildren(ctx)
			close(sv.doneCh)
		},
	)
}

// Effect spawns every function in its own goroutine under the installed supervisor.
// It reports whether the request was queued.
// Panics if no concurrency handler is installed.
func Effect(ctx context.Context, fns ...func(context.Context)) bool {
	return effects.FireAndForgetEffect[Payload](ctx, effectmodel.EffectConcurrency, fns)
}

// TryEffect is Effect for callers with a fallback: it returns false instead of
// panicking when no concurrency handler is installed.
func TryEffect(ctx context.Context, fns ...func(context.Context)) bool {
	if !effects.HasEffectHandler(ctx, effectmodel.EffectConcurrency) {
		return false
	}
	return Effect(ctx, fns...)
}

type Payload []func(context.Context)

func (cp Payload) PartitionKey() string {
	return "unpartitioned"
}

// supervisor manages the lifecycle of child goroutines spawned by the concurrency effect handler.
// It tracks the cancel function of each child, cancels them all when the parent context
// is cancelled and joins them when the handler is closed.
type supervisor struct {
	wg *sync.WaitGroup

	mu              sync.Mutex
	nextChild       int
	childrenCancels map[int]context.CancelFunc

	doneCh chan struct{}
}

// watchParentCancel monitors the parent context for cancellation and propagates it
// to every child spawned so far.
func (s *supervisor) watchParentCancel(parentContext context.Context) {
	ready := make(chan struct{})
	go func() {
		close(ready)
		select {
		case <-parentContext.Done():
			log.TryEffect(parentContext, log.LogInfo, "context cancelled, cancelling all routines", nil)
			s.mu.Lock()
			cancels := s.childrenCancels
			s.childrenCancels = make(map[int]context.CancelFunc)
			s.mu.Unlock()
			for _, cancelFn := range cancels {
				cancelFn()
			}
		case <-s.doneCh:
		}
	}()
	<-ready
}

// trackCancel remembers a child's cancel function until the returned release is called.
func (s *supervisor) trackCancel(cancelFn context.CancelFunc) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextChild
	s.nextChild++
	s.childrenCancels[id] = cancelFn
	return func() {
		s.mu.Lock()
		delete(s.childrenCancels, id)
		s.mu.Unlock()
		cancelFn()
	}
}

// spawnConcurrentChildren starts each function in its own goroutine with its own context.
//   - Each child context keeps the parent's values but gets its own cancellation.
//   - Adds the goroutine to the WaitGroup for tracking.
//   - Catches and logs panics individually.
func (s *supervisor) spawnConcurrentChildren(
	parentContext context.Context,
	functions Payload,
) {
	ready := sync.WaitGroup{}

	for _, fn := range functions {
		childCtx, cancel := context.WithCancel(context.WithoutCancel(parentContext))
		if parentContext.Err() != nil {
			cancel()
		}
		release := s.trackCancel(cancel)
		s.wg.Add(1)
		ready.Add(1)
		go func(f func(context.Context), ctx context.Context) {
			defer s.wg.Done()
			defer release()
			defer func() {
				if r := recover(); r != nil {
					log.TryEffect(parentContext, log.LogError, "panic in child routine", map[string]interface{}{
						"error": r,
					})
				}
			}()
			ready.Done()
			f(ctx)
		}(fn, childCtx)
	}

	// Wait until all child goroutines have been started before returning
	ready.Wait()
}

// waitChildren blocks until all child goroutines complete.
func (s *supervisor) waitChildren(ctx context.Context) {
	log.TryEffect(ctx, log.LogInfo, "waiting for all routines to finish", nil)
	s.wg.Wait()
	log.TryEffect(ctx, log.LogInfo, "all routines finished", nil)
}
