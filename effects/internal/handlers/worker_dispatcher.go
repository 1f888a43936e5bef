package handlers

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
	effectmodel "github.com/on-the-ground/effect_ive_store/effects/internal/model"
)

// WorkerDispatcher hands messages to worker goroutines.
//
// Once its context is done a dispatcher accepts nothing new. Every message it had
// already accepted is still handed to the handler, with the done context, before
// Done is closed: an accepted message is never dropped.
type WorkerDispatcher[T any] interface {
	Dispatch(ctx context.Context, msg T) bool
	Done() <-chan struct{}
}

type lanes[T any] struct {
	ctx  context.Context
	pick func(msg T, n int) int

	// senders hold the read lock; shutdown takes the write lock to seal.
	mu     sync.RWMutex
	sealed bool
	chs    []chan T

	sealedCh chan struct{}
	done     chan struct{}
}

// NewSingleQueue starts one worker handling messages in the order they were sent.
func NewSingleQueue[T any](
	ctx context.Context,
	bufferSize int,
	handleFn func(context.Context, T),
) WorkerDispatcher[T] {
	return startLanes(ctx, 1, bufferSize, func(T, int) int { return 0 }, handleFn)
}

// NewPartitionedQueue starts numWorkers workers. Messages sharing a PartitionKey
// always land on the same worker, so they are handled in send order.
func NewPartitionedQueue[T effectmodel.Partitionable](
	ctx context.Context,
	numWorkers, bufferSize int,
	handleFn func(context.Context, T),
) WorkerDispatcher[T] {
	return startLanes(ctx, numWorkers, bufferSize, func(msg T, n int) int { return IndexOf(msg, n) }, handleFn)
}

func startLanes[T any](
	ctx context.Context,
	numWorkers, bufferSize int,
	pick func(T, int) int,
	handleFn func(context.Context, T),
) *lanes[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	l := &lanes[T]{
		ctx:      ctx,
		pick:     pick,
		chs:      make([]chan T, numWorkers),
		sealedCh: make(chan struct{}),
		done:     make(chan struct{}),
	}

	var workers sync.WaitGroup
	for i := range l.chs {
		l.chs[i] = make(chan T, bufferSize)
		workers.Add(1)
		go l.work(l.chs[i], handleFn, &workers)
	}

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		l.sealed = true
		l.mu.Unlock()
		close(l.sealedCh)

		workers.Wait()
		close(l.done)
	}()
	return l
}

func (l *lanes[T]) work(ch chan T, handleFn func(context.Context, T), workers *sync.WaitGroup) {
	defer workers.Done()
	for {
		select {
		case msg := <-ch:
			handleFn(l.ctx, msg)
		case <-l.ctx.Done():
			// no sender can get in once sealed, so the buffer only shrinks
			<-l.sealedCh
			for {
				select {
				case msg := <-ch:
					handleFn(l.ctx, msg)
				default:
					return
				}
			}
		}
	}
}

// Dispatch queues msg on its lane. It reports false when ctx was done first or the
// dispatcher is shutting down; a sender blocked on a full lane is released then.
func (l *lanes[T]) Dispatch(ctx context.Context, msg T) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.sealed {
		return false
	}

	select {
	case <-ctx.Done():
		return false
	case <-l.ctx.Done():
		return false
	case l.chs[l.pick(msg, len(l.chs))] <- msg:
		return true
	}
}

// Done is closed once every accepted message has been handled after shutdown.
func (l *lanes[T]) Done() <-chan struct{} {
	return l.done
}

// IndexOf maps a partition key onto one of numChs slots.
// The cancellation registry picks its shards with it too.
func IndexOf(payload effectmodel.Partitionable, numChs int) int {
	switch numChs {
	case 0:
		panic("number of channels cannot be 0")
	case 1:
		return 0
	default:
		return int(xxhash.Sum64String(payload.PartitionKey()) % uint64(numChs))
	}
}
