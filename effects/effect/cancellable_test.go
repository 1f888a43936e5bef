package effect_test

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/on-the-ground/effect_ive_store/effects/cancellation"
	"github.com/on-the-ground/effect_ive_store/effects/concurrency"
	"github.com/on-the-ground/effect_ive_store/effects/effect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchID struct{}
type requestID int

func withRegistry(t *testing.T) (context.Context, *cancellation.Registry) {
	t.Helper()
	ctx, teardown := cancellation.WithEffectHandler(context.Background(), 4, nil)
	t.Cleanup(func() { teardown() })
	return ctx, cancellation.RegistryFrom(ctx)
}

func TestCancellable_LeavesNothingBehindOnEveryTerminalPath(t *testing.T) {
	ctx, reg := withRegistry(t)
	id := cancellation.IDOf(searchID{})

	// success
	values, err := effect.Collect(ctx, effect.Just(1, 2).Cancellable(id, false))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, values)
	assert.Zero(t, reg.Len())

	// failure passes through unchanged
	_, err = effect.Collect(ctx, effect.Fail[int](errBoom).Cancellable(id, false))
	assert.Equal(t, errBoom, err)
	assert.Zero(t, reg.Len())

	// dispose
	started := make(chan context.Context, 1)
	sub := blocking(started).Cancellable(id, false).Subscribe(ctx, effect.Observer[int]{})
	<-started
	assert.Equal(t, 1, reg.Count(id))
	sub.Dispose()
	waitDone(t, sub)
	assert.Zero(t, reg.Len())

	// cancelled through the registry
	sub = blocking(started).Cancellable(id, false).Subscribe(ctx, effect.Observer[int]{})
	<-started
	assert.Equal(t, 1, cancellation.Effect(ctx, id))
	waitDone(t, sub)
	assert.Zero(t, reg.Len())
}

func TestCancellable_RegistersBeforeSubscribeReturns(t *testing.T) {
	ctx, reg := withRegistry(t)
	id := cancellation.IDOf(requestID(1))

	sub := effect.Deferred(effect.Just(1), time.Hour).Cancellable(id, false).Subscribe(ctx, effect.Observer[int]{})
	assert.Equal(t, 1, reg.Count(id))

	sub.Dispose()
	waitDone(t, sub)
	assert.Zero(t, reg.Count(id))
}

func TestCancellable_CancelInFlightReplacesPreviousRun(t *testing.T) {
	ctx, reg := withRegistry(t)
	id := cancellation.IDOf(searchID{})

	firstStarted := make(chan context.Context, 1)
	var firstCompleted atomic.Bool
	first := blocking(firstStarted).Cancellable(id, true).Subscribe(ctx, effect.Observer[int]{
		OnCompleted: func() { firstCompleted.Store(true) },
	})
	firstCtx := <-firstStarted

	secondStarted := make(chan context.Context, 1)
	second := blocking(secondStarted).Cancellable(id, true).Subscribe(ctx, effect.Observer[int]{})

	// the previous run is cancelled before the new one is even registered
	assert.Error(t, firstCtx.Err())
	waitDone(t, first)
	assert.NoError(t, first.Err())
	assert.False(t, first.Cancelled())
	assert.True(t, firstCompleted.Load())

	<-secondStarted
	assert.Equal(t, 1, reg.Count(id))

	second.Dispose()
	waitDone(t, second)
	assert.Zero(t, reg.Len())
}

func TestCancellable_WithoutCancelInFlightRunsCoexist(t *testing.T) {
	ctx, reg := withRegistry(t)
	id := cancellation.IDOf(searchID{})

	started := make(chan context.Context, 2)
	first := blocking(started).Cancellable(id, false).Subscribe(ctx, effect.Observer[int]{})
	second := blocking(started).Cancellable(id, false).Subscribe(ctx, effect.Observer[int]{})
	<-started
	<-started
	assert.Equal(t, 2, reg.Count(id))

	values, err := effect.Collect(ctx, effect.Cancel[int](id))
	require.NoError(t, err)
	assert.Empty(t, values)

	waitDone(t, first)
	waitDone(t, second)
	assert.Zero(t, reg.Len())
}

func TestCancel_AbsentIDIsNoop(t *testing.T) {
	ctx, reg := withRegistry(t)

	values, err := effect.Collect(ctx, effect.Cancel[int](cancellation.IDOf(searchID{}), cancellation.IDOf(requestID(9))))
	require.NoError(t, err)
	assert.Empty(t, values)
	assert.Zero(t, reg.Len())
}

func TestCancel_DoesNotTouchOtherIdentifierTypes(t *testing.T) {
	ctx, reg := withRegistry(t)

	started := make(chan context.Context, 1)
	sub := blocking(started).Cancellable(cancellation.IDOf(requestID(0)), false).Subscribe(ctx, effect.Observer[int]{})
	<-started

	_, err := effect.Collect(ctx, effect.Cancel[int](cancellation.IDOf(0)))
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	sub.Dispose()
	waitDone(t, sub)
}

func TestCancellable_ConcurrentChurnDoesNotLeak(t *testing.T) {
	ctx, reg := withRegistry(t)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(i)))
			id := cancellation.IDOf(requestID(i % 3))
			for range 20 {
				var e effect.Effect[int]
				switch r.Intn(3) {
				case 0:
					e = effect.Just(i)
				case 1:
					e = effect.Fail[int](errBoom)
				default:
					e = effect.Deferred(effect.Just(i), time.Duration(r.Intn(3))*time.Millisecond)
				}
				sub := e.Cancellable(id, r.Intn(2) == 0).Subscribe(ctx, effect.Observer[int]{})
				switch r.Intn(3) {
				case 0:
					sub.Dispose()
				case 1:
					cancellation.Effect(ctx, id)
				}
				<-sub.Done()
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, reg.Len())
}

func TestDebounce_OnlyLastOfBurstRuns(t *testing.T) {
	ctx, reg := withRegistry(t)
	id := cancellation.IDOf(searchID{})

	var mu sync.Mutex
	var got []int
	subs := make([]*effect.Subscription, 0, 3)
	for i := 1; i <= 3; i++ {
		subs = append(subs, effect.Debounce(effect.Just(i), id, 50*time.Millisecond).Subscribe(ctx, effect.Observer[int]{
			OnValue: func(v int) {
				mu.Lock()
				got = append(got, v)
				mu.Unlock()
			},
		}))
	}
	for _, sub := range subs {
		waitDone(t, sub)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{3}, got)
	assert.Zero(t, reg.Len())
}

func TestThrottle_DeliversFirstThenOnePerWindow(t *testing.T) {
	for _, tc := range []struct {
		name   string
		latest bool
		want   []int
	}{
		{name: "latest", latest: true, want: []int{1, 3}},
		{name: "first", latest: false, want: []int{1, 2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx, reg := withRegistry(t)
			id := cancellation.IDOf(requestID(42))

			begin := time.Now()
			values, err := effect.Collect(ctx, effect.Throttle(effect.Just(1, 2, 3), id, 200*time.Millisecond, tc.latest))
			require.NoError(t, err)
			assert.Equal(t, tc.want, values)
			assert.GreaterOrEqual(t, time.Since(begin), 150*time.Millisecond)
			assert.Zero(t, reg.Len())
		})
	}
}

func TestThrottle_CancelledWhileHoldingDropsValue(t *testing.T) {
	ctx, reg := withRegistry(t)
	id := cancellation.IDOf(requestID(7))

	var mu sync.Mutex
	var got []int
	sub := effect.Throttle(effect.Just(1, 2), id, time.Hour, true).Subscribe(ctx, effect.Observer[int]{
		OnValue: func(v int) {
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		},
	})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, time.Millisecond)

	cancellation.Effect(ctx, id)
	waitDone(t, sub)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1}, got)
	assert.Zero(t, reg.Len())
}

func TestCancellable_SupervisorTeardownSettlesQueuedRuns(t *testing.T) {
	ctx, reg := withRegistry(t)
	ctx, endOfConcurrencyHandler := concurrency.WithEffectHandler(ctx, 1000)

	subs := make([]*effect.Subscription, 1000)
	for i := range subs {
		subs[i] = effect.Just(i).Cancellable(cancellation.IDOf(requestID(i)), false).
			Subscribe(ctx, effect.Observer[int]{})
	}
	// most runs are still queued on the supervisor here
	endOfConcurrencyHandler()

	for i, sub := range subs {
		select {
		case <-sub.Done():
		default:
			t.Fatalf("subscription %d still running after teardown", i)
		}
	}
	assert.Zero(t, reg.Len())
}
