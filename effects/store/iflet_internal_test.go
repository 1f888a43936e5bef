package store

import (
	"context"
	"testing"

	"github.com/on-the-ground/effect_ive_store/effects/effect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPresence(t *testing.T) {
	for _, tc := range []struct {
		prev     presence
		present  bool
		want     presence
		wantEdge edge
	}{
		{presenceUnknown, false, presenceAbsent, edgeVanished},
		{presenceUnknown, true, presencePresent, edgeAppeared},
		{presenceAbsent, false, presenceAbsent, edgeNone},
		{presenceAbsent, true, presencePresent, edgeAppeared},
		{presencePresent, true, presencePresent, edgeNone},
		{presencePresent, false, presenceAbsent, edgeVanished},
	} {
		got, e := nextPresence(tc.prev, tc.present)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.wantEdge, e)
	}
}

func TestObserver_DropsStaleAndParksReentrantDeliveries(t *testing.T) {
	var got []int
	var o *observer[int]
	o = &observer[int]{fn: func(v int) {
		got = append(got, v)
		if v == 1 {
			// delivered while the callback runs: parked, only the newest survives
			o.deliver(2, 2)
			o.deliver(3, 3)
		}
	}}

	o.deliver(1, 1)
	o.deliver(0, 1)
	o.deliver(-1, 2)

	assert.Equal(t, []int{1, 3}, got)
}

func TestIfLet_TogglingKeepsObserversBounded(t *testing.T) {
	replace := func(state **int, next *int) effect.Effect[*int] {
		*state = next
		return effect.None[*int]()
	}
	s := New[*int](context.Background(), nil, replace)
	defer s.Close()

	var unwrapped []*Store[int, *int]
	handle := IfLet(s, func(c *Store[int, *int]) { unwrapped = append(unwrapped, c) }, nil, nil)
	defer handle.Dispose()

	observers := func() int {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.observers)
	}

	for i := 0; i < 500; i++ {
		s.Send(&i)
		s.Send(nil)
		// the IfLet observation itself, nothing narrowed is live
		require.Equal(t, 1, observers(), "after toggle %d", i)
	}
	s.Send(new(int))
	assert.Equal(t, 2, observers())
	assert.Len(t, unwrapped, 501)

	handle.Dispose()
	assert.Zero(t, observers())
}
