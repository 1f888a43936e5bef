package cancellation

import (
	"sync"
	"time"

	"github.com/on-the-ground/effect_ive_store/effects"
	"github.com/on-the-ground/effect_ive_store/effects/internal/handlers"
	"go.uber.org/zap"
)

const DefaultNumShards = 16

// Default is the process-wide registry used when a context carries none.
var Default = NewRegistry(DefaultNumShards, nil)

// Registry maps an ID to the set of handles currently live under it.
//
// An ID is present iff its set is non-empty. Every operation on one ID runs under
// the lock of the shard the ID hashes to, so Register, Remove and CancelAll are
// linearizable per ID. Disposal always happens outside the lock: a handle that
// removes itself while being disposed never deadlocks.
type Registry struct {
	shards []*shard
	logger *zap.Logger
}

type shard struct {
	mu        sync.Mutex
	handles   map[ID]map[*Handle]struct{}
	throttled map[ID]*throttleEntry
	// throttled is swept for closed windows once it grows past sweepAt
	sweepAt int
}

// throttleEntry is the open window of an id and the value held for its end.
type throttleEntry struct {
	window   effects.TimeSpan
	value    any
	hasValue bool
}

const minThrottleSweep = 64

// NewRegistry builds a registry split over numShards locks (at least one).
// A nil logger disables logging.
func NewRegistry(numShards int, logger *zap.Logger) *Registry {
	if numShards <= 0 {
		numShards = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	shards := make([]*shard, numShards)
	for i := range shards {
		shards[i] = &shard{
			handles:   make(map[ID]map[*Handle]struct{}),
			throttled: make(map[ID]*throttleEntry),
			sweepAt:   minThrottleSweep,
		}
	}
	return &Registry{shards: shards, logger: logger}
}

func (r *Registry) shardOf(id ID) *shard {
	return r.shards[handlers.IndexOf(id, len(r.shards))]
}

func (r *Registry) NumShards() int {
	return len(r.shards)
}

// Register adds h to the set of id, creating the set if needed.
func (r *Registry) Register(id ID, h *Handle) {
	s := r.shardOf(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.handles[id]
	if !ok {
		set = make(map[*Handle]struct{})
		s.handles[id] = set
	}
	set[h] = struct{}{}
}

// Remove drops h from the set of id and prunes the set once empty.
// Removing a handle that is not there is a no-op.
func (r *Registry) Remove(id ID, h *Handle) {
	s := r.shardOf(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.handles[id]
	if !ok {
		return
	}
	delete(set, h)
	if len(set) == 0 {
		delete(s.handles, id)
	}
}

// CancelAll takes the handles of id out of the registry and disposes them.
// It returns how many were disposed; an unknown id is a silent no-op.
func (r *Registry) CancelAll(id ID) int {
	s := r.shardOf(id)
	s.mu.Lock()
	set := s.handles[id]
	delete(s.handles, id)
	s.mu.Unlock()

	for h := range set {
		h.Dispose()
	}
	if len(set) > 0 {
		r.logger.Debug("cancelled in-flight effects", zap.Stringer("id", id), zap.Int("count", len(set)))
	}
	return len(set)
}

// Close disposes every live handle of every ID.
func (r *Registry) Close() {
	var snapshot []*Handle
	for _, s := range r.shards {
		s.mu.Lock()
		for _, set := range s.handles {
			for h := range set {
				snapshot = append(snapshot, h)
			}
		}
		s.handles = make(map[ID]map[*Handle]struct{})
		s.throttled = make(map[ID]*throttleEntry)
		s.sweepAt = minThrottleSweep
		s.mu.Unlock()
	}

	for _, h := range snapshot {
		h.Dispose()
	}
	if len(snapshot) > 0 {
		r.logger.Debug("closed registry with live effects", zap.Int("count", len(snapshot)))
	}
}

// Len returns the number of IDs with at least one live handle.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.Lock()
		n += len(s.handles)
		s.mu.Unlock()
	}
	return n
}

// Count returns the number of live handles under id.
func (r *Registry) Count(id ID) int {
	s := r.shardOf(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles[id])
}

// Throttle decides when a value emitted under id at now may be delivered.
//
// Each id owns a window of length interval, opened by a delivery. A value arriving
// outside the open window goes out at once (delay 0) and opens a new window. A
// value arriving inside it is held until the window ends; with latest unset, the
// first value held for the window wins. Callers report the delayed delivery with
// MarkThrottled. A non-positive interval never holds anything.
//
// Windows that ended before now are pruned once the shard tracks more ids than
// it did after the previous sweep, so ids that stop emitting are not kept forever.
func (r *Registry) Throttle(id ID, now time.Time, interval time.Duration, value any, latest bool) (any, time.Duration) {
	if interval <= 0 {
		return value, 0
	}

	s := r.shardOf(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.throttled[id]
	if ok && entry.window.Contains(now) {
		if !latest && entry.hasValue {
			value = entry.value
		}
		entry.value, entry.hasValue = value, true
		return value, entry.window.End().Sub(now)
	}

	if ok && !latest && entry.hasValue {
		value = entry.value
	}
	s.throttled[id] = &throttleEntry{window: effects.NewTimeSpan(now, now.Add(interval))}
	s.sweepThrottled(now)
	return value, 0
}

// MarkThrottled records a delayed delivery under id at the given time, opening
// the next window of length interval.
func (r *Registry) MarkThrottled(id ID, at time.Time, interval time.Duration) {
	if interval <= 0 {
		return
	}

	s := r.shardOf(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.throttled[id] = &throttleEntry{window: effects.NewTimeSpan(at, at.Add(interval))}
	s.sweepThrottled(at)
}

func (s *shard) sweepThrottled(now time.Time) {
	if len(s.throttled) < s.sweepAt {
		return
	}
	for id, entry := range s.throttled {
		if !now.Before(entry.window.End()) {
			delete(s.throttled, id)
		}
	}
	s.sweepAt = max(minThrottleSweep, 2*len(s.throttled))
}

// throttledLen returns the number of ids with a throttle window on record.
func (r *Registry) throttledLen() int {
	n := 0
	for _, s := range r.shards {
		s.mu.Lock()
		n += len(s.throttled)
		s.mu.Unlock()
	}
	return n
}
