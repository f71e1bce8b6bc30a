package engine

import (
	"hash/fnv"
	"sync"
	"time"
)

// RuleState is per (rule, fingerprint) mutable evaluation state.
// Params: last observed value, duration/hysteresis markers, and
// cooldown/rate-limit bookkeeping.
// Returns: mutable record owned by the state store shard lock.
type RuleState struct {
	LastValue        float64
	FirstTriggeredAt *time.Time
	LastAlertAt      *time.Time
	WindowStartedAt  *time.Time
	AlertCount       int
	HysteresisActive bool
	LastTouched      time.Time
}

// StateStore keeps rule states in fingerprint-sharded maps.
// Params: fixed shard slice, each with its own mutex, so unrelated
// fingerprints never contend on one lock.
// Returns: concurrent store with per-fingerprint serialization.
type StateStore struct {
	shards []*stateShard
}

type stateShard struct {
	mu      sync.Mutex
	entries map[string]*RuleState
}

// NewStateStore creates a sharded state store.
// Params: shard count (minimum one).
// Returns: initialized store.
func NewStateStore(shards int) *StateStore {
	if shards < 1 {
		shards = 1
	}
	store := &StateStore{shards: make([]*stateShard, shards)}
	for index := range store.shards {
		store.shards[index] = &stateShard{entries: make(map[string]*RuleState)}
	}
	return store
}

// WithState runs one read-modify-write critical section for a fingerprint.
// Params: rule ID, fingerprint, current time, and mutation callback. The
// state is created lazily; when the callback returns false the entry is
// removed entirely (full condition failure clears duration and hysteresis
// context).
// Returns: state mutated or cleared under the shard lock.
func (s *StateStore) WithState(ruleID, fingerprint string, now time.Time, fn func(state *RuleState) (keep bool)) {
	key := stateKey(ruleID, fingerprint)
	shard := s.shardFor(fingerprint)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	state, ok := shard.entries[key]
	if !ok {
		state = &RuleState{}
		shard.entries[key] = state
	}
	state.LastTouched = now
	if !fn(state) {
		delete(shard.entries, key)
	}
}

// Snapshot returns a copy of one state entry.
// Params: rule ID and fingerprint.
// Returns: detached state copy and existence flag.
func (s *StateStore) Snapshot(ruleID, fingerprint string) (RuleState, bool) {
	key := stateKey(ruleID, fingerprint)
	shard := s.shardFor(fingerprint)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	state, ok := shard.entries[key]
	if !ok {
		return RuleState{}, false
	}
	copied := *state
	copied.FirstTriggeredAt = copyTime(state.FirstTriggeredAt)
	copied.LastAlertAt = copyTime(state.LastAlertAt)
	copied.WindowStartedAt = copyTime(state.WindowStartedAt)
	return copied, true
}

// Len counts stored entries across shards.
// Params: none.
// Returns: total entry count.
func (s *StateStore) Len() int {
	total := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		total += len(shard.entries)
		shard.mu.Unlock()
	}
	return total
}

// Compact evicts entries untouched for longer than the idle TTL.
// Params: current time and idle TTL (zero disables eviction).
// Returns: number of evicted entries.
func (s *StateStore) Compact(now time.Time, idleTTL time.Duration) int {
	if idleTTL <= 0 {
		return 0
	}
	removed := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		for key, state := range shard.entries {
			if now.Sub(state.LastTouched) >= idleTTL {
				delete(shard.entries, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// shardFor selects the shard owning one fingerprint.
// Params: fingerprint key.
// Returns: shard pointer.
func (s *StateStore) shardFor(fingerprint string) *stateShard {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(fingerprint))
	return s.shards[int(hash.Sum32())%len(s.shards)]
}

// stateKey builds the composite entry key.
// Params: rule ID and fingerprint.
// Returns: map key string.
func stateKey(ruleID, fingerprint string) string {
	return ruleID + "/" + fingerprint
}

// copyTime duplicates one optional timestamp.
// Params: source pointer.
// Returns: detached pointer or nil.
func copyTime(source *time.Time) *time.Time {
	if source == nil {
		return nil
	}
	copied := *source
	return &copied
}
