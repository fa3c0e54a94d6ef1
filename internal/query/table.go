package query

import (
	"hash/maphash"
	"sync"

	"github.com/sourcepawn-studio/spls/internal/ids"
)

// numStripes shards each query's cache map across independent locks, so
// spec.md §5's "readers do not block readers of other entries" holds even
// under write contention on an unrelated key.
const numStripes = 16

var tableSeed = maphash.MakeSeed()

// depRecord is one recorded dependency: a file and the revision it was at
// when read. A cached value is valid iff every depRecord's file is still at
// that exact revision (spec.md §4.9).
type depRecord struct {
	file ids.FileID
	rev  ids.Revision
}

type cacheEntry[V any] struct {
	value V
	deps  []depRecord
}

// table is a striped memoization cache for one query. V is the query's
// result type; every table in this package is keyed by ids.FileID except
// the project-graph table, which has exactly one entry.
type table[K comparable, V any] struct {
	stripes [numStripes]stripe[K, V]
}

type stripe[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*cacheEntry[V]
}

func newTable[K comparable, V any]() *table[K, V] {
	t := &table[K, V]{}
	for i := range t.stripes {
		t.stripes[i].entries = make(map[K]*cacheEntry[V])
	}
	return t
}

func (t *table[K, V]) stripeFor(key K) *stripe[K, V] {
	h := maphash.Comparable(tableSeed, key)
	return &t.stripes[h%numStripes]
}

// get returns the cached value for key if every recorded dependency is
// still at the revision it was read at, per currentRev. Otherwise it calls
// compute, caches the result under its reported dependencies (unless
// compute errors), and returns it.
//
// Two concurrent stale reads of the same key may both run compute — the
// lock is not held across compute so that a query's own dependency reads
// (which touch other tables, and cannot deadlock against this one) never
// block on it. The loser's result is simply discarded when both try to
// store; this duplicates work rather than serializing unrelated callers,
// which spec.md §5 prefers ("readers do not block readers").
func (t *table[K, V]) get(key K, currentRev func(ids.FileID) ids.Revision, compute func() (V, []depRecord, error)) (V, error) {
	s := t.stripeFor(key)

	s.mu.Lock()
	if e, ok := s.entries[key]; ok && depsCurrent(e.deps, currentRev) {
		v := e.value
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	v, deps, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}

	s.mu.Lock()
	s.entries[key] = &cacheEntry[V]{value: v, deps: deps}
	s.mu.Unlock()
	return v, nil
}

// store installs value directly, bypassing compute — used to prime cache
// entries discovered as a side effect of computing a different key (e.g.
// preprocessing a file's transitive includes all in the same sweep).
func (t *table[K, V]) store(key K, value V, deps []depRecord) {
	s := t.stripeFor(key)
	s.mu.Lock()
	s.entries[key] = &cacheEntry[V]{value: value, deps: deps}
	s.mu.Unlock()
}

func depsCurrent(deps []depRecord, currentRev func(ids.FileID) ids.Revision) bool {
	for _, d := range deps {
		if currentRev(d.file) != d.rev {
			return false
		}
	}
	return true
}
