// Writer exclusivity for the query database: a reentrancy-checked mutex
// plus a pool that forbids one request from holding two of its locks at
// once. Grounded on bufbuild-buf's private/buf/buflsp/mutex.go (a sibling
// pack repo, not the teacher) — ported near-verbatim since spec.md §5's
// deadlock-avoidance invariant ("a writer's exclusive lock must never be
// acquired while holding any shared cache lock") is exactly the hazard that
// file's reentrancy check exists to catch.
package query

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

const poisoned = ^uint64(0)

var nextRequestID atomic.Uint64

// mutexPool tracks which reentrancy-checked mutex, if any, each request
// currently holds — so a second lock attempt by the same request panics
// instead of deadlocking.
type mutexPool struct {
	mu   sync.Mutex
	held map[uint64]*reentrantMutex
}

func (p *mutexPool) newMutex() *reentrantMutex {
	return &reentrantMutex{pool: p}
}

func (p *mutexPool) check(id uint64, mu *reentrantMutex, releasing bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.held == nil {
		p.held = make(map[uint64]*reentrantMutex)
	}
	if releasing {
		if held := p.held[id]; held != mu {
			panic(fmt.Sprintf("query: unlocked a lock this request didn't hold: %p -> %p", held, mu))
		}
		delete(p.held, id)
		return
	}
	if held := p.held[id]; held != nil {
		panic(fmt.Sprintf("query: request attempted to hold two locks at once: %p -> %p", mu, held))
	}
	p.held[id] = mu
}

// reentrantMutex panics if the same request context locks it twice, or if
// Unlock is called from a different request than the one that locked it.
type reentrantMutex struct {
	lock sync.Mutex
	who  atomic.Uint64
	pool *mutexPool
}

// Lock blocks until acquired and returns an idempotent unlocker, so callers
// can write `defer mu.Lock(ctx)()`.
func (mu *reentrantMutex) Lock(ctx context.Context) (unlock func()) {
	id := requestID(ctx)

	if mu.who.Load() == id && id > 0 {
		mu.who.Store(poisoned)
		panic("query: request attempted to lock the same mutex twice")
	}
	mu.pool.check(id, mu, false)

	mu.lock.Lock()
	mu.storeWho(id)

	var unlocked bool
	return func() {
		if unlocked {
			return
		}
		unlocked = true
		mu.unlock(ctx)
	}
}

func (mu *reentrantMutex) unlock(ctx context.Context) {
	id := requestID(ctx)
	if mu.who.Load() != id {
		panic("query: mutex locked by one request and unlocked by another")
	}
	mu.storeWho(0)
	mu.pool.check(id, mu, true)
	mu.lock.Unlock()
}

func (mu *reentrantMutex) storeWho(id uint64) {
	for {
		old := mu.who.Load()
		if old == poisoned {
			panic("query: request attempted to lock the same mutex twice")
		}
		if mu.who.CompareAndSwap(old, id) {
			return
		}
	}
}

type requestIDKey struct{}

// withRequestID stamps ctx with a unique id so nested Lock calls on the same
// logical request can be told apart from a genuinely different request.
func withRequestID(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestIDKey{}, nextRequestID.Add(1))
}

func requestID(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, ok := ctx.Value(requestIDKey{}).(uint64)
	if !ok {
		return 0
	}
	return id
}
