// Package querycache memoizes content queries by key, invalidates them on
// mutation and debounces filter recomputation.
package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached query: the operation namespace plus its
// serialized parameters.
type Key struct {
	Op     string
	Params string
}

func (k Key) String() string {
	return k.Op + "|" + k.Params
}

// Policy controls entry lifetimes.
type Policy struct {
	// StaleTime is how long a fetched value is served without refetching.
	StaleTime time.Duration
	// GCTime is how long an unused entry is kept before Sweep evicts it.
	GCTime time.Duration
}

// DefaultPolicy returns a five minute stale time and a ten minute GC time.
func DefaultPolicy() Policy {
	return Policy{StaleTime: 5 * time.Minute, GCTime: 10 * time.Minute}
}

type entry[V any] struct {
	value   V
	fetched time.Time
	used    time.Time
}

// generation orders invalidations. A fetch stores its result only if the
// generation it started under is still current.
type generation struct {
	op, key uint64
}

// Cache is a keyed query cache safe for concurrent use.
type Cache[V any] struct {
	policy Policy
	now    func() time.Time
	group  singleflight.Group

	mu      sync.Mutex
	entries map[Key]*entry[V]
	keyGen  map[Key]uint64
	opGen   map[string]uint64
	// pending counts callers holding a captured generation for a key until
	// the flight they joined has finished.
	pending map[Key]int
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New returns an empty cache.
func New[V any](policy Policy, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		policy:  policy,
		now:     o.now,
		entries: make(map[Key]*entry[V]),
		keyGen:  make(map[Key]uint64),
		opGen:   make(map[string]uint64),
		pending: make(map[Key]int),
	}
}

// Fetch returns the cached value for key while it is fresh. Otherwise it
// calls fn, sharing one call among concurrent callers of the same key.
// Errors are returned to every waiter and never cached.
func (c *Cache[V]) Fetch(ctx context.Context, key Key, fn func(context.Context) (V, error)) (V, error) {
	c.mu.Lock()
	now := c.now()
	if e, ok := c.entries[key]; ok && now.Sub(e.fetched) < c.policy.StaleTime {
		e.used = now
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	gen := c.generation(key)
	c.pending[key]++
	c.mu.Unlock()

	flight := fmt.Sprintf("%s#%d.%d", key, gen.op, gen.key)
	ch := c.group.DoChan(flight, func() (any, error) {
		v, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		if c.generation(key) == gen {
			t := c.now()
			c.entries[key] = &entry[V]{value: v, fetched: t, used: t}
		}
		c.mu.Unlock()
		return v, nil
	})

	select {
	case res := <-ch:
		c.settle(key)
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		go func() {
			<-ch
			c.settle(key)
		}()
		var zero V
		return zero, ctx.Err()
	}
}

func (c *Cache[V]) settle(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[key]--
	if c.pending[key] <= 0 {
		delete(c.pending, key)
	}
}

// Peek returns the cached value for key regardless of freshness.
func (c *Cache[V]) Peek(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Invalidate drops key. A fetch of key already in flight will not store
// its result.
func (c *Cache[V]) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.keyGen[key]++
}

// InvalidatePrefix drops every key of the op namespace.
func (c *Cache[V]) InvalidatePrefix(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.Op == op {
			delete(c.entries, k)
		}
	}
	c.opGen[op]++
}

// Sweep evicts entries unused for longer than the GC time and returns how
// many were removed. Key generations no pending fetch depends on are dropped
// too.
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if now.Sub(e.used) >= c.policy.GCTime {
			delete(c.entries, k)
			n++
		}
	}
	for k := range c.keyGen {
		if c.pending[k] == 0 {
			delete(c.keyGen, k)
		}
	}
	return n
}

// Janitor sweeps every interval until ctx is done.
func (c *Cache[V]) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) generation(key Key) generation {
	return generation{op: c.opGen[key.Op], key: c.keyGen[key]}
}
