// Package querycache is a process-local read-through cache of API
// responses. It is never the source of truth: any key may be dropped or
// refetched at any time.
package querycache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a query by entity name and ordered parameters.
type Key struct {
	Entity string
	Params string
}

func NewKey(entity string, params ...any) Key {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprint(p)
	}
	return Key{Entity: entity, Params: strings.Join(parts, "/")}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Entity
	}
	return k.Entity + "/" + k.Params
}

type EventKind int

const (
	EventSet EventKind = iota
	EventInvalidated
	EventRemoved
)

type Event struct {
	Key   Key
	Kind  EventKind
	Value any
}

// Fetcher loads the authoritative value for a key.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	value     any
	has       bool
	stale     bool
	gen       uint64
	updatedAt time.Time
}

type subscriber struct {
	key Key
	fn  func(Event)
}

type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	subs      map[int]subscriber
	nextSub   int
	group     singleflight.Group
	bg        sync.WaitGroup
	staleTime time.Duration
	now       func() time.Time
	log       *slog.Logger
}

type Option func(*Cache)

// WithStaleTime makes entries older than d count as stale. By default an
// entry stays fresh until it is invalidated.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) { c.staleTime = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: map[Key]*entry{},
		subs:    map[int]subscriber{},
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) entry(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) fresh(e *entry) bool {
	if !e.has || e.stale {
		return false
	}
	return c.staleTime <= 0 || c.now().Sub(e.updatedAt) < c.staleTime
}

// Get returns the cached value, fresh or stale.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.has {
		return nil, false
	}
	return e.value, true
}

// Set replaces the value for key. Any fetch already in flight for key will
// not overwrite it.
func (c *Cache) Set(key Key, v any) {
	c.mu.Lock()
	c.set(key, v)
	c.mu.Unlock()
	c.notify(Event{Key: key, Kind: EventSet, Value: v})
}

func (c *Cache) set(key Key, v any) {
	e := c.entry(key)
	e.gen++
	e.value = v
	e.has = true
	e.stale = false
	e.updatedAt = c.now()
}

// Update applies fn to the current value under the cache lock. fn returns
// the new value and whether to store it.
func (c *Cache) Update(key Key, fn func(old any, ok bool) (any, bool)) {
	c.mu.Lock()
	var old any
	var had bool
	if e, ok := c.entries[key]; ok && e.has {
		old, had = e.value, true
	}
	v, store := fn(old, had)
	if store {
		c.set(key, v)
	}
	c.mu.Unlock()
	if store {
		c.notify(Event{Key: key, Kind: EventSet, Value: v})
	}
}

// Invalidate marks key stale. The next Fetch returns the stale value and
// refetches in the background.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		e.stale = true
	}
	c.mu.Unlock()
	if ok {
		c.notify(Event{Key: key, Kind: EventInvalidated})
	}
}

// InvalidateEntity marks every key of entity stale.
func (c *Cache) InvalidateEntity(entity string) {
	c.mu.Lock()
	var keys []Key
	for k, e := range c.entries {
		if k.Entity == entity {
			e.stale = true
			keys = append(keys, k)
		}
	}
	c.mu.Unlock()
	for _, k := range keys {
		c.notify(Event{Key: k, Kind: EventInvalidated})
	}
}

// Remove drops key. Fetches in flight for it are discarded.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		e.gen++
		e.value = nil
		e.has = false
		e.stale = false
	}
	c.mu.Unlock()
	if ok {
		c.notify(Event{Key: key, Kind: EventRemoved})
	}
}

// Cancel suppresses the result of any fetch in flight for key, so it cannot
// clobber a newer write. The cached value is left alone.
func (c *Cache) Cancel(key Key) {
	c.mu.Lock()
	c.entry(key).gen++
	c.mu.Unlock()
}

// Fetch reads through the cache: a fresh value is returned as is; a stale
// one is returned while a background refetch runs; a missing one is
// fetched before returning.
func (c *Cache) Fetch(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	switch {
	case ok && c.fresh(e):
		v := e.value
		c.mu.Unlock()
		return v, nil
	case ok && e.has:
		v := e.value
		c.mu.Unlock()
		c.refetch(ctx, key, fetch)
		return v, nil
	}
	c.mu.Unlock()
	return c.load(ctx, key, fetch)
}

// Refresh fetches key now, regardless of what is cached.
func (c *Cache) Refresh(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	return c.load(ctx, key, fetch)
}

func (c *Cache) refetch(ctx context.Context, key Key, fetch Fetcher) {
	ctx = context.WithoutCancel(ctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if _, err := c.load(ctx, key, fetch); err != nil {
			c.log.Warn("background refetch failed", "key", key.String(), "err", err)
		}
	}()
}

// Wait blocks until every background refetch started so far has finished.
func (c *Cache) Wait() {
	c.bg.Wait()
}

func (c *Cache) load(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	c.mu.Lock()
	gen := c.entry(key).gen
	c.mu.Unlock()

	// Fetches are shared per generation: a load that starts after a write
	// never joins a fetch that started before it. The shared fetch outlives
	// any single caller's context.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		return fetch(shared)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	v := res.Val

	c.mu.Lock()
	e := c.entry(key)
	if e.gen != gen {
		// A newer write landed while fetching.
		cur, has := e.value, e.has
		c.mu.Unlock()
		if has {
			return cur, nil
		}
		return v, nil
	}
	c.set(key, v)
	c.mu.Unlock()
	c.notify(Event{Key: key, Kind: EventSet, Value: v})
	return v, nil
}

// Subscribe calls fn for every event on key until the returned function is
// called. fn runs on the goroutine that caused the event, outside the
// cache lock.
func (c *Cache) Subscribe(key Key, fn func(Event)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = subscriber{key: key, fn: fn}
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Cache) notify(ev Event) {
	c.mu.Lock()
	var fns []func(Event)
	for _, s := range c.subs {
		if s.key == ev.Key {
			fns = append(fns, s.fn)
		}
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Get returns the cached value of key as T.
func Get[T any](c *Cache, key Key) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Fetch is the typed form of Cache.Fetch.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	return typed[T](key, v, err)
}

// Refresh is the typed form of Cache.Refresh.
func Refresh[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	v, err := c.Refresh(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	return typed[T](key, v, err)
}

func typed[T any](key Key, v any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("querycache: %s holds %T, not %T", key, v, zero)
	}
	return t, nil
}
