// Package cache holds server-fetched collections keyed by query. It is
// a derived, expendable projection of backend state: entries can be
// invalidated and rebuilt at any time, patched in place on targeted
// updates, and are never silently dropped on a failed refresh.
package cache

import (
	"context"
	"sync"
	"time"
)

// FetchFunc loads the data for a key from the backend.
type FetchFunc func(ctx context.Context) (interface{}, error)

// Updater rewrites an entry's data in place. It returns the new data
// and whether anything changed; returning false leaves the entry
// untouched and suppresses notification.
type Updater func(data interface{}) (interface{}, bool)

// Entry is one cached query result with its staleness metadata. Err
// records the most recent failed refresh; Data keeps the last
// successfully fetched value even then (stale-if-error).
type Entry struct {
	Data      interface{}
	Err       error
	Stale     bool
	FetchedAt time.Time
}

// flight tracks a single in-flight fetch so concurrent readers of the
// same key coalesce into one network call.
type flight struct {
	done chan struct{}
	data interface{}
	err  error
}

// Cache is the process-wide remote data cache, shared by every view.
// Construct one explicitly and pass it where needed; there is no
// package-level instance.
type Cache struct {
	mu       sync.Mutex
	entries  map[Key]Entry
	inflight map[Key]*flight
	subs     map[int]chan Key
	nextSub  int
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries:  make(map[Key]Entry),
		inflight: make(map[Key]*flight),
		subs:     make(map[int]chan Key),
	}
}

// Lookup returns the entry for key, if any, without fetching.
func (c *Cache) Lookup(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Fetch returns the cached data for key when it is fresh; otherwise it
// loads the key via fn. Concurrent Fetch calls for the same key share
// one invocation of fn and all receive its result. When fn fails and a
// previous value exists, that value is returned alongside the error.
func (c *Cache) Fetch(ctx context.Context, key Key, fn FetchFunc) (interface{}, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && !e.Stale && e.Err == nil {
		c.mu.Unlock()
		return e.Data, nil
	}
	return c.fetchLocked(ctx, key, fn)
}

// Refresh loads the key via fn regardless of freshness, still
// coalescing with any fetch already in flight.
func (c *Cache) Refresh(ctx context.Context, key Key, fn FetchFunc) (interface{}, error) {
	c.mu.Lock()
	return c.fetchLocked(ctx, key, fn)
}

// fetchLocked is entered holding c.mu and releases it before any
// blocking work.
func (c *Cache) fetchLocked(ctx context.Context, key Key, fn FetchFunc) (interface{}, error) {
	if fl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		select {
		case <-fl.done:
			return fl.data, fl.err
		case <-ctx.Done():
			// The caller went away; the underlying call completes and
			// lands in the cache for whoever is still interested.
			return nil, ctx.Err()
		}
	}

	fl := &flight{done: make(chan struct{})}
	c.inflight[key] = fl
	c.mu.Unlock()

	data, err := fn(ctx)

	c.mu.Lock()
	delete(c.inflight, key)
	if err == nil {
		c.entries[key] = Entry{Data: data, FetchedAt: time.Now()}
		fl.data = data
	} else {
		prev, ok := c.entries[key]
		if ok {
			prev.Err = err
			prev.Stale = true
			c.entries[key] = prev
			fl.data = prev.Data
		} else {
			c.entries[key] = Entry{Err: err, Stale: true}
		}
		fl.err = err
	}
	c.notifyLocked(key)
	c.mu.Unlock()

	close(fl.done)
	return fl.data, fl.err
}

// Set stores data for key as fresh.
func (c *Cache) Set(key Key, data interface{}) {
	c.mu.Lock()
	c.entries[key] = Entry{Data: data, FetchedAt: time.Now()}
	c.notifyLocked(key)
	c.mu.Unlock()
}

// Patch rewrites the entry's data in place via update. Entries that
// are absent or hold no data are left alone. Reports whether the entry
// changed.
func (c *Cache) Patch(key Key, update Updater) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.Data == nil {
		return false
	}

	data, changed := update(e.Data)
	if !changed {
		return false
	}

	e.Data = data
	c.entries[key] = e
	c.notifyLocked(key)
	return true
}

// Invalidate marks key stale. Subscribers are notified so active
// readers re-fetch; the stale data remains readable until they do.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.Stale = true
		c.entries[key] = e
	}
	c.notifyLocked(key)
	c.mu.Unlock()
}

// InvalidateKind marks every key of the given kind stale, regardless
// of filter parameters.
func (c *Cache) InvalidateKind(kind Kind) {
	c.mu.Lock()
	for key, e := range c.entries {
		if key.Kind != kind {
			continue
		}
		e.Stale = true
		c.entries[key] = e
		c.notifyLocked(key)
	}
	c.mu.Unlock()
}

// Keys returns every cached key of the given kind.
func (c *Cache) Keys(kind Kind) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keys []Key
	for key := range c.entries {
		if key.Kind == kind {
			keys = append(keys, key)
		}
	}
	return keys
}

// Remove deletes the entry for key.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.notifyLocked(key)
	}
	c.mu.Unlock()
}

// Clear drops every entry. Used on logout, when nothing cached belongs
// to the next session.
func (c *Cache) Clear() {
	c.mu.Lock()
	keys := make([]Key, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.entries = make(map[Key]Entry)
	for _, key := range keys {
		c.notifyLocked(key)
	}
	c.mu.Unlock()
}

// Subscribe registers for change notifications. Each changed key is
// delivered on the returned channel; the channel is a wake-up signal,
// and a slow receiver may miss intermediate keys, so consumers should
// re-read the entries they care about on receipt. The cancel func
// releases the subscription.
func (c *Cache) Subscribe() (<-chan Key, func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	ch := make(chan Key, 16)
	c.subs[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
	return ch, cancel
}

// notifyLocked fans a key change out to subscribers without blocking.
func (c *Cache) notifyLocked(key Key) {
	for _, ch := range c.subs {
		select {
		case ch <- key:
		default:
		}
	}
}
