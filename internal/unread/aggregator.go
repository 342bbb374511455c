// Package unread derives per-team unread indicators by crossing the
// cached message lists with the locally persisted last-seen
// watermarks. A team is unread iff it has a cached message created
// strictly after its watermark; with no watermark recorded, any
// message at all counts.
package unread

import (
	"fmt"
	"sync"

	"github.com/nhle/taskflow/internal/cache"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
)

// Aggregator watches the cache and the watermark store and signals
// subscribers whenever the unread picture may have changed. Snapshots
// are computed on demand from current inputs, never cached, so a
// reader can never observe a stale derivation.
type Aggregator struct {
	cache *cache.Cache
	store store.Store

	mu      sync.Mutex
	subs    map[int]chan struct{}
	nextSub int

	stop        chan struct{}
	cancelCache func()
	cancelStore func()
	once        sync.Once
}

// New creates an Aggregator and starts watching both inputs.
func New(c *cache.Cache, s store.Store) *Aggregator {
	a := &Aggregator{
		cache: c,
		store: s,
		subs:  make(map[int]chan struct{}),
		stop:  make(chan struct{}),
	}

	cacheCh, cancelCache := c.Subscribe()
	storeCh, cancelStore := s.Subscribe()
	a.cancelCache = cancelCache
	a.cancelStore = cancelStore

	go a.watch(cacheCh, storeCh)
	return a
}

// watch forwards relevant input changes as recompute signals.
func (a *Aggregator) watch(cacheCh <-chan cache.Key, storeCh <-chan store.Change) {
	for {
		select {
		case <-a.stop:
			return
		case key := <-cacheCh:
			if key.Kind == cache.KindTeams || key.Kind == cache.KindTeamMessages {
				a.signal()
			}
		case <-storeCh:
			a.signal()
		}
	}
}

// Snapshot computes the per-team unread map across the cached team
// list, plus whether any team is unread. Teams without a cached
// message list count as read; nothing in the cache can be newer than
// what was never fetched.
func (a *Aggregator) Snapshot() (map[string]bool, bool, error) {
	watermarks, err := a.store.Watermarks()
	if err != nil {
		return nil, false, fmt.Errorf("reading watermarks: %w", err)
	}

	byTeam := make(map[string]bool)
	any := false
	for _, team := range a.teams() {
		unread := false
		if latest, ok := a.latestMessage(team.ID); ok {
			wm, hasWM := watermarks[team.ID]
			unread = !hasWM || latest.CreatedAt.After(wm)
		}
		byTeam[team.ID] = unread
		if unread {
			any = true
		}
	}
	return byTeam, any, nil
}

// Unread reports whether a single team has unseen messages.
func (a *Aggregator) Unread(teamID string) (bool, error) {
	latest, ok := a.latestMessage(teamID)
	if !ok {
		return false, nil
	}
	wm, hasWM, err := a.store.Watermark(teamID)
	if err != nil {
		return false, err
	}
	return !hasWM || latest.CreatedAt.After(wm), nil
}

// MarkSeen advances the team's watermark to the createdAt of the
// latest currently cached message, never to the current time, so the
// watermark cannot exceed actually-seen content. With no cached
// messages it is a no-op.
func (a *Aggregator) MarkSeen(teamID string) error {
	latest, ok := a.latestMessage(teamID)
	if !ok {
		return nil
	}
	return a.store.SetWatermark(teamID, latest.CreatedAt)
}

// Subscribe registers for change signals. Receivers should call
// Snapshot after each signal; signals carry no payload and may be
// coalesced.
func (a *Aggregator) Subscribe() (<-chan struct{}, func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	ch := make(chan struct{}, 1)
	a.subs[id] = ch
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
	return ch, cancel
}

// Close stops watching the inputs.
func (a *Aggregator) Close() {
	a.once.Do(func() {
		close(a.stop)
		a.cancelCache()
		a.cancelStore()
	})
}

func (a *Aggregator) signal() {
	a.mu.Lock()
	for _, ch := range a.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	a.mu.Unlock()
}

func (a *Aggregator) teams() []model.Team {
	entry, ok := a.cache.Lookup(cache.TeamsKey())
	if !ok {
		return nil
	}
	teams, _ := entry.Data.([]model.Team)
	return teams
}

func (a *Aggregator) latestMessage(teamID string) (model.Message, bool) {
	entry, ok := a.cache.Lookup(cache.TeamMessagesKey(teamID))
	if !ok {
		return model.Message{}, false
	}
	messages, _ := entry.Data.([]model.Message)
	return model.LatestMessage(messages)
}
