// Package store persists client-local state: per-team last-seen
// watermarks and the forced-logout flag. The store is the source of
// truth for unread indicators and survives restarts; changes are
// observable so every open view of the app converges, not just the
// writer.
package store

import (
	"sync"
	"time"
)

// Change describes a single observed store update.
type Change struct {
	// TeamID is set for watermark changes and empty for forced-logout
	// flag changes.
	TeamID string
}

// Store is the local state contract. SetWatermark is monotonic: a
// timestamp not strictly later than the stored one is a no-op.
type Store interface {
	// Watermark returns the last-seen timestamp for a team, and
	// whether one is recorded.
	Watermark(teamID string) (time.Time, bool, error)

	// Watermarks returns every recorded watermark.
	Watermarks() (map[string]time.Time, error)

	// SetWatermark advances a team's watermark. Values that do not
	// move it strictly forward are ignored.
	SetWatermark(teamID string, ts time.Time) error

	// ForcedLogout reports whether the forced-logout flag is set.
	ForcedLogout() (bool, error)

	// SetForcedLogout sets or clears the forced-logout flag.
	SetForcedLogout(v bool) error

	// Subscribe registers for change notifications. The cancel func
	// releases the subscription.
	Subscribe() (<-chan Change, func())

	// Close releases any underlying resources.
	Close() error
}

// notifier fans Change events out to subscribers without blocking.
type notifier struct {
	mu      sync.Mutex
	subs    map[int]chan Change
	nextSub int
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[int]chan Change)}
}

func (n *notifier) subscribe() (<-chan Change, func()) {
	n.mu.Lock()
	id := n.nextSub
	n.nextSub++
	ch := make(chan Change, 8)
	n.subs[id] = ch
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
	return ch, cancel
}

func (n *notifier) notify(change Change) {
	n.mu.Lock()
	for _, ch := range n.subs {
		select {
		case ch <- change:
		default:
		}
	}
	n.mu.Unlock()
}
