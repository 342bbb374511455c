// Package sync keeps watched team message lists (and the team list)
// flowing through the cache on an interval, so unread indicators stay
// live even when no push connection is up.
package sync

import (
	"context"
	"log"
	gosync "sync"
	"time"

	"github.com/nhle/taskflow/internal/api"
	"github.com/nhle/taskflow/internal/cache"
	"github.com/nhle/taskflow/internal/store"
)

// State represents the current state of a team's refresh loop.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateError
)

// Status holds the refresh state for a single watched team.
type Status struct {
	TeamID      string
	State       State
	LastRefresh time.Time
	Err         error
}

// Result reports the outcome of one refresh, delivered on the result
// channel for status displays.
type Result struct {
	TeamID string
	Err    error
}

// fetchTimeout is the maximum time allowed for a single refresh.
const fetchTimeout = 30 * time.Second

// teamWatch is one team's refresh loop, reference-counted across
// watchers.
type teamWatch struct {
	done    chan struct{}
	trigger chan struct{}
	refs    int
	status  Status
}

// Refresher polls watched teams' message lists through the cache.
type Refresher struct {
	api      *api.Client
	cache    *cache.Cache
	store    store.Store
	interval time.Duration

	mu      gosync.Mutex
	teams   map[string]*teamWatch
	stopped bool

	resultCh chan Result
}

// New creates a Refresher polling each watched team every interval.
func New(apiClient *api.Client, c *cache.Cache, s store.Store, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Refresher{
		api:      apiClient,
		cache:    c,
		store:    s,
		interval: interval,
		teams:    make(map[string]*teamWatch),
		resultCh: make(chan Result, 16),
	}
}

// WatchTeam starts (or joins) the refresh loop for a team. The
// returned cancel func drops the watch; the loop stops when the last
// watcher cancels.
func (r *Refresher) WatchTeam(teamID string) func() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return func() {}
	}
	w, ok := r.teams[teamID]
	if ok {
		w.refs++
		r.mu.Unlock()
		return r.release(teamID, w)
	}

	w = &teamWatch{
		done:    make(chan struct{}),
		trigger: make(chan struct{}, 1),
		refs:    1,
		status:  Status{TeamID: teamID, State: StateIdle},
	}
	r.teams[teamID] = w
	r.mu.Unlock()

	go r.loop(teamID, w)
	return r.release(teamID, w)
}

func (r *Refresher) release(teamID string, w *teamWatch) func() {
	var once gosync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			w.refs--
			if w.refs <= 0 {
				delete(r.teams, teamID)
				close(w.done)
			}
			r.mu.Unlock()
		})
	}
}

// RefreshTeam triggers an immediate refresh of a watched team.
func (r *Refresher) RefreshTeam(teamID string) {
	r.mu.Lock()
	w, ok := r.teams[teamID]
	r.mu.Unlock()
	if !ok {
		return
	}
	select {
	case w.trigger <- struct{}{}:
	default:
		// A refresh is already pending.
	}
}

// RefreshTeams re-fetches the team list itself through the cache.
func (r *Refresher) RefreshTeams(ctx context.Context) error {
	_, err := r.cache.Refresh(ctx, cache.TeamsKey(), func(ctx context.Context) (interface{}, error) {
		return r.api.ListTeams(ctx)
	})
	return err
}

// Statuses returns the current refresh status of every watched team.
func (r *Refresher) Statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]Status, 0, len(r.teams))
	for _, w := range r.teams {
		statuses = append(statuses, w.status)
	}
	return statuses
}

// Results exposes refresh outcomes for status displays.
func (r *Refresher) Results() <-chan Result {
	return r.resultCh
}

// Stop halts every refresh loop and prevents new watches.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	r.stopped = true
	for teamID, w := range r.teams {
		close(w.done)
		delete(r.teams, teamID)
	}
}

// loop runs the refresh cycle for a single team.
func (r *Refresher) loop(teamID string, w *teamWatch) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Initial refresh immediately, so a newly watched team's unread
	// state does not wait a full interval.
	r.refresh(teamID, w)

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			r.refresh(teamID, w)
		case <-w.trigger:
			r.refresh(teamID, w)
		}
	}
}

// refresh performs a single message-list fetch through the cache.
func (r *Refresher) refresh(teamID string, w *teamWatch) {
	if forced, err := r.store.ForcedLogout(); err == nil && forced {
		// No session to poll with; stay quiet until the next login.
		return
	}

	r.setStatus(w, StateRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	_, err := r.cache.Refresh(ctx, cache.TeamMessagesKey(teamID), func(ctx context.Context) (interface{}, error) {
		return r.api.ListMessages(ctx, teamID)
	})
	if err != nil {
		r.setStatus(w, StateError, err)
		if api.IsAuthError(err) {
			log.Printf("[Refresher] session expired while polling team %s", teamID)
			_ = r.store.SetForcedLogout(true)
		}
		r.sendResult(Result{TeamID: teamID, Err: err})
		return
	}

	r.setStatus(w, StateIdle, nil)
	r.sendResult(Result{TeamID: teamID})
}

func (r *Refresher) setStatus(w *teamWatch, state State, err error) {
	r.mu.Lock()
	w.status.State = state
	w.status.Err = err
	if state == StateIdle && err == nil {
		w.status.LastRefresh = time.Now()
	}
	r.mu.Unlock()
}

// sendResult delivers a result without blocking the refresh loop.
func (r *Refresher) sendResult(res Result) {
	select {
	case r.resultCh <- res:
	default:
	}
}
