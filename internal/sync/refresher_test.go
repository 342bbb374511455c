package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nhle/taskflow/internal/api"
	"github.com/nhle/taskflow/internal/cache"
	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
)

func newRefresher(t *testing.T, handler http.Handler, interval time.Duration) (*Refresher, *cache.Cache, store.Store) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	apiClient, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c := cache.New()
	s := store.NewMemoryStore()
	r := New(apiClient, c, s, interval)
	t.Cleanup(r.Stop)
	return r, c, s
}

func messagesHandler(calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"messages": []model.Message{
				{ID: "m1", TeamID: "t1", CreatedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
			},
		})
	})
}

func TestWatchTeamPopulatesCacheImmediately(t *testing.T) {
	var calls int32
	r, c, _ := newRefresher(t, messagesHandler(&calls), time.Hour)

	cancel := r.WatchTeam("t1")
	defer cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if entry, ok := c.Lookup(cache.TeamMessagesKey("t1")); ok && entry.Data != nil {
			messages := entry.Data.([]model.Message)
			if len(messages) == 1 && messages[0].ID == "m1" {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("initial refresh never populated the cache")
}

func TestRefreshTeamTriggersImmediateFetch(t *testing.T) {
	var calls int32
	r, _, _ := newRefresher(t, messagesHandler(&calls), time.Hour)

	cancel := r.WatchTeam("t1")
	defer cancel()

	waitForCalls := func(want int32) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if atomic.LoadInt32(&calls) >= want {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("calls = %d, want at least %d", atomic.LoadInt32(&calls), want)
	}

	waitForCalls(1)
	r.RefreshTeam("t1")
	waitForCalls(2)
}

func TestRefreshSkippedWhileForcedOut(t *testing.T) {
	var calls int32
	r, _, s := newRefresher(t, messagesHandler(&calls), time.Hour)

	if err := s.SetForcedLogout(true); err != nil {
		t.Fatal(err)
	}

	cancel := r.WatchTeam("t1")
	defer cancel()

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("%d fetches while forced out, want 0", got)
	}
}

func TestExpiredSessionStopsPolling(t *testing.T) {
	var calls int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"session expired"}`))
	})
	r, _, s := newRefresher(t, handler, 20*time.Millisecond)

	cancel := r.WatchTeam("t1")
	defer cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if forced, _ := s.ForcedLogout(); forced {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if forced, _ := s.ForcedLogout(); !forced {
		t.Fatal("401 during polling must set the forced-logout flag")
	}

	// Let any refresh that raced the flag finish, then verify later
	// ticks never reach the network.
	time.Sleep(50 * time.Millisecond)
	settled := atomic.LoadInt32(&calls)
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != settled {
		t.Fatalf("polling continued after forced logout: %d -> %d", settled, got)
	}
}

func TestRefreshTeamsLoadsTeamList(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"teams": []model.Team{{ID: "t1", Name: "Alpha"}},
		})
	})
	r, c, _ := newRefresher(t, handler, time.Hour)

	if err := r.RefreshTeams(context.Background()); err != nil {
		t.Fatalf("RefreshTeams: %v", err)
	}
	entry, ok := c.Lookup(cache.TeamsKey())
	if !ok {
		t.Fatal("team list not cached")
	}
	teams := entry.Data.([]model.Team)
	if len(teams) != 1 || teams[0].Name != "Alpha" {
		t.Fatalf("teams = %+v", teams)
	}
}
