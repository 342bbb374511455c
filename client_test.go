package taskflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nhle/taskflow/internal/model"
	"github.com/nhle/taskflow/internal/store"
	"github.com/nhle/taskflow/tests/testutil"
)

func newTestClient(t *testing.T, handler http.Handler, st store.Store) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &model.AppConfig{
		APIBaseURL:     srv.URL,
		SocketURL:      "ws://" + srv.Listener.Addr().String() + "/ws",
		MessagePollSec: 60,
	}
	client, err := New(cfg, WithStore(st), WithCredentialStore(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, srv
}

func TestTasksReadThroughCachesResult(t *testing.T) {
	var calls int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt64(&calls, 1)
		json.NewEncoder(w).Encode([]model.Task{{ID: "t1", Title: "write release notes"}})
	}), store.NewMemoryStore())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		tasks, err := client.Tasks(ctx, model.TaskFilter{})
		if err != nil {
			t.Fatalf("Tasks: %v", err)
		}
		if len(tasks) != 1 || tasks[0].ID != "t1" {
			t.Fatalf("tasks = %+v", tasks)
		}
	}
	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Fatalf("backend served %d task requests, want 1", n)
	}
}

func TestMutationInvalidatesTaskReads(t *testing.T) {
	var lists int64
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/tasks":
			n := atomic.AddInt64(&lists, 1)
			tasks := []model.Task{{ID: "t1", Title: "write release notes"}}
			if n > 1 {
				tasks = append(tasks, model.Task{ID: "t2", Title: "tag the release"})
			}
			json.NewEncoder(w).Encode(tasks)
		case r.Method == http.MethodPost && r.URL.Path == "/tasks":
			json.NewEncoder(w).Encode(model.Task{ID: "t2", Title: "tag the release"})
		default:
			http.NotFound(w, r)
		}
	}), store.NewMemoryStore())

	ctx := context.Background()
	if _, err := client.Tasks(ctx, model.TaskFilter{}); err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if _, err := client.Mutations.CreateTask(ctx, model.TaskInput{Title: "tag the release"}); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	tasks, err := client.Tasks(ctx, model.TaskFilter{})
	if err != nil {
		t.Fatalf("Tasks after create: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("stale task list after mutation: %+v", tasks)
	}
}

func TestUnreadLifecycleThroughFacade(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/teams":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"teams": []model.Team{{ID: "team-1", Name: "Platform"}},
			})
		case "/teams/team-1/messages":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"messages": []model.Message{{ID: "m1", TeamID: "team-1", Content: "standup at ten", CreatedAt: base}},
			})
		default:
			http.NotFound(w, r)
		}
	}), testutil.NewTestStore(t))

	ctx := context.Background()
	if _, err := client.Teams(ctx); err != nil {
		t.Fatalf("Teams: %v", err)
	}
	if _, err := client.TeamMessages(ctx, "team-1"); err != nil {
		t.Fatalf("TeamMessages: %v", err)
	}

	unread, err := client.Unread.Unread("team-1")
	if err != nil {
		t.Fatalf("Unread: %v", err)
	}
	if !unread {
		t.Fatal("team with messages and no watermark must be unread")
	}

	if err := client.Unread.MarkSeen("team-1"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	unread, err = client.Unread.Unread("team-1")
	if err != nil {
		t.Fatalf("Unread after MarkSeen: %v", err)
	}
	if unread {
		t.Fatal("team must be read after MarkSeen")
	}
}
