package store

import (
	"path/filepath"
	"testing"
	"time"
)

// implementations runs each test against both store backends, since
// they must carry identical semantics.
func implementations(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestWatermarkAbsentByDefault(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Watermark("team-1")
			if err != nil {
				t.Fatalf("Watermark: %v", err)
			}
			if ok {
				t.Fatal("expected no watermark for unseen team")
			}
		})
	}
}

func TestSetWatermarkMonotonic(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			steps := []struct {
				set  time.Time
				want time.Time
			}{
				{base, base},
				{base.Add(-time.Hour), base},               // backward move ignored
				{base, base},                               // equal value ignored
				{base.Add(5 * time.Minute), base.Add(5 * time.Minute)},
				{base.Add(time.Minute), base.Add(5 * time.Minute)}, // still ignored
			}

			for i, step := range steps {
				if err := s.SetWatermark("team-1", step.set); err != nil {
					t.Fatalf("step %d: SetWatermark: %v", i, err)
				}
				got, ok, err := s.Watermark("team-1")
				if err != nil {
					t.Fatalf("step %d: Watermark: %v", i, err)
				}
				if !ok {
					t.Fatalf("step %d: watermark missing", i)
				}
				if !got.Equal(step.want) {
					t.Fatalf("step %d: watermark = %v, want %v", i, got, step.want)
				}
			}
		})
	}
}

func TestWatermarksReturnsAllTeams(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.SetWatermark("team-1", base); err != nil {
				t.Fatal(err)
			}
			if err := s.SetWatermark("team-2", base.Add(time.Hour)); err != nil {
				t.Fatal(err)
			}

			all, err := s.Watermarks()
			if err != nil {
				t.Fatalf("Watermarks: %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("got %d watermarks, want 2", len(all))
			}
			if !all["team-2"].Equal(base.Add(time.Hour)) {
				t.Fatalf("team-2 watermark = %v", all["team-2"])
			}
		})
	}
}

func TestForcedLogoutFlag(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			forced, err := s.ForcedLogout()
			if err != nil {
				t.Fatal(err)
			}
			if forced {
				t.Fatal("flag should start clear")
			}

			if err := s.SetForcedLogout(true); err != nil {
				t.Fatal(err)
			}
			if forced, _ = s.ForcedLogout(); !forced {
				t.Fatal("flag should be set")
			}

			if err := s.SetForcedLogout(false); err != nil {
				t.Fatal(err)
			}
			if forced, _ = s.ForcedLogout(); forced {
				t.Fatal("flag should be cleared")
			}
		})
	}
}

func TestSubscribeObservesChanges(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			ch, cancel := s.Subscribe()
			defer cancel()

			if err := s.SetWatermark("team-1", base); err != nil {
				t.Fatal(err)
			}
			select {
			case change := <-ch:
				if change.TeamID != "team-1" {
					t.Fatalf("change.TeamID = %q, want team-1", change.TeamID)
				}
			case <-time.After(time.Second):
				t.Fatal("no change notification for watermark set")
			}

			// A rejected (non-monotonic) set must not notify.
			if err := s.SetWatermark("team-1", base.Add(-time.Hour)); err != nil {
				t.Fatal(err)
			}
			select {
			case <-ch:
				t.Fatal("rejected watermark set should not notify")
			case <-time.After(50 * time.Millisecond):
			}

			if err := s.SetForcedLogout(true); err != nil {
				t.Fatal(err)
			}
			select {
			case change := <-ch:
				if change.TeamID != "" {
					t.Fatalf("flag change should have empty TeamID, got %q", change.TeamID)
				}
			case <-time.After(time.Second):
				t.Fatal("no change notification for flag set")
			}
		})
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	if err := s.SetWatermark("team-1", base); err != nil {
		t.Fatal(err)
	}
	if err := s.SetForcedLogout(true); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Watermark("team-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || !got.Equal(base) {
		t.Fatalf("watermark after reopen = %v (ok=%v), want %v", got, ok, base)
	}
	forced, err := reopened.ForcedLogout()
	if err != nil {
		t.Fatal(err)
	}
	if !forced {
		t.Fatal("forced-logout flag lost across reopen")
	}
}
