package cache

import (
	"testing"
	"time"

	"github.com/nhle/taskflow/internal/model"
)

func msg(id, teamID string, at time.Time) model.Message {
	return model.Message{ID: id, TeamID: teamID, Content: "m-" + id, CreatedAt: at}
}

func TestAppendMessageKeepsOrderAndDeduplicates(t *testing.T) {
	c := New()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c.Set(TeamMessagesKey("t1"), []model.Message{
		msg("m1", "t1", base),
		msg("m3", "t1", base.Add(10*time.Minute)),
	})

	if !AppendMessage(c, msg("m2", "t1", base.Add(5*time.Minute))) {
		t.Fatal("append of new message failed")
	}
	// Same id delivered twice must not duplicate.
	if AppendMessage(c, msg("m2", "t1", base.Add(5*time.Minute))) {
		t.Fatal("duplicate append reported as added")
	}

	entry, _ := c.Lookup(TeamMessagesKey("t1"))
	messages := entry.Data.([]model.Message)
	if len(messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(messages))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if messages[i].ID != want {
			t.Fatalf("messages[%d].ID = %s, want %s", i, messages[i].ID, want)
		}
	}
}

func TestAppendMessageBreaksTimestampTiesByID(t *testing.T) {
	c := New()
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	c.Set(TeamMessagesKey("t1"), []model.Message{msg("b", "t1", at)})

	AppendMessage(c, msg("a", "t1", at))

	entry, _ := c.Lookup(TeamMessagesKey("t1"))
	messages := entry.Data.([]model.Message)
	if messages[0].ID != "a" || messages[1].ID != "b" {
		t.Fatalf("tie not broken by id: %s, %s", messages[0].ID, messages[1].ID)
	}
}

func TestAppendMessageDropsWithoutBaseList(t *testing.T) {
	c := New()

	if AppendMessage(c, msg("m1", "t1", time.Now())) {
		t.Fatal("message appended before any fetch populated the list")
	}
	if _, ok := c.Lookup(TeamMessagesKey("t1")); ok {
		t.Fatal("dropped message must not create an entry")
	}
}

func TestPatchTaskReplacesOnlyListsContainingIt(t *testing.T) {
	c := New()
	status := model.StatusToDo
	keyAll := TasksKey(model.TaskFilter{})
	keyToDo := TasksKey(model.TaskFilter{Status: &status})

	c.Set(keyAll, []model.Task{
		{ID: "task-1", Title: "old"},
		{ID: "task-2", Title: "other"},
	})
	c.Set(keyToDo, []model.Task{{ID: "task-2", Title: "other"}})

	patched := PatchTask(c, model.Task{ID: "task-1", Title: "new"})
	if patched != 1 {
		t.Fatalf("patched %d lists, want 1", patched)
	}

	entry, _ := c.Lookup(keyAll)
	tasks := entry.Data.([]model.Task)
	if tasks[0].Title != "new" {
		t.Fatalf("task not replaced: %+v", tasks[0])
	}

	// The filtered list never contained task-1, so no insertion.
	entry, _ = c.Lookup(keyToDo)
	tasks = entry.Data.([]model.Task)
	if len(tasks) != 1 || tasks[0].ID != "task-2" {
		t.Fatalf("filtered list modified: %+v", tasks)
	}
}
