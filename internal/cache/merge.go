package cache

import (
	"sort"

	"github.com/nhle/taskflow/internal/model"
)

// AppendMessage folds a chat message into its team's cached message
// list. The append is idempotent by message id and keeps canonical
// order (createdAt, then id). A message for a team whose list has not
// been fetched yet is dropped: appending before base population would
// corrupt ordering, and the eventual fetch includes it anyway.
// Reports whether the message was added.
func AppendMessage(c *Cache, msg model.Message) bool {
	added := false
	c.Patch(TeamMessagesKey(msg.TeamID), func(data interface{}) (interface{}, bool) {
		messages, ok := data.([]model.Message)
		if !ok {
			return data, false
		}
		for _, m := range messages {
			if m.ID == msg.ID {
				return data, false
			}
		}

		i := sort.Search(len(messages), func(i int) bool {
			return model.MessageBefore(msg, messages[i])
		})
		out := make([]model.Message, 0, len(messages)+1)
		out = append(out, messages[:i]...)
		out = append(out, msg)
		out = append(out, messages[i:]...)
		added = true
		return out, true
	})
	return added
}

// PatchTask replaces the task in every cached task list that currently
// contains a task with the same id. Lists without that id are left
// untouched: inserting would mean re-deriving the server's filter
// logic on the client, so inserts only arrive via invalidation and
// refetch. Returns the number of lists patched.
func PatchTask(c *Cache, task model.Task) int {
	patched := 0
	for _, key := range c.Keys(KindTasks) {
		if c.Patch(key, replaceTask(task)) {
			patched++
		}
	}
	return patched
}

func replaceTask(task model.Task) Updater {
	return func(data interface{}) (interface{}, bool) {
		tasks, ok := data.([]model.Task)
		if !ok {
			return data, false
		}
		for i, t := range tasks {
			if t.ID != task.ID {
				continue
			}
			out := make([]model.Task, len(tasks))
			copy(out, tasks)
			out[i] = task
			return out, true
		}
		return data, false
	}
}
