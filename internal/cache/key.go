package cache

import "github.com/nhle/taskflow/internal/model"

// Kind is the entity family a cache key belongs to. Invalidation rules
// frequently apply to a whole kind (e.g. every task-list query).
type Kind string

const (
	KindTasks        Kind = "tasks"
	KindTeams        Kind = "teams"
	KindTeamMembers  Kind = "teamMembers"
	KindTeamMessages Kind = "teamMessages"
	KindProfile      Kind = "profile"
)

// Key addresses one cached query result. Arg disambiguates queries of
// the same kind: the canonical filter encoding for task lists, the
// team id for member and message lists, empty otherwise. Two filters
// that encode identically are, by construction, the same query.
type Key struct {
	Kind Kind
	Arg  string
}

func (k Key) String() string {
	if k.Arg == "" {
		return string(k.Kind)
	}
	return string(k.Kind) + ":" + k.Arg
}

// TasksKey returns the key for a filtered task-list query.
func TasksKey(filter model.TaskFilter) Key {
	return Key{Kind: KindTasks, Arg: filter.Query().Encode()}
}

// TeamsKey returns the key for the current user's team list.
func TeamsKey() Key {
	return Key{Kind: KindTeams}
}

// TeamMembersKey returns the key for a team's membership list.
func TeamMembersKey(teamID string) Key {
	return Key{Kind: KindTeamMembers, Arg: teamID}
}

// TeamMessagesKey returns the key for a team's message list.
func TeamMessagesKey(teamID string) Key {
	return Key{Kind: KindTeamMessages, Arg: teamID}
}

// ProfileKey returns the key for the current user's profile.
func ProfileKey() Key {
	return Key{Kind: KindProfile}
}
