package model

import "net/url"

// Task list sort keys accepted by the backend.
const (
	SortByDueDate   = "dueDate"
	SortByCreatedAt = "createdAt"
)

// Task list scopes accepted by the backend.
const (
	ScopePersonal = "personal"
	ScopeTeam     = "team"
)

// TaskFilter controls server-side filtering of GET /tasks. Nil and
// zero-valued fields are omitted from the query string.
type TaskFilter struct {
	Status       *Status
	Priority     *Priority
	SortBy       string
	AssignedToID *string
	CreatorID    *string
	Overdue      bool
	TeamID       *string
	Scope        string
	Search       string
}

// Query encodes the filter as request query parameters. The encoding
// is canonical (url.Values sorts keys), so two equal filters always
// produce the same string and address the same cache entry.
func (f TaskFilter) Query() url.Values {
	q := url.Values{}
	if f.Status != nil {
		q.Set("status", string(*f.Status))
	}
	if f.Priority != nil {
		q.Set("priority", string(*f.Priority))
	}
	if f.SortBy != "" {
		q.Set("sortBy", f.SortBy)
	}
	if f.AssignedToID != nil {
		q.Set("assignedToId", *f.AssignedToID)
	}
	if f.CreatorID != nil {
		q.Set("creatorId", *f.CreatorID)
	}
	if f.Overdue {
		q.Set("overdue", "true")
	}
	if f.TeamID != nil {
		q.Set("teamId", *f.TeamID)
	}
	if f.Scope != "" {
		q.Set("scope", f.Scope)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}
