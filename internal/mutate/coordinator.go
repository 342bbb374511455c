// Package mutate executes write operations against the backend and
// applies each operation's cache patch rule on success, so the cache
// converges to server truth without a full refetch where avoidable.
// On failure the cache is left exactly as it was and the error is
// returned unchanged; failures here are domain errors (validation,
// conflict), not transient ones, so nothing is retried.
package mutate

import (
	"context"

	"github.com/nhle/taskflow/internal/api"
	"github.com/nhle/taskflow/internal/cache"
	"github.com/nhle/taskflow/internal/model"
)

// Coordinator pairs the REST client with the cache patch rules.
type Coordinator struct {
	api   *api.Client
	cache *cache.Cache
}

// New creates a Coordinator.
func New(apiClient *api.Client, c *cache.Cache) *Coordinator {
	return &Coordinator{api: apiClient, cache: c}
}

// CreateTask creates a task. Server-side filtering makes client-side
// insertion unsafe to generalize, so every task-list query is
// invalidated instead.
func (m *Coordinator) CreateTask(ctx context.Context, input model.TaskInput) (model.Task, error) {
	task, err := m.api.CreateTask(ctx, input)
	if err != nil {
		return model.Task{}, err
	}
	m.cache.InvalidateKind(cache.KindTasks)
	return task, nil
}

// UpdateTask edits a task. An edit can change which filtered views the
// task belongs to, so all task lists are invalidated; the refetch is
// the price of correctness.
func (m *Coordinator) UpdateTask(ctx context.Context, taskID string, update model.TaskUpdate) (model.Task, error) {
	task, err := m.api.UpdateTask(ctx, taskID, update)
	if err != nil {
		return model.Task{}, err
	}
	m.cache.InvalidateKind(cache.KindTasks)
	return task, nil
}

// DeleteTask removes a task and invalidates every task list.
func (m *Coordinator) DeleteTask(ctx context.Context, taskID string) error {
	if err := m.api.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	m.cache.InvalidateKind(cache.KindTasks)
	return nil
}

// CreateTeam creates a team and invalidates the team list.
func (m *Coordinator) CreateTeam(ctx context.Context, input model.CreateTeamInput) (model.Team, error) {
	team, err := m.api.CreateTeam(ctx, input)
	if err != nil {
		return model.Team{}, err
	}
	m.cache.Invalidate(cache.TeamsKey())
	return team, nil
}

// JoinTeam joins a team and invalidates the team list.
func (m *Coordinator) JoinTeam(ctx context.Context, input model.JoinTeamInput) (model.Team, error) {
	team, err := m.api.JoinTeam(ctx, input)
	if err != nil {
		return model.Team{}, err
	}
	m.cache.Invalidate(cache.TeamsKey())
	return team, nil
}

// LeaveTeam leaves a team and invalidates the team list.
func (m *Coordinator) LeaveTeam(ctx context.Context, teamID string) error {
	if err := m.api.LeaveTeam(ctx, teamID); err != nil {
		return err
	}
	m.cache.Invalidate(cache.TeamsKey())
	return nil
}

// DeleteTeam deletes a team and invalidates the team list.
func (m *Coordinator) DeleteTeam(ctx context.Context, teamID string) error {
	if err := m.api.DeleteTeam(ctx, teamID); err != nil {
		return err
	}
	m.cache.Invalidate(cache.TeamsKey())
	return nil
}

// SendMessage posts a chat message and appends the server's version to
// the team's cached message list when one is populated. With no cached
// list the append is a no-op; a later fetch picks the message up.
func (m *Coordinator) SendMessage(ctx context.Context, teamID, content string) (model.Message, error) {
	msg, err := m.api.SendMessage(ctx, teamID, content)
	if err != nil {
		return model.Message{}, err
	}
	cache.AppendMessage(m.cache, msg)
	return msg, nil
}
