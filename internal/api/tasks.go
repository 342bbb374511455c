package api

import (
	"context"
	"fmt"

	"github.com/nhle/taskflow/internal/model"
)

// ListTasks fetches the task lists matching the filter. Filtering is
// entirely server-side.
func (c *Client) ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.get(ctx, "/tasks", filter.Query(), &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask creates a task and returns the server's version of it.
func (c *Client) CreateTask(ctx context.Context, input model.TaskInput) (model.Task, error) {
	var task model.Task
	if err := c.post(ctx, "/tasks", input, &task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// UpdateTask applies a partial edit to a task.
func (c *Client) UpdateTask(ctx context.Context, taskID string, update model.TaskUpdate) (model.Task, error) {
	var task model.Task
	if err := c.put(ctx, fmt.Sprintf("/tasks/%s", taskID), update, &task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.delete(ctx, fmt.Sprintf("/tasks/%s", taskID))
}
