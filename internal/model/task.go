package model

import "time"

// Priority is the urgency level of a task, as named by the backend.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Status is the workflow state of a task.
type Status string

const (
	StatusToDo       Status = "ToDo"
	StatusInProgress Status = "InProgress"
	StatusReview     Status = "Review"
	StatusCompleted  Status = "Completed"
)

// Task is a work item as returned by the backend. A task without a
// TeamID is a personal task.
type Task struct {
	// ID is the backend-assigned unique identifier.
	ID string `json:"id"`

	// Title is the human-readable summary of the task.
	Title string `json:"title"`

	// Description is the optional full body text.
	Description *string `json:"description,omitempty"`

	// DueDate is the optional deadline.
	DueDate *time.Time `json:"dueDate,omitempty"`

	// Priority is the urgency level (use Priority* constants).
	Priority Priority `json:"priority"`

	// Status is the workflow state (use Status* constants).
	Status Status `json:"status"`

	// CreatorID references the user who created the task.
	CreatorID string `json:"creatorId"`

	// AssignedToID optionally references the assigned user.
	AssignedToID *string `json:"assignedToId,omitempty"`

	// TeamID optionally references the owning team; nil means personal.
	TeamID *string `json:"teamId,omitempty"`

	// CreatedAt is when the task was created on the server.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is when the task was last modified on the server.
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskInput holds the fields accepted when creating a task.
type TaskInput struct {
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	Priority     Priority   `json:"priority"`
	Status       Status     `json:"status"`
	AssignedToID *string    `json:"assignedToId,omitempty"`
	TeamID       *string    `json:"teamId,omitempty"`
}

// TaskUpdate holds a partial task edit. Nil fields are left unchanged
// by the backend.
type TaskUpdate struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	Priority     *Priority  `json:"priority,omitempty"`
	Status       *Status    `json:"status,omitempty"`
	AssignedToID *string    `json:"assignedToId,omitempty"`
}
