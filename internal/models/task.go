package models

import (
	"strings"

	"github.com/p-blackswan/taskboard/internal/apierr"
)

// TaskStatus is the kanban column a task sits in. Any status may move to any
// other.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusReview     TaskStatus = "REVIEW"
	StatusDone       TaskStatus = "DONE"
)

// AllStatuses lists the statuses in board column order.
var AllStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusReview, StatusDone}

// Valid reports whether s is one of the four statuses.
func (s TaskStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Title is the column heading for s.
func (s TaskStatus) Title() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusReview:
		return "Review"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// ParseStatus accepts the wire form or a loose spelling such as "in-progress".
func ParseStatus(s string) (TaskStatus, bool) {
	norm := TaskStatus(strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(s))))
	if norm == "TO_DO" {
		norm = StatusTodo
	}
	return norm, norm.Valid()
}

// Priority is descriptive only; no workflow rule depends on it.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Assignable reports whether p may be chosen on the task form. CRITICAL is
// only ever set by the server.
func (p Priority) Assignable() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task is a single card on a project board.
type Task struct {
	ID          string        `json:"id" yaml:"id"`
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description" yaml:"description"`
	Status      TaskStatus    `json:"status" yaml:"status"`
	Priority    Priority      `json:"priority" yaml:"priority"`
	DueDate     *string       `json:"dueDate" yaml:"dueDate"`
	Assignee    ProjectMember `json:"assignee" yaml:"assignee"`
}

// Clone returns a copy of t that shares no pointers with it.
func (t Task) Clone() Task {
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return t
}

// CreateTaskDto is the body of POST /projects/{id}/tasks.
type CreateTaskDto struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	DueDate     *string    `json:"dueDate"`
	AssigneeID  string     `json:"assigneeId"`
	Status      TaskStatus `json:"status,omitempty"`
}

// Validate checks the task form before it is sent.
func (d CreateTaskDto) Validate() error {
	var v apierr.ValidationErrors
	if strings.TrimSpace(d.Title) == "" {
		v.Add("title", "Title is required")
	}
	if !d.Priority.Assignable() {
		v.Add("priority", "Priority must be LOW, MEDIUM or HIGH")
	}
	if d.AssigneeID == "" {
		v.Add("assigneeId", "Assignee is required")
	}
	if d.Status != "" && !d.Status.Valid() {
		v.Add("status", "Unknown task status")
	}
	return v.Err("task.create")
}

// TaskPatch is a partial task for PUT /projects/{id}/tasks/{taskId}.
type TaskPatch struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Priority    *Priority   `json:"priority,omitempty"`
	DueDate     *string     `json:"dueDate,omitempty"`
	AssigneeID  *string     `json:"assigneeId,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
}

// Validate checks only the fields that are set.
func (p TaskPatch) Validate() error {
	var v apierr.ValidationErrors
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		v.Add("title", "Title is required")
	}
	if p.Priority != nil && !p.Priority.Assignable() {
		v.Add("priority", "Priority must be LOW, MEDIUM or HIGH")
	}
	if p.AssigneeID != nil && *p.AssigneeID == "" {
		v.Add("assigneeId", "Assignee is required")
	}
	if p.Status != nil && !p.Status.Valid() {
		v.Add("status", "Unknown task status")
	}
	return v.Err("task.update")
}

// StatusChange is the body of PATCH /projects/{id}/tasks/{taskId}/status.
type StatusChange struct {
	Status TaskStatus `json:"status"`
}

// Validate rejects statuses outside the four columns.
func (s StatusChange) Validate() error {
	var v apierr.ValidationErrors
	if !s.Status.Valid() {
		v.Add("status", "Unknown task status")
	}
	return v.Err("task.status")
}
