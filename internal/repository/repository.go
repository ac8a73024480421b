// Package repository translates each domain operation into exactly one
// remote call and normalises its failure into an *apierr.Error whose
// message is ready to show.
package repository

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/apierr"
)

// Requester is the remote access layer as seen by the repositories.
// *apiclient.Client implements it.
type Requester interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Operation names, used as apierr.Error.Op and in logs.
const (
	OpLogin            = "auth.login"
	OpRegister         = "auth.register"
	OpLogout           = "auth.logout"
	OpListProjects     = "project.list"
	OpCreateProject    = "project.create"
	OpUpdateProject    = "project.update"
	OpDeleteProject    = "project.delete"
	OpProjectDetail    = "project.detail"
	OpCreateTask       = "task.create"
	OpUpdateTask       = "task.update"
	OpUpdateTaskStatus = "task.status"
	OpDeleteTask       = "task.delete"
	OpListMembers      = "user.members"
	OpDashboard        = "dashboard.overview"
)

// defaultMessages is the last-resort text for each operation.
var defaultMessages = map[string]string{
	OpLogin:            "Login failed",
	OpRegister:         "Registration failed",
	OpLogout:           "Logout failed",
	OpListProjects:     "Project list retrieval failed",
	OpCreateProject:    "Failed to create project",
	OpUpdateProject:    "Failed to update project",
	OpDeleteProject:    "Failed to delete project",
	OpProjectDetail:    "Failed to fetch project details",
	OpCreateTask:       "Failed to create task",
	OpUpdateTask:       "Failed to update task",
	OpUpdateTaskStatus: "Failed to update task status",
	OpDeleteTask:       "Failed to delete task",
	OpListMembers:      "Members list retrieval failed",
	OpDashboard:        "Failed to fetch dashboard data",
}

// describedOnTransport lists the operations whose transport failures are
// shown as a short description of what went wrong. Every other operation
// shows its default message.
var describedOnTransport = map[string]bool{
	OpLogin:        true,
	OpRegister:     true,
	OpLogout:       true,
	OpListProjects: true,
	OpListMembers:  true,
}

// DefaultMessage returns the fallback message for op.
func DefaultMessage(op string) string {
	return defaultMessages[op]
}

// Message is the text shown when op fails with err: the server's message,
// then for a few operations a description of the transport failure, then
// the default for op.
func Message(op string, err error) string {
	return apierr.MessageOr(err, fallback(op, err))
}

func fallback(op string, err error) string {
	if describedOnTransport[op] {
		if d := apierr.Describe(err); d != "" {
			return d
		}
	}
	return DefaultMessage(op)
}

// base is embedded by every repository.
type base struct {
	api    Requester
	logger zerolog.Logger
}

func newBase(api Requester, logger zerolog.Logger, component string) base {
	return base{api: api, logger: logger.With().Str("component", component).Logger()}
}

// fail resolves err for op. Validation errors keep their own message.
func (b base) fail(op string, err error) error {
	resolved := apierr.Resolve(err, op, fallback(op, err))
	b.logger.Debug().Str("op", op).Str("kind", string(resolved.Kind)).
		Int("status", resolved.StatusCode).Msg(resolved.Message)
	return resolved
}

// requireIDs rejects empty path identifiers before any request is made.
func requireIDs(op string, ids map[string]string) error {
	var v apierr.ValidationErrors
	for _, field := range []string{"projectId", "taskId"} {
		if id, ok := ids[field]; ok && id == "" {
			v.Add(field, field+" is required")
		}
	}
	return v.Err(op)
}

func esc(id string) string {
	return url.PathEscape(id)
}
