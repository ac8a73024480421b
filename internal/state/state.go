// Package state holds the in-memory domain state containers. Each container
// owns its state, runs actions against a repository, and notifies
// subscribers with a copy of the state after every commit.
package state

import (
	"context"
	"sync"

	"github.com/p-blackswan/taskboard/internal/apierr"
	"github.com/p-blackswan/taskboard/internal/credentials"
	"github.com/p-blackswan/taskboard/internal/models"
)

// AuthAPI is the subset of the auth repository the Session needs.
type AuthAPI interface {
	Login(ctx context.Context, payload models.LoginPayload) (models.LoginData, error)
	Register(ctx context.Context, payload models.RegisterPayload) (models.Profile, error)
	Logout(ctx context.Context) error
}

// CredentialStore persists the session tokens and profile.
type CredentialStore interface {
	Set(ctx context.Context, accessToken, refreshToken string, profile *models.Profile) error
	Load(ctx context.Context) (credentials.Credentials, error)
	Clear(ctx context.Context) error
}

// ProjectAPI is the project list half of the project repository.
type ProjectAPI interface {
	List(ctx context.Context) ([]models.Project, error)
	Create(ctx context.Context, dto models.CreateProjectDto) (models.Project, error)
	Update(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error)
	Delete(ctx context.Context, id string) error
}

// BoardAPI is the project detail and task half of the project repository.
type BoardAPI interface {
	Detail(ctx context.Context, id string) (models.ProjectDetail, error)
	CreateTask(ctx context.Context, projectID string, dto models.CreateTaskDto) (models.Task, error)
	UpdateTask(ctx context.Context, projectID, taskID string, patch models.TaskPatch) (models.Task, error)
	UpdateTaskStatus(ctx context.Context, projectID, taskID string, status models.TaskStatus) (models.Task, error)
	DeleteTask(ctx context.Context, projectID, taskID string) error
}

// MemberAPI lists workspace members.
type MemberAPI interface {
	ListMembers(ctx context.Context) ([]models.Member, error)
}

// DashboardAPI fetches the dashboard overview envelope.
type DashboardAPI interface {
	Overview(ctx context.Context) (models.Envelope[models.DashboardSnapshot], error)
}

// ActionRecorder counts action outcomes. *metrics.Metrics satisfies it.
type ActionRecorder interface {
	RecordAction(container, action, outcome string)
}

type subscribers[S any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(S)
}

func (s *subscribers[S]) add(fn func(S)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(S))
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers[S]) notify(snapshot S, clone func(S) S) {
	s.mu.Lock()
	fns := make([]func(S), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(clone(snapshot))
	}
}

// container is the state cell shared by every store: a guarded value, its
// subscribers and a clone function so no caller aliases the held state.
type container[S any] struct {
	mu    sync.RWMutex
	state S
	clone func(S) S
	subs  subscribers[S]
}

func newContainer[S any](initial S, clone func(S) S) *container[S] {
	return &container[S]{state: initial, clone: clone}
}

func (c *container[S]) get() S {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clone(c.state)
}

// commit applies fn under the write lock and notifies subscribers with the
// result. Subscribers run outside the lock.
func (c *container[S]) commit(fn func(*S)) S {
	c.mu.Lock()
	fn(&c.state)
	snap := c.clone(c.state)
	c.mu.Unlock()

	c.subs.notify(snap, c.clone)
	return snap
}

func record(r ActionRecorder, container, action string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(apierr.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	r.RecordAction(container, action, outcome)
}
