package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/p-blackswan/taskboard/internal/apierr"
	"github.com/p-blackswan/taskboard/internal/models"
)

type fakeAuthAPI struct {
	loginData   models.LoginData
	loginErr    error
	registered  models.Profile
	registerErr error
	logoutErr   error
	logoutCalls int
}

func (f *fakeAuthAPI) Login(_ context.Context, p models.LoginPayload) (models.LoginData, error) {
	if err := p.Validate(); err != nil {
		return models.LoginData{}, err
	}
	return f.loginData, f.loginErr
}

func (f *fakeAuthAPI) Register(_ context.Context, _ models.RegisterPayload) (models.Profile, error) {
	return f.registered, f.registerErr
}

func (f *fakeAuthAPI) Logout(_ context.Context) error {
	f.logoutCalls++
	return f.logoutErr
}

// fakeProjectAPI keeps a server-side project list and hands out ids.
type fakeProjectAPI struct {
	mu       sync.Mutex
	projects []models.Project
	seq      int
	err      error
}

func (f *fakeProjectAPI) List(_ context.Context) ([]models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Project(nil), f.projects...), nil
}

func (f *fakeProjectAPI) Create(_ context.Context, dto models.CreateProjectDto) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Project{}, f.err
	}
	f.seq++
	p := models.Project{ID: fmt.Sprintf("p%d", f.seq), Name: dto.Name, Description: dto.Description}
	f.projects = append([]models.Project{p}, f.projects...)
	return p, nil
}

func (f *fakeProjectAPI) Update(_ context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return models.Project{}, f.err
	}
	for i, p := range f.projects {
		if p.ID == id {
			if patch.Name != nil {
				p.Name = *patch.Name
			}
			if patch.Description != nil {
				p.Description = *patch.Description
			}
			f.projects[i] = p
			return p, nil
		}
	}
	return models.Project{}, apierr.NewServer(404, "Project not found")
}

func (f *fakeProjectAPI) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i, p := range f.projects {
		if p.ID == id {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			return nil
		}
	}
	return apierr.NewServer(404, "")
}

// fakeBoardAPI serves one project's detail and records mutations.
type fakeBoardAPI struct {
	mu          sync.Mutex
	detail      models.ProjectDetail
	detailErr   error
	mutateErr   error
	detailCalls int
	calls       []string
	// onDetail runs before Detail returns, outside the lock.
	onDetail func()
}

func (f *fakeBoardAPI) Detail(_ context.Context, _ string) (models.ProjectDetail, error) {
	f.mu.Lock()
	f.detailCalls++
	d, err, hook := f.detail, f.detailErr, f.onDetail
	d.Tasks = append([]models.Task(nil), d.Tasks...)
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return d, err
}

func (f *fakeBoardAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.mutateErr
}

func (f *fakeBoardAPI) CreateTask(_ context.Context, pid string, dto models.CreateTaskDto) (models.Task, error) {
	if err := f.record("create " + pid + " " + dto.Title); err != nil {
		return models.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := models.Task{ID: fmt.Sprintf("t%d", len(f.detail.Tasks)+1), Title: dto.Title, Status: models.StatusTodo}
	f.detail.Tasks = append(f.detail.Tasks, t)
	return t, nil
}

func (f *fakeBoardAPI) UpdateTask(_ context.Context, pid, tid string, _ models.TaskPatch) (models.Task, error) {
	return models.Task{ID: tid}, f.record("update " + pid + " " + tid)
}

func (f *fakeBoardAPI) UpdateTaskStatus(_ context.Context, pid, tid string, s models.TaskStatus) (models.Task, error) {
	if err := f.record("status " + pid + " " + tid + " " + string(s)); err != nil {
		return models.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.detail.Tasks {
		if f.detail.Tasks[i].ID == tid {
			f.detail.Tasks[i].Status = s
			return f.detail.Tasks[i], nil
		}
	}
	return models.Task{}, apierr.NewServer(404, "Task not found")
}

func (f *fakeBoardAPI) DeleteTask(_ context.Context, pid, tid string) error {
	return f.record("delete " + pid + " " + tid)
}

type fakeMemberAPI struct {
	members []models.Member
	err     error
}

func (f *fakeMemberAPI) ListMembers(_ context.Context) ([]models.Member, error) {
	return f.members, f.err
}

type fakeDashboardAPI struct {
	env models.Envelope[models.DashboardSnapshot]
	err error
}

func (f *fakeDashboardAPI) Overview(_ context.Context) (models.Envelope[models.DashboardSnapshot], error) {
	return f.env, f.err
}

type recordedAction struct{ container, action, outcome string }

type fakeRecorder struct {
	mu      sync.Mutex
	actions []recordedAction
	authed  []bool
}

func (r *fakeRecorder) RecordAction(container, action, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, recordedAction{container, action, outcome})
}

func (r *fakeRecorder) SetAuthenticated(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authed = append(r.authed, ok)
}

func (r *fakeRecorder) last() recordedAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.actions) == 0 {
		return recordedAction{}
	}
	return r.actions[len(r.actions)-1]
}
