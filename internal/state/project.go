package state

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/apierr"
	"github.com/p-blackswan/taskboard/internal/models"
	"github.com/p-blackswan/taskboard/internal/repository"
)

// ProjectState is the project list as shown on the projects page.
type ProjectState struct {
	Projects []models.Project `json:"projects" yaml:"projects"`
	Loading  bool             `json:"loading" yaml:"loading"`
	Error    string           `json:"error" yaml:"error"`
}

func cloneProjectState(s ProjectState) ProjectState {
	if s.Projects != nil {
		out := make([]models.Project, len(s.Projects))
		for i, p := range s.Projects {
			out[i] = p.Clone()
		}
		s.Projects = out
	}
	return s
}

// ProjectStore owns the project list. New projects are prepended.
type ProjectStore struct {
	*container[ProjectState]
	api     ProjectAPI
	actions ActionRecorder
	logger  zerolog.Logger
}

// NewProjectStore creates an empty ProjectStore. actions may be nil.
func NewProjectStore(api ProjectAPI, actions ActionRecorder, logger zerolog.Logger) *ProjectStore {
	return &ProjectStore{
		container: newContainer(ProjectState{}, cloneProjectState),
		api:       api,
		actions:   actions,
		logger:    logger.With().Str("component", "project_store").Logger(),
	}
}

// State returns a copy of the current project list state.
func (s *ProjectStore) State() ProjectState { return s.get() }

// Subscribe registers fn to receive the state after every commit.
func (s *ProjectStore) Subscribe(fn func(ProjectState)) (unsubscribe func()) {
	return s.subs.add(fn)
}

// Find returns the project with id from the current list.
func (s *ProjectStore) Find(id string) (models.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOfProject(s.state.Projects, id); i >= 0 {
		return s.state.Projects[i].Clone(), true
	}
	return models.Project{}, false
}

// Filter returns copies of the listed projects that pass f at now, in list
// order.
func (s *ProjectStore) Filter(f models.ProjectFilter, now time.Time) []models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Project{}
	for _, p := range s.state.Projects {
		if f.Match(p, now) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (s *ProjectStore) begin() {
	s.commit(func(st *ProjectState) {
		st.Loading = true
		st.Error = ""
	})
}

func (s *ProjectStore) fail(action, op string, err error) error {
	msg := repository.Message(op, err)
	s.logger.Debug().Str("action", action).Msg(msg)
	s.commit(func(st *ProjectState) {
		st.Loading = false
		st.Error = msg
	})
	record(s.actions, "project", action, err)
	return err
}

func (s *ProjectStore) succeed(action string, merge func(*ProjectState)) {
	s.commit(func(st *ProjectState) {
		merge(st)
		st.Loading = false
		st.Error = ""
	})
	record(s.actions, "project", action, nil)
}

// FetchProjects replaces the list with the server's.
func (s *ProjectStore) FetchProjects(ctx context.Context) error {
	s.begin()
	projects, err := s.api.List(ctx)
	if err != nil {
		return s.fail("fetch", repository.OpListProjects, err)
	}
	s.succeed("fetch", func(st *ProjectState) {
		st.Projects = projects
		if st.Projects == nil {
			st.Projects = []models.Project{}
		}
	})
	return nil
}

// AddProject creates a project and puts it at the head of the list.
func (s *ProjectStore) AddProject(ctx context.Context, dto models.CreateProjectDto) (models.Project, error) {
	s.begin()
	created, err := s.api.Create(ctx, dto)
	if err != nil {
		return models.Project{}, s.fail("create", repository.OpCreateProject, err)
	}
	s.succeed("create", func(st *ProjectState) {
		st.Projects = append([]models.Project{created}, st.Projects...)
	})
	return created.Clone(), nil
}

// UpdateProject applies patch on the server and replaces the project with
// the same id in place. Other entries and the order are untouched.
func (s *ProjectStore) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	s.begin()
	updated, err := s.api.Update(ctx, id, patch)
	if err != nil {
		return models.Project{}, s.fail("update", repository.OpUpdateProject, err)
	}
	if updated.ID == "" {
		updated.ID = id
	}
	s.succeed("update", func(st *ProjectState) {
		if i := indexOfProject(st.Projects, updated.ID); i >= 0 {
			st.Projects[i] = updated
		}
	})
	return updated.Clone(), nil
}

// DeleteProject removes the project on the server and from the list. A
// project the server no longer knows is removed locally without an error,
// and an id missing from the list leaves it unchanged.
func (s *ProjectStore) DeleteProject(ctx context.Context, id string) error {
	s.begin()
	if err := s.api.Delete(ctx, id); err != nil && !errors.Is(err, apierr.ErrNotFound) {
		return s.fail("delete", repository.OpDeleteProject, err)
	}
	s.succeed("delete", func(st *ProjectState) {
		if i := indexOfProject(st.Projects, id); i >= 0 {
			st.Projects = append(st.Projects[:i:i], st.Projects[i+1:]...)
		}
	})
	return nil
}

// SetError sets the error message without touching the list.
func (s *ProjectStore) SetError(msg string) {
	s.commit(func(st *ProjectState) { st.Error = msg })
}

// ClearError drops the current error message.
func (s *ProjectStore) ClearError() {
	s.SetError("")
}

func indexOfProject(projects []models.Project, id string) int {
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}
