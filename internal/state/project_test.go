package state

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/taskboard/internal/apiclient"
	"github.com/p-blackswan/taskboard/internal/apierr"
	"github.com/p-blackswan/taskboard/internal/models"
	"github.com/p-blackswan/taskboard/internal/repository"
)

func strPtr(s string) *string { return &s }

func seededProjects(t *testing.T) (*ProjectStore, *fakeProjectAPI, *fakeRecorder) {
	t.Helper()
	api := &fakeProjectAPI{projects: []models.Project{
		{ID: "p1", Name: "Old", Description: "first"},
		{ID: "p2", Name: "Other", Description: "second"},
	}}
	rec := &fakeRecorder{}
	s := NewProjectStore(api, rec, zerolog.Nop())
	require.NoError(t, s.FetchProjects(context.Background()))
	return s, api, rec
}

func TestProjectStore_Fetch(t *testing.T) {
	s, _, rec := seededProjects(t)
	st := s.State()
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	require.Len(t, st.Projects, 2)
	assert.Equal(t, recordedAction{"project", "fetch", "ok"}, rec.last())
}

func TestProjectStore_UpdateScenario(t *testing.T) {
	s, _, _ := seededProjects(t)

	updated, err := s.UpdateProject(context.Background(), "p1", models.ProjectPatch{Name: strPtr("New")})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)

	st := s.State()
	require.Len(t, st.Projects, 2)
	assert.Equal(t, models.Project{ID: "p1", Name: "New", Description: "first"}, st.Projects[0])
	assert.Equal(t, models.Project{ID: "p2", Name: "Other", Description: "second"}, st.Projects[1])
}

func TestProjectStore_AddPrepends(t *testing.T) {
	s, _, _ := seededProjects(t)
	created, err := s.AddProject(context.Background(), models.CreateProjectDto{Name: "Fresh"})
	require.NoError(t, err)

	st := s.State()
	require.Len(t, st.Projects, 3)
	assert.Equal(t, created.ID, st.Projects[0].ID)
	assert.Equal(t, "p1", st.Projects[1].ID)
}

func TestProjectStore_DeleteMissingIsNoop(t *testing.T) {
	s, _, _ := seededProjects(t)
	before := s.State()

	require.NoError(t, s.DeleteProject(context.Background(), "does-not-exist"))
	after := s.State()
	assert.Equal(t, before.Projects, after.Projects)
	assert.Empty(t, after.Error)
}

func TestProjectStore_DeleteNotFoundOnServerRemovesLocally(t *testing.T) {
	s, api, _ := seededProjects(t)
	api.mu.Lock()
	api.projects = api.projects[1:]
	api.mu.Unlock()

	require.NoError(t, s.DeleteProject(context.Background(), "p1"))
	st := s.State()
	require.Len(t, st.Projects, 1)
	assert.Equal(t, "p2", st.Projects[0].ID)
	assert.Empty(t, st.Error)
}

func TestProjectStore_FailureLeavesListUnchanged(t *testing.T) {
	failures := []struct {
		name string
		err  error
		want string
		run  func(*ProjectStore) error
	}{
		{
			name: "create with server message",
			err:  apierr.NewServer(400, "Name taken"),
			want: "Name taken",
			run: func(s *ProjectStore) error {
				_, err := s.AddProject(context.Background(), models.CreateProjectDto{Name: "x"})
				return err
			},
		},
		{
			name: "update over transport",
			err:  apierr.NewTransport(errors.New("")),
			want: "Failed to update project",
			run: func(s *ProjectStore) error {
				_, err := s.UpdateProject(context.Background(), "p1", models.ProjectPatch{Name: strPtr("x")})
				return err
			},
		},
		{
			name: "delete rejected",
			err:  apierr.NewServer(403, ""),
			want: "Failed to delete project",
			run:  func(s *ProjectStore) error { return s.DeleteProject(context.Background(), "p1") },
		},
		{
			name: "refetch fails",
			err:  apierr.NewTransport(errors.New("dial tcp: connection refused")),
			want: "Unable to reach the server",
			run:  func(s *ProjectStore) error { return s.FetchProjects(context.Background()) },
		},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			s, api, _ := seededProjects(t)
			before := s.State().Projects
			api.err = tt.err

			require.Error(t, tt.run(s))
			st := s.State()
			assert.False(t, st.Loading)
			assert.Equal(t, tt.want, st.Error)
			assert.Equal(t, before, st.Projects)
		})
	}
}

func TestProjectStore_ErrorClearedByNextAction(t *testing.T) {
	s, api, _ := seededProjects(t)
	api.err = apierr.NewServer(500, "boom")
	require.Error(t, s.FetchProjects(context.Background()))

	var loadingSeen bool
	unsubscribe := s.Subscribe(func(st ProjectState) {
		if st.Loading {
			loadingSeen = true
			assert.Empty(t, st.Error)
		}
	})
	defer unsubscribe()

	api.err = nil
	require.NoError(t, s.FetchProjects(context.Background()))
	assert.True(t, loadingSeen)
	assert.Empty(t, s.State().Error)
}

func TestProjectStore_SetAndClearError(t *testing.T) {
	s, _, _ := seededProjects(t)
	s.SetError("Something happened")
	assert.Equal(t, "Something happened", s.State().Error)
	s.ClearError()
	assert.Empty(t, s.State().Error)
	assert.Len(t, s.State().Projects, 2)
}

func TestProjectStore_Find(t *testing.T) {
	s, _, _ := seededProjects(t)
	p, ok := s.Find("p2")
	require.True(t, ok)
	assert.Equal(t, "Other", p.Name)
	_, ok = s.Find("nope")
	assert.False(t, ok)
}

// Random create/update/delete sequences must leave the list equal to a
// replay of the same sequence against an id-keyed model.
func TestProjectStore_ReplayMatchesModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		api := &fakeProjectAPI{}
		s := NewProjectStore(api, nil, zerolog.Nop())
		var model []models.Project

		for step := 0; step < 30; step++ {
			switch op := rng.Intn(3); {
			case op == 0 || len(model) == 0:
				p, err := s.AddProject(ctx, models.CreateProjectDto{Name: "n"})
				require.NoError(t, err)
				model = append([]models.Project{p}, model...)
			case op == 1:
				i := rng.Intn(len(model))
				name := model[i].Name + "!"
				_, err := s.UpdateProject(ctx, model[i].ID, models.ProjectPatch{Name: &name})
				require.NoError(t, err)
				model[i].Name = name
			default:
				id := model[rng.Intn(len(model))].ID
				if rng.Intn(4) == 0 {
					id = "ghost"
				}
				require.NoError(t, s.DeleteProject(ctx, id))
				for i := range model {
					if model[i].ID == id {
						model = append(model[:i], model[i+1:]...)
						break
					}
				}
			}
		}

		got := s.State().Projects
		if len(model) == 0 {
			assert.Empty(t, got)
			continue
		}
		assert.Equal(t, model, got, "round %d", round)
	}
}

func TestProjectStore_UnreachableServerShowsDefaultMessage(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := apiclient.NewClient(url, nil, zerolog.Nop(), apiclient.WithTimeout(time.Second))
	s := NewProjectStore(repository.NewProjectRepository(client, zerolog.Nop()), nil, zerolog.Nop())
	ctx := context.Background()

	_, err := s.AddProject(ctx, models.CreateProjectDto{Name: "Apollo"})
	require.Error(t, err)
	assert.Equal(t, apierr.KindTransport, apierr.KindOf(err))
	assert.Equal(t, "Failed to create project", s.State().Error)
	assert.False(t, s.State().Loading)

	_, err = s.UpdateProject(ctx, "p1", models.ProjectPatch{Name: strPtr("Gemini")})
	require.Error(t, err)
	assert.Equal(t, "Failed to update project", s.State().Error)

	require.Error(t, s.DeleteProject(ctx, "p1"))
	assert.Equal(t, "Failed to delete project", s.State().Error)

	require.Error(t, s.FetchProjects(ctx))
	assert.Equal(t, "Unable to reach the server", s.State().Error)
}

func TestProjectStore_Filter(t *testing.T) {
	s, _, _ := seededProjects(t)
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	all := s.Filter(models.ProjectFilter{}, now)
	assert.Len(t, all, 2)

	got := s.Filter(models.ProjectFilter{Search: "SECOND"}, now)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ID)

	got[0].Name = "mutated"
	p, ok := s.Find("p2")
	require.True(t, ok)
	assert.Equal(t, "Other", p.Name, "filtered projects are copies")

	assert.Empty(t, s.Filter(models.ProjectFilter{Phase: models.PhaseOverdue}, now))
}
