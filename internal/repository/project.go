package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/models"
)

// ProjectRepository covers /project and /projects/{id}/tasks.
type ProjectRepository struct {
	base
}

// NewProjectRepository creates a ProjectRepository.
func NewProjectRepository(api Requester, logger zerolog.Logger) *ProjectRepository {
	return &ProjectRepository{base: newBase(api, logger, "repository.project")}
}

// List returns every project visible to the caller.
func (r *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	var resp models.Envelope[[]models.Project]
	if err := r.api.Get(ctx, "/project", &resp); err != nil {
		return nil, r.fail(OpListProjects, err)
	}
	return resp.Data, nil
}

// Create creates a project and returns it as stored by the server.
func (r *ProjectRepository) Create(ctx context.Context, dto models.CreateProjectDto) (models.Project, error) {
	if err := dto.Validate(); err != nil {
		return models.Project{}, r.fail(OpCreateProject, err)
	}
	if dto.Members == nil {
		dto.Members = []models.MemberAssignment{}
	}
	var resp models.Envelope[models.Project]
	if err := r.api.Post(ctx, "/project", dto, &resp); err != nil {
		return models.Project{}, r.fail(OpCreateProject, err)
	}
	return resp.Data, nil
}

// Update applies a partial update and returns the full updated project.
func (r *ProjectRepository) Update(ctx context.Context, id string, patch models.ProjectPatch) (models.Project, error) {
	if err := requireIDs(OpUpdateProject, map[string]string{"projectId": id}); err != nil {
		return models.Project{}, r.fail(OpUpdateProject, err)
	}
	if err := patch.Validate(); err != nil {
		return models.Project{}, r.fail(OpUpdateProject, err)
	}
	var resp models.Envelope[models.Project]
	if err := r.api.Put(ctx, "/project/"+esc(id), patch, &resp); err != nil {
		return models.Project{}, r.fail(OpUpdateProject, err)
	}
	return resp.Data, nil
}

// Delete removes a project.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	if err := requireIDs(OpDeleteProject, map[string]string{"projectId": id}); err != nil {
		return r.fail(OpDeleteProject, err)
	}
	if err := r.api.Delete(ctx, "/project/"+esc(id), nil); err != nil {
		return r.fail(OpDeleteProject, err)
	}
	return nil
}

// Detail returns a project together with all of its tasks.
func (r *ProjectRepository) Detail(ctx context.Context, id string) (models.ProjectDetail, error) {
	if err := requireIDs(OpProjectDetail, map[string]string{"projectId": id}); err != nil {
		return models.ProjectDetail{}, r.fail(OpProjectDetail, err)
	}
	var resp models.Envelope[models.ProjectDetail]
	if err := r.api.Get(ctx, "/project/"+esc(id), &resp); err != nil {
		return models.ProjectDetail{}, r.fail(OpProjectDetail, err)
	}
	return resp.Data, nil
}

// CreateTask adds a task to a project.
func (r *ProjectRepository) CreateTask(ctx context.Context, projectID string, dto models.CreateTaskDto) (models.Task, error) {
	if err := requireIDs(OpCreateTask, map[string]string{"projectId": projectID}); err != nil {
		return models.Task{}, r.fail(OpCreateTask, err)
	}
	if err := dto.Validate(); err != nil {
		return models.Task{}, r.fail(OpCreateTask, err)
	}
	var resp models.Envelope[models.Task]
	if err := r.api.Post(ctx, tasksPath(projectID), dto, &resp); err != nil {
		return models.Task{}, r.fail(OpCreateTask, err)
	}
	return resp.Data, nil
}

// UpdateTask applies a partial update to a task.
func (r *ProjectRepository) UpdateTask(ctx context.Context, projectID, taskID string, patch models.TaskPatch) (models.Task, error) {
	if err := requireIDs(OpUpdateTask, map[string]string{"projectId": projectID, "taskId": taskID}); err != nil {
		return models.Task{}, r.fail(OpUpdateTask, err)
	}
	if err := patch.Validate(); err != nil {
		return models.Task{}, r.fail(OpUpdateTask, err)
	}
	var resp models.Envelope[models.Task]
	if err := r.api.Put(ctx, taskPath(projectID, taskID), patch, &resp); err != nil {
		return models.Task{}, r.fail(OpUpdateTask, err)
	}
	return resp.Data, nil
}

// UpdateTaskStatus moves a task to another column.
func (r *ProjectRepository) UpdateTaskStatus(ctx context.Context, projectID, taskID string, status models.TaskStatus) (models.Task, error) {
	if err := requireIDs(OpUpdateTaskStatus, map[string]string{"projectId": projectID, "taskId": taskID}); err != nil {
		return models.Task{}, r.fail(OpUpdateTaskStatus, err)
	}
	change := models.StatusChange{Status: status}
	if err := change.Validate(); err != nil {
		return models.Task{}, r.fail(OpUpdateTaskStatus, err)
	}
	var resp models.Envelope[models.Task]
	if err := r.api.Patch(ctx, taskPath(projectID, taskID)+"/status", change, &resp); err != nil {
		return models.Task{}, r.fail(OpUpdateTaskStatus, err)
	}
	return resp.Data, nil
}

// DeleteTask removes a task.
func (r *ProjectRepository) DeleteTask(ctx context.Context, projectID, taskID string) error {
	if err := requireIDs(OpDeleteTask, map[string]string{"projectId": projectID, "taskId": taskID}); err != nil {
		return r.fail(OpDeleteTask, err)
	}
	if err := r.api.Delete(ctx, taskPath(projectID, taskID), nil); err != nil {
		return r.fail(OpDeleteTask, err)
	}
	return nil
}

func tasksPath(projectID string) string {
	return fmt.Sprintf("/projects/%s/tasks", esc(projectID))
}

func taskPath(projectID, taskID string) string {
	return fmt.Sprintf("/projects/%s/tasks/%s", esc(projectID), esc(taskID))
}
