package state

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/apierr"
	"github.com/p-blackswan/taskboard/internal/models"
	"github.com/p-blackswan/taskboard/internal/repository"
)

const msgInvalidAssignee = "Invalid assignee or project"

// BoardState is one project's detail view: the project and its tasks.
type BoardState struct {
	ProjectID string          `json:"projectId" yaml:"projectId"`
	Project   *models.Project `json:"project" yaml:"project"`
	Tasks     []models.Task   `json:"tasks" yaml:"tasks"`
	Loading   bool            `json:"loading" yaml:"loading"`
	Error     string          `json:"error" yaml:"error"`
}

func cloneBoardState(s BoardState) BoardState {
	if s.Project != nil {
		p := s.Project.Clone()
		s.Project = &p
	}
	if s.Tasks != nil {
		out := make([]models.Task, len(s.Tasks))
		for i, t := range s.Tasks {
			out[i] = t.Clone()
		}
		s.Tasks = out
	}
	return s
}

// Column is one kanban column.
type Column struct {
	Status models.TaskStatus `json:"status" yaml:"status"`
	Title  string            `json:"title" yaml:"title"`
	Tasks  []models.Task     `json:"tasks" yaml:"tasks"`
}

// TaskBoard holds the detail of a single project while it is on screen.
// Every successful task mutation is followed by a full reload of the
// detail. Once closed, responses that arrive late are not committed.
type TaskBoard struct {
	*container[BoardState]
	api     BoardAPI
	actions ActionRecorder
	closed  atomic.Bool
	logger  zerolog.Logger
}

// NewTaskBoard creates an empty board for projectID. actions may be nil.
func NewTaskBoard(api BoardAPI, projectID string, actions ActionRecorder, logger zerolog.Logger) *TaskBoard {
	return &TaskBoard{
		container: newContainer(BoardState{ProjectID: projectID}, cloneBoardState),
		api:       api,
		actions:   actions,
		logger: logger.With().Str("component", "task_board").
			Str("project_id", projectID).Logger(),
	}
}

// State returns a copy of the board.
func (b *TaskBoard) State() BoardState { return b.get() }

// Subscribe registers fn to receive the board after every commit.
func (b *TaskBoard) Subscribe(fn func(BoardState)) (unsubscribe func()) {
	return b.subs.add(fn)
}

// Close marks the board as no longer displayed.
func (b *TaskBoard) Close() {
	b.closed.Store(true)
}

// Closed reports whether Close has been called.
func (b *TaskBoard) Closed() bool { return b.closed.Load() }

func (b *TaskBoard) commitOpen(fn func(*BoardState)) {
	if b.closed.Load() {
		b.logger.Debug().Msg("board closed, dropping update")
		return
	}
	b.commit(fn)
}

func (b *TaskBoard) projectID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.ProjectID
}

func (b *TaskBoard) begin() {
	b.commitOpen(func(st *BoardState) {
		st.Loading = true
		st.Error = ""
	})
}

func (b *TaskBoard) fail(action, op string, err error) error {
	msg := repository.Message(op, err)
	b.logger.Debug().Str("action", action).Msg(msg)
	b.commitOpen(func(st *BoardState) {
		st.Loading = false
		st.Error = msg
	})
	record(b.actions, "board", action, err)
	return err
}

// Load fetches the project and its tasks.
func (b *TaskBoard) Load(ctx context.Context) error {
	b.begin()
	if err := b.reload(ctx); err != nil {
		return b.fail("load", repository.OpProjectDetail, err)
	}
	record(b.actions, "board", "load", nil)
	return nil
}

func (b *TaskBoard) reload(ctx context.Context) error {
	detail, err := b.api.Detail(ctx, b.projectID())
	if err != nil {
		return err
	}
	b.commitOpen(func(st *BoardState) {
		p := detail.Project
		st.Project = &p
		st.Tasks = detail.Tasks
		if st.Tasks == nil {
			st.Tasks = []models.Task{}
		}
		st.Loading = false
		st.Error = ""
	})
	return nil
}

// mutate runs one task mutation and reloads the detail on success. A reload
// failure is reported with the detail fetch message.
func (b *TaskBoard) mutate(ctx context.Context, action, op string, call func(projectID string) error) error {
	b.begin()
	if err := call(b.projectID()); err != nil {
		return b.fail(action, op, err)
	}
	if err := b.reload(ctx); err != nil {
		return b.fail(action, repository.OpProjectDetail, err)
	}
	record(b.actions, "board", action, nil)
	return nil
}

// CreateTask adds a task. When the project is loaded the assignee must be
// one of its members; otherwise no request is made.
func (b *TaskBoard) CreateTask(ctx context.Context, dto models.CreateTaskDto) error {
	if project := b.State().Project; project != nil && dto.AssigneeID != "" {
		if _, ok := project.Member(dto.AssigneeID); !ok {
			var v apierr.ValidationErrors
			v.Add("assigneeId", msgInvalidAssignee)
			return b.fail("create_task", repository.OpCreateTask, v.Err(repository.OpCreateTask))
		}
	}
	return b.mutate(ctx, "create_task", repository.OpCreateTask, func(pid string) error {
		_, err := b.api.CreateTask(ctx, pid, dto)
		return err
	})
}

// UpdateTask applies a partial edit to a task.
func (b *TaskBoard) UpdateTask(ctx context.Context, taskID string, patch models.TaskPatch) error {
	return b.mutate(ctx, "update_task", repository.OpUpdateTask, func(pid string) error {
		_, err := b.api.UpdateTask(ctx, pid, taskID, patch)
		return err
	})
}

// UpdateTaskStatus moves a task to another column. Any status may follow
// any other.
func (b *TaskBoard) UpdateTaskStatus(ctx context.Context, taskID string, status models.TaskStatus) error {
	return b.mutate(ctx, "update_status", repository.OpUpdateTaskStatus, func(pid string) error {
		_, err := b.api.UpdateTaskStatus(ctx, pid, taskID, status)
		return err
	})
}

// DeleteTask removes a task. A task the server no longer knows counts as
// deleted.
func (b *TaskBoard) DeleteTask(ctx context.Context, taskID string) error {
	return b.mutate(ctx, "delete_task", repository.OpDeleteTask, func(pid string) error {
		err := b.api.DeleteTask(ctx, pid, taskID)
		if errors.Is(err, apierr.ErrNotFound) {
			return nil
		}
		return err
	})
}

// Columns groups the loaded tasks by status in board order. Every status
// has a column, empty or not.
func (b *TaskBoard) Columns() []Column {
	st := b.State()
	cols := make([]Column, len(models.AllStatuses))
	index := make(map[models.TaskStatus]int, len(models.AllStatuses))
	for i, status := range models.AllStatuses {
		cols[i] = Column{Status: status, Title: status.Title(), Tasks: []models.Task{}}
		index[status] = i
	}
	for _, t := range st.Tasks {
		if i, ok := index[t.Status]; ok {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	return cols
}
