package viewapi

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/p-blackswan/taskboard/internal/apierr"
	"github.com/p-blackswan/taskboard/internal/models"
	"github.com/p-blackswan/taskboard/internal/state"
)

// sessionView is the Session without its tokens.
type sessionView struct {
	User            *models.Profile `json:"user"`
	IsAuthenticated bool            `json:"isAuthenticated"`
	IsLoading       bool            `json:"isLoading"`
	Error           string          `json:"error"`
}

func viewOf(s state.Session) sessionView {
	return sessionView{User: s.User, IsAuthenticated: s.IsAuthenticated, IsLoading: s.IsLoading, Error: s.Error}
}

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type boardView struct {
	state.BoardState
	Columns []state.Column `json:"columns"`
}

// respond writes the container snapshot. Failed actions already carry their
// message in the snapshot, so only validation failures change the status.
func respond(c *fiber.Ctx, err error, snapshot any) error {
	if apierr.KindOf(err) == apierr.KindValidation {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(snapshot)
	}
	return c.JSON(snapshot)
}

func badBody(c *fiber.Ctx, err error) error {
	return problemResponse(c, fiber.StatusBadRequest,
		"invalid_body", "Bad Request", "Invalid request body: "+err.Error())
}

// projectID copies the :id route parameter. Fiber reuses the buffer behind
// c.Params after the handler returns, and project IDs end up in container
// state and board keys.
func projectID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}

// getSession handles GET /v1/session.
func (s *Server) getSession(c *fiber.Ctx) error {
	return c.JSON(viewOf(s.stores.Auth.State()))
}

// login handles POST /v1/session/login.
func (s *Server) login(c *fiber.Ctx) error {
	var req models.LoginPayload
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	err := s.stores.Auth.Login(c.UserContext(), req)
	return respond(c, err, viewOf(s.stores.Auth.State()))
}

// register handles POST /v1/session/register.
func (s *Server) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	profile, err := s.stores.Auth.Register(c.UserContext(), models.RegisterPayload{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	body := fiber.Map{"session": viewOf(s.stores.Auth.State())}
	if err == nil {
		body["profile"] = profile
	}
	return respond(c, err, body)
}

// logout handles POST /v1/session/logout.
func (s *Server) logout(c *fiber.Ctx) error {
	if err := s.stores.Auth.Logout(c.UserContext()); err != nil {
		s.logger.Warn().Err(err).Msg("logout completed with errors")
	}
	s.boards.closeAll()
	return c.JSON(viewOf(s.stores.Auth.State()))
}

// clearSessionError handles DELETE /v1/session/error.
func (s *Server) clearSessionError(c *fiber.Ctx) error {
	s.stores.Auth.ClearError()
	return c.JSON(viewOf(s.stores.Auth.State()))
}

// projectRow is a listed project with its derived phase and urgency.
type projectRow struct {
	models.Project
	Phase   models.ProjectPhase `json:"phase"`
	Urgency models.Priority     `json:"urgency"`
}

type projectListView struct {
	Projects []projectRow `json:"projects"`
	Loading  bool         `json:"loading"`
	Error    string       `json:"error"`
}

// projectFilter reads ?search=, ?status= and ?priority=.
func projectFilter(c *fiber.Ctx) (models.ProjectFilter, error) {
	f := models.ProjectFilter{Search: c.Query("search")}
	if raw := c.Query("status"); raw != "" {
		phase, ok := models.ParsePhase(raw)
		if !ok {
			return f, fmt.Errorf("unknown status %q", raw)
		}
		f.Phase = phase
	}
	if raw := c.Query("priority"); raw != "" {
		p := models.Priority(strings.ToUpper(raw))
		if !p.Valid() {
			return f, fmt.Errorf("unknown priority %q", raw)
		}
		f.Urgency = p
	}
	return f, nil
}

// listProjects handles GET /v1/projects. The list is fetched on first
// access and served from the container afterwards.
func (s *Server) listProjects(c *fiber.Ctx) error {
	f, err := projectFilter(c)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest, "invalid_filter", "Bad Request", err.Error())
	}
	if st := s.stores.Projects.State(); st.Projects == nil && !st.Loading {
		_ = s.stores.Projects.FetchProjects(c.UserContext())
	}

	now := time.Now()
	st := s.stores.Projects.State()
	view := projectListView{Projects: []projectRow{}, Loading: st.Loading, Error: st.Error}
	for _, p := range s.stores.Projects.Filter(f, now) {
		view.Projects = append(view.Projects, projectRow{Project: p, Phase: p.Phase(now), Urgency: p.Urgency(now)})
	}
	return c.JSON(view)
}

// refreshProjects handles POST /v1/projects/refresh.
func (s *Server) refreshProjects(c *fiber.Ctx) error {
	err := s.stores.Projects.FetchProjects(c.UserContext())
	return respond(c, err, s.stores.Projects.State())
}

// createProject handles POST /v1/projects.
func (s *Server) createProject(c *fiber.Ctx) error {
	var dto models.CreateProjectDto
	if err := c.BodyParser(&dto); err != nil {
		return badBody(c, err)
	}
	_, err := s.stores.Projects.AddProject(c.UserContext(), dto)
	return respond(c, err, s.stores.Projects.State())
}

// updateProject handles PUT /v1/projects/:id.
func (s *Server) updateProject(c *fiber.Ctx) error {
	var patch models.ProjectPatch
	if err := c.BodyParser(&patch); err != nil {
		return badBody(c, err)
	}
	_, err := s.stores.Projects.UpdateProject(c.UserContext(), projectID(c), patch)
	return respond(c, err, s.stores.Projects.State())
}

// deleteProject handles DELETE /v1/projects/:id.
func (s *Server) deleteProject(c *fiber.Ctx) error {
	id := projectID(c)
	err := s.stores.Projects.DeleteProject(c.UserContext(), id)
	if err == nil {
		s.boards.close(id)
	}
	return respond(c, err, s.stores.Projects.State())
}

func (s *Server) boardResponse(c *fiber.Ctx, b *state.TaskBoard, err error) error {
	return respond(c, err, boardView{BoardState: b.State(), Columns: b.Columns()})
}

// getBoard handles GET /v1/projects/:id/board. The board loads when first
// opened or when ?refresh=true.
func (s *Server) getBoard(c *fiber.Ctx) error {
	b, created := s.boards.open(projectID(c))
	var err error
	if created || c.QueryBool("refresh") {
		err = b.Load(c.UserContext())
	}
	return s.boardResponse(c, b, err)
}

// closeBoard handles DELETE /v1/projects/:id/board.
func (s *Server) closeBoard(c *fiber.Ctx) error {
	s.boards.close(projectID(c))
	return c.SendStatus(fiber.StatusNoContent)
}

// createTask handles POST /v1/projects/:id/tasks.
func (s *Server) createTask(c *fiber.Ctx) error {
	var dto models.CreateTaskDto
	if err := c.BodyParser(&dto); err != nil {
		return badBody(c, err)
	}
	b := s.loadedBoard(c)
	return s.boardResponse(c, b, b.CreateTask(c.UserContext(), dto))
}

// updateTaskStatus handles PATCH /v1/projects/:id/tasks/:taskId/status.
func (s *Server) updateTaskStatus(c *fiber.Ctx) error {
	var req models.StatusChange
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	b := s.loadedBoard(c)
	return s.boardResponse(c, b, b.UpdateTaskStatus(c.UserContext(), c.Params("taskId"), req.Status))
}

// updateTask handles PUT /v1/projects/:id/tasks/:taskId.
func (s *Server) updateTask(c *fiber.Ctx) error {
	var patch models.TaskPatch
	if err := c.BodyParser(&patch); err != nil {
		return badBody(c, err)
	}
	b := s.loadedBoard(c)
	return s.boardResponse(c, b, b.UpdateTask(c.UserContext(), c.Params("taskId"), patch))
}

// deleteTask handles DELETE /v1/projects/:id/tasks/:taskId.
func (s *Server) deleteTask(c *fiber.Ctx) error {
	b := s.loadedBoard(c)
	return s.boardResponse(c, b, b.DeleteTask(c.UserContext(), c.Params("taskId")))
}

// loadedBoard opens the board for the route's project, loading it first if
// it was not open yet so member checks have a project to look at.
func (s *Server) loadedBoard(c *fiber.Ctx) *state.TaskBoard {
	b, created := s.boards.open(projectID(c))
	if created {
		_ = b.Load(c.UserContext())
	}
	return b
}

// listMembers handles GET /v1/members.
func (s *Server) listMembers(c *fiber.Ctx) error {
	err := s.stores.Users.FetchMembers(c.UserContext())
	return respond(c, err, s.stores.Users.State())
}

// getDashboard handles GET /v1/dashboard.
func (s *Server) getDashboard(c *fiber.Ctx) error {
	err := s.stores.Dashboard.FetchDashboard(c.UserContext())
	return respond(c, err, s.stores.Dashboard.State())
}
