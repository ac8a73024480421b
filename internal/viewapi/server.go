// Package viewapi is the local HTTP surface a UI uses to read the state
// containers and trigger their actions.
package viewapi

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/health"
	"github.com/p-blackswan/taskboard/internal/metrics"
	"github.com/p-blackswan/taskboard/internal/requestid"
	"github.com/p-blackswan/taskboard/internal/state"
)

// Config holds configuration for the view API server.
type Config struct {
	ListenAddr  string
	CORSOrigins string
}

// Stores are the containers the view API exposes. NewBoard builds the
// task board for one project.
type Stores struct {
	Auth      *state.AuthStore
	Projects  *state.ProjectStore
	Users     *state.UserStore
	Dashboard *state.DashboardStore
	NewBoard  func(projectID string) *state.TaskBoard
}

// Server is the view API Fiber application.
type Server struct {
	app    *fiber.App
	stores Stores
	boards *boardRegistry
	logger zerolog.Logger
	config Config
}

// NewServer creates and configures the view API. checker and m may be nil.
func NewServer(cfg Config, stores Stores, checker *health.Checker, m *metrics.Metrics, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})

	s := &Server{
		app:    app,
		stores: stores,
		boards: newBoardRegistry(stores.NewBoard),
		logger: logger.With().Str("component", "view_api").Logger(),
		config: cfg,
	}

	s.setupMiddleware()
	s.setupRoutes(checker, m)

	return s
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware. The ID rides the user context into the
	// container action and out on the API request.
	s.app.Use(func(c *fiber.Ctx) error {
		id := c.Get(requestid.Header)
		if id == "" {
			_, id = requestid.New(c.UserContext())
		}
		c.SetUserContext(requestid.WithRequestID(c.UserContext(), id))
		c.Set(requestid.Header, id)
		return c.Next()
	})

	if s.config.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: s.config.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
			AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		}))
	}

	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}
		id, _ := requestid.Lookup(c.UserContext())
		s.logger.Debug().
			Str("method", c.Method()).
			Str("path", path).
			Str("request_id", id).
			Msg("view api request")
		return c.Next()
	})
}

func (s *Server) setupRoutes(checker *health.Checker, m *metrics.Metrics) {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if checker == nil {
		checker = health.NewChecker(s.logger)
	}
	s.app.Get("/readyz", adaptor.HTTPHandlerFunc(checker.ReadinessHandler()))

	if m != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	} else {
		s.app.Get("/metrics", func(c *fiber.Ctx) error {
			return c.SendString("# No metrics collector configured\n")
		})
	}

	v1 := s.app.Group("/v1")

	session := v1.Group("/session")
	session.Get("/", s.getSession)
	session.Post("/login", s.login)
	session.Post("/register", s.register)
	session.Post("/logout", s.logout)
	session.Delete("/error", s.clearSessionError)

	projects := v1.Group("/projects", s.requireSession)
	projects.Get("/", s.listProjects)
	projects.Post("/refresh", s.refreshProjects)
	projects.Post("/", s.createProject)
	projects.Put("/:id", s.updateProject)
	projects.Delete("/:id", s.deleteProject)
	projects.Get("/:id/board", s.getBoard)
	projects.Delete("/:id/board", s.closeBoard)
	projects.Post("/:id/tasks", s.createTask)
	projects.Patch("/:id/tasks/:taskId/status", s.updateTaskStatus)
	projects.Put("/:id/tasks/:taskId", s.updateTask)
	projects.Delete("/:id/tasks/:taskId", s.deleteTask)

	v1.Get("/members", s.requireSession, s.listMembers)
	v1.Get("/dashboard", s.requireSession, s.getDashboard)
}

// requireSession answers 401 unless the Session is authenticated.
func (s *Server) requireSession(c *fiber.Ctx) error {
	if !s.stores.Auth.State().IsAuthenticated {
		return problemResponse(c, fiber.StatusUnauthorized,
			"unauthenticated", "Unauthorized", "Sign in to continue")
	}
	return c.Next()
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:8085"
	}
	s.logger.Info().Str("addr", addr).Msg("view API server starting")
	return s.app.Listen(addr)
}

// Shutdown closes every open board and stops the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("view API server shutting down")
	s.boards.closeAll()
	return s.app.Shutdown()
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func problemResponse(c *fiber.Ctx, status int, typ, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     typ,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		typ, detail := "request_failed", err.Error()
		if code == fiber.StatusInternalServerError {
			typ, detail = "internal_error", "An internal error occurred"
		}
		return problemResponse(c, code, typ, utils.StatusMessage(code), detail)
	}
}
