package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/p-blackswan/taskboard/internal/app"
	"github.com/p-blackswan/taskboard/internal/config"
	"github.com/p-blackswan/taskboard/internal/models"
	"github.com/p-blackswan/taskboard/internal/state"
)

var errNotSignedIn = errors.New("not signed in, run `taskboard login` first")

// cli carries what every command needs: the wired app and output settings.
type cli struct {
	logger  zerolog.Logger
	out     io.Writer
	format  string
	envFile string
	app     *app.App
}

func newCLI(logger zerolog.Logger, out io.Writer) *cli {
	return &cli{logger: logger, out: out}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Terminal client for the task-management API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&c.format, "output", "o", formatTable, "output format: table, json or yaml")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.SetOut(c.out)

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.projectsCmd(),
		c.boardCmd(),
		c.taskCmd(),
		c.membersCmd(),
		c.dashboardCmd(),
		c.serveCmd(),
	)
	return root
}

func (c *cli) setup(ctx context.Context) error {
	cfg, err := config.Load(c.envFile)
	if err != nil {
		return err
	}

	if cfg.IsDevelopment() {
		c.logger = c.logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		c.logger = c.logger.Level(level)
	}

	a, err := app.New(cfg, c.logger)
	if err != nil {
		return err
	}
	c.app = a
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	return nil
}

// execute runs root and always releases the app, even when the command
// failed and cobra skipped its post-run hooks.
func (c *cli) execute(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	return errors.Join(err, c.teardown(ctx))
}

func (c *cli) teardown(ctx context.Context) error {
	if c.app == nil {
		return nil
	}
	return c.app.Close(ctx)
}

func (c *cli) print(v any) error {
	return render(c.out, c.format, v)
}

func (c *cli) requireSession() error {
	if !c.app.Auth.State().IsAuthenticated {
		return errNotSignedIn
	}
	return nil
}

func passwordFlag(cmd *cobra.Command, p *string) {
	cmd.Flags().StringVar(p, "password", "", "password (defaults to $TASKBOARD_PASSWORD)")
}

func resolvePassword(p string) string {
	if p != "" {
		return p
	}
	return os.Getenv(config.Prefix + "_PASSWORD")
}

func (c *cli) loginCmd() *cobra.Command {
	var payload models.LoginPayload
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload.Password = resolvePassword(payload.Password)
			if err := c.app.Auth.Login(cmd.Context(), payload); err != nil {
				return err
			}
			return c.print(sessionOf(c.app.Auth.State()))
		},
	}
	cmd.Flags().StringVar(&payload.Email, "email", "", "account email")
	passwordFlag(cmd, &payload.Password)
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var payload models.RegisterPayload
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account (does not sign in)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload.Password = resolvePassword(payload.Password)
			if payload.ConfirmPassword == "" {
				payload.ConfirmPassword = payload.Password
			}
			profile, err := c.app.Auth.Register(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return c.print(profile)
		},
	}
	cmd.Flags().StringVar(&payload.Name, "name", "", "full name")
	cmd.Flags().StringVar(&payload.Email, "email", "", "account email")
	passwordFlag(cmd, &payload.Password)
	cmd.Flags().StringVar(&payload.ConfirmPassword, "confirm-password", "", "repeat the password (defaults to --password)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Auth.Logout(cmd.Context()); err != nil {
				c.logger.Warn().Err(err).Msg("server logout failed, local session cleared")
			}
			return c.print(sessionOf(c.app.Auth.State()))
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return c.print(sessionOf(c.app.Auth.State()))
		},
	}
}

func (c *cli) projectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List and manage projects",
	}

	var search, phase, urgency string
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := parseProjectFilter(search, phase, urgency)
			if err != nil {
				return err
			}
			if err := c.requireSession(); err != nil {
				return err
			}
			if err := c.app.Projects.FetchProjects(cmd.Context()); err != nil {
				return err
			}
			now := time.Now()
			return c.print(projectsOf(c.app.Projects.Filter(f, now), now))
		},
	}
	list.Flags().StringVar(&search, "search", "", "only projects whose name or description contains this text")
	list.Flags().StringVar(&phase, "status", "", "only projects in this phase: not-started, in-progress or overdue")
	list.Flags().StringVar(&urgency, "priority", "", "only projects with this deadline priority: low, medium, high or critical")

	var dto models.CreateProjectDto
	var members []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			assignments, err := parseMembers(members)
			if err != nil {
				return err
			}
			dto.Members = assignments
			created, err := c.app.Projects.AddProject(cmd.Context(), dto)
			if err != nil {
				return err
			}
			return c.print(projectsOf([]models.Project{created}, time.Now()))
		},
	}
	create.Flags().StringVar(&dto.Name, "name", "", "project name")
	create.Flags().StringVar(&dto.Description, "description", "", "project description")
	create.Flags().StringVar(&dto.StartDate, "start", "", "start date (YYYY-MM-DD)")
	create.Flags().StringVar(&dto.Deadline, "deadline", "", "deadline (YYYY-MM-DD)")
	create.Flags().StringArrayVar(&members, "member", nil, "member as USER_ID:ROLE, repeatable")

	var name, description, start, deadline string
	update := &cobra.Command{
		Use:   "update <projectID>",
		Short: "Change a project's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			var patch models.ProjectPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("start") {
				patch.StartDate = &start
			}
			if flags.Changed("deadline") {
				patch.Deadline = &deadline
			}
			updated, err := c.app.Projects.UpdateProject(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			return c.print(projectsOf([]models.Project{updated}, time.Now()))
		},
	}
	update.Flags().StringVar(&name, "name", "", "new name")
	update.Flags().StringVar(&description, "description", "", "new description")
	update.Flags().StringVar(&start, "start", "", "new start date")
	update.Flags().StringVar(&deadline, "deadline", "", "new deadline")

	del := &cobra.Command{
		Use:   "delete <projectID>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			if err := c.app.Projects.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted project %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

// parseProjectFilter validates the projects list filter flags.
func parseProjectFilter(search, phase, urgency string) (models.ProjectFilter, error) {
	f := models.ProjectFilter{Search: search}
	if phase != "" {
		p, ok := models.ParsePhase(phase)
		if !ok {
			return f, fmt.Errorf("unknown --status %q, want not-started, in-progress or overdue", phase)
		}
		f.Phase = p
	}
	if urgency != "" {
		p := models.Priority(strings.ToUpper(urgency))
		if !p.Valid() {
			return f, fmt.Errorf("unknown --priority %q, want low, medium, high or critical", urgency)
		}
		f.Urgency = p
	}
	return f, nil
}

// parseMembers reads USER_ID:ROLE pairs. The role defaults to MEMBER.
func parseMembers(raw []string) ([]models.MemberAssignment, error) {
	out := make([]models.MemberAssignment, 0, len(raw))
	for _, r := range raw {
		id, role, found := strings.Cut(r, ":")
		if !found {
			role = string(models.RoleMember)
		}
		a := models.MemberAssignment{UserID: strings.TrimSpace(id), Role: models.Role(strings.ToUpper(strings.TrimSpace(role)))}
		if a.UserID == "" || !a.Role.Valid() {
			return nil, fmt.Errorf("invalid --member %q, want USER_ID:ADMIN or USER_ID:MEMBER", r)
		}
		out = append(out, a)
	}
	return out, nil
}

// board loads the task board for projectID and prints it.
func (c *cli) board(ctx context.Context, projectID string, act func(*state.TaskBoard) error) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	b := c.app.NewBoard(projectID)
	defer b.Close()
	if err := b.Load(ctx); err != nil {
		return err
	}
	if act != nil {
		if err := act(b); err != nil {
			return err
		}
	}
	st := b.State()
	return c.print(boardOutput{Project: st.Project, Columns: b.Columns(), Error: st.Error})
}

func (c *cli) boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board <projectID>",
		Short: "Show a project's kanban board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.board(cmd.Context(), args[0], nil)
		},
	}
}

func (c *cli) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, move, edit and delete tasks",
	}

	var dto models.CreateTaskDto
	var priority, status, due string
	create := &cobra.Command{
		Use:   "create <projectID>",
		Short: "Add a task to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dto.Priority = models.Priority(strings.ToUpper(priority))
			if status != "" {
				s, ok := models.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				dto.Status = s
			}
			if due != "" {
				dto.DueDate = &due
			}
			return c.board(cmd.Context(), args[0], func(b *state.TaskBoard) error {
				return b.CreateTask(cmd.Context(), dto)
			})
		},
	}
	create.Flags().StringVar(&dto.Title, "title", "", "task title")
	create.Flags().StringVar(&dto.Description, "description", "", "task description")
	create.Flags().StringVar(&priority, "priority", string(models.PriorityMedium), "LOW, MEDIUM or HIGH")
	create.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	create.Flags().StringVar(&dto.AssigneeID, "assignee", "", "assignee user id (must be a project member)")
	create.Flags().StringVar(&status, "status", "", "initial status")

	move := &cobra.Command{
		Use:   "status <projectID> <taskID> <status>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ok := models.ParseStatus(args[2])
			if !ok {
				return fmt.Errorf("unknown status %q", args[2])
			}
			return c.board(cmd.Context(), args[0], func(b *state.TaskBoard) error {
				return b.UpdateTaskStatus(cmd.Context(), args[1], s)
			})
		},
	}

	var title, description, upPriority, upDue, assignee string
	update := &cobra.Command{
		Use:   "update <projectID> <taskID>",
		Short: "Edit a task's fields",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("priority") {
				p := models.Priority(strings.ToUpper(upPriority))
				patch.Priority = &p
			}
			if flags.Changed("due") {
				patch.DueDate = &upDue
			}
			if flags.Changed("assignee") {
				patch.AssigneeID = &assignee
			}
			return c.board(cmd.Context(), args[0], func(b *state.TaskBoard) error {
				return b.UpdateTask(cmd.Context(), args[1], patch)
			})
		},
	}
	update.Flags().StringVar(&title, "title", "", "new title")
	update.Flags().StringVar(&description, "description", "", "new description")
	update.Flags().StringVar(&upPriority, "priority", "", "new priority")
	update.Flags().StringVar(&upDue, "due", "", "new due date")
	update.Flags().StringVar(&assignee, "assignee", "", "new assignee user id")

	del := &cobra.Command{
		Use:   "delete <projectID> <taskID>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.board(cmd.Context(), args[0], func(b *state.TaskBoard) error {
				return b.DeleteTask(cmd.Context(), args[1])
			})
		},
	}

	cmd.AddCommand(create, move, update, del)
	return cmd
}

func (c *cli) membersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List workspace members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			if err := c.app.Users.FetchMembers(cmd.Context()); err != nil {
				return err
			}
			return c.print(c.app.Users.State())
		},
	}
}

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the dashboard overview",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			if err := c.app.Dashboard.FetchDashboard(cmd.Context()); err != nil {
				return errors.New(c.app.Dashboard.State().Error)
			}
			return c.print(c.app.Dashboard.State())
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the state containers over the local view API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := c.app.ViewServer()
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				c.logger.Info().Msg("shutting down")
				return srv.Shutdown()
			}
		},
	}
}
