// Package app builds the client object graph from configuration: the API
// client, repositories, credential persistence and the state containers.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/apiclient"
	"github.com/p-blackswan/taskboard/internal/config"
	"github.com/p-blackswan/taskboard/internal/credentials"
	"github.com/p-blackswan/taskboard/internal/health"
	"github.com/p-blackswan/taskboard/internal/metrics"
	"github.com/p-blackswan/taskboard/internal/repository"
	"github.com/p-blackswan/taskboard/internal/state"
	"github.com/p-blackswan/taskboard/internal/viewapi"
	"github.com/p-blackswan/taskboard/pkg/tokenstore"
)

// App is the wired client.
type App struct {
	Config      *config.Config
	Client      *apiclient.Client
	Credentials *credentials.Persistence
	Metrics     *metrics.Metrics
	Checker     *health.Checker

	Auth      *state.AuthStore
	Projects  *state.ProjectStore
	Users     *state.UserStore
	Dashboard *state.DashboardStore

	boardRepo *repository.ProjectRepository
	store     tokenstore.Store
	logger    zerolog.Logger
}

// Option adjusts construction, mainly for tests.
type Option func(*options)

type options struct {
	store      tokenstore.Store
	httpClient apiclient.HTTPClient
}

// WithStore uses store instead of the one named by the config.
func WithStore(store tokenstore.Store) Option {
	return func(o *options) { o.store = store }
}

// WithHTTPClient sends API requests through hc.
func WithHTTPClient(hc apiclient.HTTPClient) Option {
	return func(o *options) { o.httpClient = hc }
}

// New wires every component. Close releases the credential store.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		if store, err = openStore(cfg, logger); err != nil {
			return nil, err
		}
	}

	m := metrics.New()
	creds := credentials.New(store, credentials.TTLs{
		AccessToken:  cfg.AccessTokenTTL,
		RefreshToken: cfg.RefreshTokenTTL,
		Profile:      cfg.ProfileTTL,
	}, logger)

	clientOpts := []apiclient.Option{apiclient.WithTimeout(cfg.RequestTimeout), apiclient.WithMetrics(m)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, apiclient.WithHTTPClient(o.httpClient))
	}
	client := apiclient.NewClient(cfg.APIBaseURL, apiclient.NewBearerAuth(creds), logger, clientOpts...)

	checker := health.NewChecker(logger)
	checker.Optional("api", client)
	checker.Require("credentials", creds)

	projectRepo := repository.NewProjectRepository(client, logger)

	a := &App{
		Config:      cfg,
		Client:      client,
		Credentials: creds,
		Metrics:     m,
		Checker:     checker,
		Auth: state.NewAuthStore(repository.NewAuthRepository(client, logger), creds, logger,
			state.WithAuthMetrics(m, m)),
		Projects:  state.NewProjectStore(projectRepo, m, logger),
		Users:     state.NewUserStore(repository.NewUserRepository(client, logger), m, logger),
		Dashboard: state.NewDashboardStore(repository.NewDashboardRepository(client, logger), m, logger),
		boardRepo: projectRepo,
		store:     store,
		logger:    logger,
	}
	return a, nil
}

func openStore(cfg *config.Config, logger zerolog.Logger) (tokenstore.Store, error) {
	if !cfg.UsesSQLite() {
		return tokenstore.NewMemoryStore(), nil
	}
	store, err := tokenstore.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}
	return store, nil
}

// NewBoard creates the task board for one project.
func (a *App) NewBoard(projectID string) *state.TaskBoard {
	return state.NewTaskBoard(a.boardRepo, projectID, a.Metrics, a.logger)
}

// Start restores the persisted session.
func (a *App) Start(ctx context.Context) error {
	return a.Auth.Initialize(ctx)
}

// ViewServer builds the local view API over the containers.
func (a *App) ViewServer() *viewapi.Server {
	return viewapi.NewServer(viewapi.Config{
		ListenAddr:  a.Config.ViewListenAddr,
		CORSOrigins: a.Config.ViewCORSOrigins,
	}, viewapi.Stores{
		Auth:      a.Auth,
		Projects:  a.Projects,
		Users:     a.Users,
		Dashboard: a.Dashboard,
		NewBoard:  a.NewBoard,
	}, a.Checker, a.Metrics, a.logger)
}

// Close expires stale entries and releases the credential store.
func (a *App) Close(ctx context.Context) error {
	if n, err := a.store.Cleanup(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("cleaning up expired credentials")
	} else if n > 0 {
		a.logger.Debug().Int("removed", n).Msg("expired credentials removed")
	}
	if c, ok := a.store.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
