package state

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/models"
)

const msgDashboardFailed = "Failed to load dashboard data"

// ErrDashboardRejected is returned when the overview envelope reports
// success=false.
var ErrDashboardRejected = errors.New("dashboard overview rejected")

// DashboardState is the overview page.
type DashboardState struct {
	Data    *models.DashboardSnapshot `json:"data" yaml:"data"`
	Loading bool                      `json:"loading" yaml:"loading"`
	Error   string                    `json:"error" yaml:"error"`
}

func cloneDashboardState(s DashboardState) DashboardState {
	if s.Data != nil {
		d := s.Data.Clone()
		s.Data = &d
	}
	return s
}

// DashboardStore owns the dashboard snapshot.
type DashboardStore struct {
	*container[DashboardState]
	api     DashboardAPI
	actions ActionRecorder
	logger  zerolog.Logger
}

// NewDashboardStore creates an empty DashboardStore. actions may be nil.
func NewDashboardStore(api DashboardAPI, actions ActionRecorder, logger zerolog.Logger) *DashboardStore {
	return &DashboardStore{
		container: newContainer(DashboardState{}, cloneDashboardState),
		api:       api,
		actions:   actions,
		logger:    logger.With().Str("component", "dashboard_store").Logger(),
	}
}

// State returns a copy of the dashboard state.
func (s *DashboardStore) State() DashboardState { return s.get() }

// Subscribe registers fn to receive the state after every commit.
func (s *DashboardStore) Subscribe(fn func(DashboardState)) (unsubscribe func()) {
	return s.subs.add(fn)
}

// FetchDashboard loads the overview. An envelope with success=false shows
// its own message; any request failure shows a generic one.
func (s *DashboardStore) FetchDashboard(ctx context.Context) (err error) {
	defer func() { record(s.actions, "dashboard", "fetch", err) }()

	s.commit(func(st *DashboardState) {
		st.Loading = true
		st.Error = ""
	})

	env, err := s.api.Overview(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("fetching dashboard")
		s.setError(msgDashboardFailed)
		return err
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = msgDashboardFailed
		}
		s.setError(msg)
		return ErrDashboardRejected
	}

	data := env.Data
	s.commit(func(st *DashboardState) {
		st.Data = &data
		st.Loading = false
		st.Error = ""
	})
	return nil
}

func (s *DashboardStore) setError(msg string) {
	s.commit(func(st *DashboardState) {
		st.Loading = false
		st.Error = msg
	})
}
