package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/apierr"
	"github.com/p-blackswan/taskboard/internal/models"
	"github.com/p-blackswan/taskboard/internal/repository"
)

const msgSessionNotSaved = "Failed to save session"

// Session is the client's view of the authenticated user.
type Session struct {
	User            *models.Profile `json:"user" yaml:"user"`
	AccessToken     string          `json:"accessToken" yaml:"accessToken"`
	RefreshToken    string          `json:"refreshToken" yaml:"refreshToken"`
	IsAuthenticated bool            `json:"isAuthenticated" yaml:"isAuthenticated"`
	IsLoading       bool            `json:"isLoading" yaml:"isLoading"`
	Error           string          `json:"error" yaml:"error"`
}

func cloneSession(s Session) Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (s *Session) reset() {
	*s = Session{}
}

// SessionObserver is told whether the Session is authenticated after every
// commit. *metrics.Metrics satisfies it.
type SessionObserver interface {
	SetAuthenticated(ok bool)
}

// AuthStore owns the Session and mirrors it into credential persistence.
type AuthStore struct {
	*container[Session]
	api      AuthAPI
	creds    CredentialStore
	actions  ActionRecorder
	observer SessionObserver
	logger   zerolog.Logger
}

// AuthOption configures an AuthStore.
type AuthOption func(*AuthStore)

// WithAuthMetrics records action outcomes and the authenticated gauge.
func WithAuthMetrics(r ActionRecorder, o SessionObserver) AuthOption {
	return func(s *AuthStore) {
		s.actions = r
		s.observer = o
	}
}

// NewAuthStore creates an AuthStore with an empty Session.
func NewAuthStore(api AuthAPI, creds CredentialStore, logger zerolog.Logger, opts ...AuthOption) *AuthStore {
	s := &AuthStore{
		container: newContainer(Session{}, cloneSession),
		api:       api,
		creds:     creds,
		logger:    logger.With().Str("component", "auth_store").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current Session.
func (s *AuthStore) State() Session { return s.get() }

// Subscribe registers fn to receive the Session after every commit.
func (s *AuthStore) Subscribe(fn func(Session)) (unsubscribe func()) { return s.subs.add(fn) }

// commit recomputes IsAuthenticated from the fields it depends on so it can
// never disagree with them.
func (s *AuthStore) commit(fn func(*Session)) Session {
	snap := s.container.commit(func(sess *Session) {
		fn(sess)
		sess.IsAuthenticated = sess.User != nil && sess.AccessToken != "" && sess.RefreshToken != ""
	})
	if s.observer != nil {
		s.observer.SetAuthenticated(snap.IsAuthenticated)
	}
	return snap
}

// Initialize hydrates the Session from persisted credentials. The Session
// is authenticated only when all three entries are present; otherwise the
// user and tokens are left empty. Safe to call repeatedly.
func (s *AuthStore) Initialize(ctx context.Context) error {
	creds, err := s.creds.Load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("loading stored credentials")
		s.commit(func(sess *Session) {
			sess.User, sess.AccessToken, sess.RefreshToken = nil, "", ""
		})
		return fmt.Errorf("loading credentials: %w", err)
	}

	s.commit(func(sess *Session) {
		if !creds.Complete() {
			sess.User, sess.AccessToken, sess.RefreshToken = nil, "", ""
			return
		}
		sess.User = creds.Profile
		sess.AccessToken = creds.AccessToken
		sess.RefreshToken = creds.RefreshToken
	})
	return nil
}

// Login authenticates against the API, persists the returned credentials
// and hydrates the Session. On failure the Session's user and tokens are
// cleared and the resolved message is stored in Error.
func (s *AuthStore) Login(ctx context.Context, payload models.LoginPayload) (err error) {
	defer func() { record(s.actions, "auth", "login", err) }()

	s.commit(func(sess *Session) {
		sess.IsLoading = true
		sess.Error = ""
	})

	data, err := s.api.Login(ctx, payload)
	if err != nil {
		if apierr.KindOf(err) != apierr.KindValidation {
			s.logger.Warn().Str("email", payload.Email).Msg(err.Error())
			if cerr := s.creds.Clear(ctx); cerr != nil {
				s.logger.Error().Err(cerr).Msg("clearing credentials after failed login")
			}
		}
		s.fail(repository.Message(repository.OpLogin, err))
		return err
	}

	profile := data.UserDetails
	if perr := s.creds.Set(ctx, data.AccessToken, data.RefreshToken, &profile); perr != nil {
		s.logger.Error().Err(perr).Msg("persisting credentials")
		if cerr := s.creds.Clear(ctx); cerr != nil {
			s.logger.Error().Err(cerr).Msg("clearing partially persisted credentials")
		}
		s.fail(msgSessionNotSaved)
		return fmt.Errorf("persisting credentials: %w", perr)
	}

	s.commit(func(sess *Session) {
		sess.User = &profile
		sess.AccessToken = data.AccessToken
		sess.RefreshToken = data.RefreshToken
		sess.IsLoading = false
		sess.Error = ""
	})
	s.logger.Info().Str("user_id", profile.ID).Msg("logged in")
	return nil
}

func (s *AuthStore) fail(msg string) {
	s.commit(func(sess *Session) {
		sess.User, sess.AccessToken, sess.RefreshToken = nil, "", ""
		sess.IsLoading = false
		sess.Error = msg
	})
}

// Register creates an account. It does not authenticate; the caller logs in
// separately. The created profile is returned for display.
func (s *AuthStore) Register(ctx context.Context, payload models.RegisterPayload) (profile models.Profile, err error) {
	defer func() { record(s.actions, "auth", "register", err) }()

	s.commit(func(sess *Session) {
		sess.IsLoading = true
		sess.Error = ""
	})

	profile, err = s.api.Register(ctx, payload)
	if err != nil {
		msg := repository.Message(repository.OpRegister, err)
		s.commit(func(sess *Session) {
			sess.IsLoading = false
			sess.Error = msg
		})
		return models.Profile{}, err
	}

	s.commit(func(sess *Session) {
		sess.IsLoading = false
		sess.Error = ""
	})
	s.logger.Info().Str("user_id", profile.ID).Msg("registered")
	return profile, nil
}

// Logout tells the API the session is over, then clears persisted
// credentials and resets the Session whatever the API answered. The API
// error, if any, is returned but not kept in the Session.
func (s *AuthStore) Logout(ctx context.Context) (err error) {
	defer func() { record(s.actions, "auth", "logout", err) }()

	s.commit(func(sess *Session) {
		sess.IsLoading = true
		sess.Error = ""
	})

	apiErr := s.api.Logout(ctx)
	if apiErr != nil {
		s.logger.Warn().Err(apiErr).Msg("server logout failed, clearing local session anyway")
	}

	clearErr := s.creds.Clear(ctx)
	if clearErr != nil {
		s.logger.Error().Err(clearErr).Msg("clearing credentials")
	}

	s.commit(func(sess *Session) { sess.reset() })
	return errors.Join(apiErr, clearErr)
}

// ClearError drops the current error message and nothing else.
func (s *AuthStore) ClearError() {
	s.commit(func(sess *Session) { sess.Error = "" })
}

// SetUser replaces the in-memory profile. Passing nil signs the Session out
// locally without touching persisted credentials.
func (s *AuthStore) SetUser(profile *models.Profile) {
	s.commit(func(sess *Session) {
		if profile == nil {
			sess.User = nil
			return
		}
		u := *profile
		sess.User = &u
	})
}

// UpdateTokens installs a renewed token pair obtained elsewhere and persists
// it alongside the current profile.
func (s *AuthStore) UpdateTokens(ctx context.Context, accessToken, refreshToken string) error {
	current := s.State()
	if err := s.creds.Set(ctx, accessToken, refreshToken, current.User); err != nil {
		return fmt.Errorf("persisting tokens: %w", err)
	}
	s.commit(func(sess *Session) {
		sess.AccessToken = accessToken
		sess.RefreshToken = refreshToken
	})
	return nil
}
