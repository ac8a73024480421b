package state

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/taskboard/internal/apierr"
	"github.com/p-blackswan/taskboard/internal/credentials"
	"github.com/p-blackswan/taskboard/internal/models"
	"github.com/p-blackswan/taskboard/pkg/tokenstore"
)

var testProfile = models.Profile{ID: "u1", Name: "A", Email: "a@b.com", Role: models.RoleMember}

type failingSetStore struct {
	*tokenstore.MemoryStore
}

func (f failingSetStore) Set(context.Context, string, string, time.Duration) error {
	return errors.New("disk full")
}

func newAuthStore(t *testing.T, api *fakeAuthAPI) (*AuthStore, *tokenstore.MemoryStore, *fakeRecorder) {
	t.Helper()
	store := tokenstore.NewMemoryStore()
	rec := &fakeRecorder{}
	persist := credentials.New(store, credentials.DefaultTTLs(), zerolog.Nop())
	return NewAuthStore(api, persist, zerolog.Nop(), WithAuthMetrics(rec, rec)), store, rec
}

func assertInvariant(t *testing.T, s Session) {
	t.Helper()
	want := s.User != nil && s.AccessToken != "" && s.RefreshToken != ""
	assert.Equal(t, want, s.IsAuthenticated, "isAuthenticated out of step with %+v", s)
}

func successfulLogin() *fakeAuthAPI {
	return &fakeAuthAPI{loginData: models.LoginData{AccessToken: "t1", RefreshToken: "r1", UserDetails: testProfile}}
}

func TestAuthStore_LoginScenario(t *testing.T) {
	ctx := context.Background()
	auth, store, rec := newAuthStore(t, successfulLogin())

	require.NoError(t, auth.Login(ctx, models.LoginPayload{Email: "a@b.com", Password: "secret1"}))

	profile := testProfile
	assert.Equal(t, Session{
		User:            &profile,
		AccessToken:     "t1",
		RefreshToken:    "r1",
		IsAuthenticated: true,
	}, auth.State())
	assert.Equal(t, 3, store.Len())
	assert.Equal(t, recordedAction{"auth", "login", "ok"}, rec.last())
	assert.Equal(t, []bool{false, true}, rec.authed)
}

func TestAuthStore_LoginFailureClearsSession(t *testing.T) {
	ctx := context.Background()
	api := successfulLogin()
	auth, store, rec := newAuthStore(t, api)
	require.NoError(t, auth.Login(ctx, models.LoginPayload{Email: "a@b.com", Password: "secret1"}))

	api.loginErr = apierr.Resolve(apierr.NewServer(401, "Invalid credentials"), "auth.login", "Login failed")
	err := auth.Login(ctx, models.LoginPayload{Email: "a@b.com", Password: "wrong12"})
	require.Error(t, err)

	s := auth.State()
	assert.Nil(t, s.User)
	assert.Empty(t, s.AccessToken)
	assert.Empty(t, s.RefreshToken)
	assert.False(t, s.IsAuthenticated)
	assert.False(t, s.IsLoading)
	assert.Equal(t, "Invalid credentials", s.Error)
	assert.Zero(t, store.Len(), "failed login clears stored credentials")
	assert.Equal(t, "server", rec.last().outcome)
}

func TestAuthStore_LoginValidationNeverReachesStorage(t *testing.T) {
	ctx := context.Background()
	auth, store, _ := newAuthStore(t, successfulLogin())

	err := auth.Login(ctx, models.LoginPayload{Email: "not-an-email", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, apierr.KindValidation, apierr.KindOf(err))
	assert.Equal(t, "Email is invalid", auth.State().Error)
	assert.Zero(t, store.Len())
}

func TestAuthStore_LoginPersistenceFailure(t *testing.T) {
	store := failingSetStore{tokenstore.NewMemoryStore()}
	persist := credentials.New(store, credentials.DefaultTTLs(), zerolog.Nop())
	auth := NewAuthStore(successfulLogin(), persist, zerolog.Nop())

	err := auth.Login(context.Background(), models.LoginPayload{Email: "a@b.com", Password: "secret1"})
	require.Error(t, err)
	s := auth.State()
	assert.False(t, s.IsAuthenticated)
	assert.Equal(t, "Failed to save session", s.Error)
}

func TestAuthStore_Initialize(t *testing.T) {
	ctx := context.Background()

	t.Run("complete credentials hydrate", func(t *testing.T) {
		auth, store, _ := newAuthStore(t, &fakeAuthAPI{})
		persist := credentials.New(store, credentials.DefaultTTLs(), zerolog.Nop())
		require.NoError(t, persist.Set(ctx, "t1", "r1", &testProfile))

		require.NoError(t, auth.Initialize(ctx))
		require.NoError(t, auth.Initialize(ctx))
		s := auth.State()
		assert.True(t, s.IsAuthenticated)
		assert.Equal(t, "u1", s.User.ID)
		assert.Equal(t, "t1", s.AccessToken)
	})

	t.Run("missing profile leaves session empty", func(t *testing.T) {
		auth, store, _ := newAuthStore(t, &fakeAuthAPI{})
		persist := credentials.New(store, credentials.DefaultTTLs(), zerolog.Nop())
		require.NoError(t, persist.Set(ctx, "t1", "r1", nil))

		require.NoError(t, auth.Initialize(ctx))
		assert.Equal(t, Session{}, auth.State())
	})

	t.Run("nothing stored", func(t *testing.T) {
		auth, _, _ := newAuthStore(t, &fakeAuthAPI{})
		require.NoError(t, auth.Initialize(ctx))
		assert.Equal(t, Session{}, auth.State())
	})
}

func TestAuthStore_RegisterDoesNotAuthenticate(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{registered: testProfile}
	auth, store, _ := newAuthStore(t, api)

	profile, err := auth.Register(ctx, models.RegisterPayload{Name: "A", Email: "a@b.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.ID)
	assert.Equal(t, Session{}, auth.State())
	assert.Zero(t, store.Len())

	api.registerErr = apierr.Resolve(apierr.NewServer(409, "Email already registered"), "auth.register", "Registration failed")
	_, err = auth.Register(ctx, models.RegisterPayload{})
	require.Error(t, err)
	assert.Equal(t, "Email already registered", auth.State().Error)
	assert.False(t, auth.State().IsLoading)
}

func TestAuthStore_LogoutAlwaysClears(t *testing.T) {
	tests := []struct {
		name      string
		logoutErr error
	}{
		{"server accepts", nil},
		{"server rejects", apierr.NewServer(500, "Logout failed")},
		{"server unreachable", apierr.NewTransport(errors.New("connection refused"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			api := successfulLogin()
			api.logoutErr = tt.logoutErr
			auth, store, _ := newAuthStore(t, api)
			require.NoError(t, auth.Login(ctx, models.LoginPayload{Email: "a@b.com", Password: "secret1"}))

			err := auth.Logout(ctx)
			if tt.logoutErr != nil {
				assert.ErrorIs(t, err, tt.logoutErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, Session{}, auth.State())
			assert.Zero(t, store.Len())
			assert.Equal(t, 1, api.logoutCalls)
		})
	}
}

func TestAuthStore_ClearErrorKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	api := successfulLogin()
	auth, _, _ := newAuthStore(t, api)
	api.loginErr = apierr.NewServer(401, "Invalid credentials")
	_ = auth.Login(ctx, models.LoginPayload{Email: "a@b.com", Password: "secret1"})
	require.NotEmpty(t, auth.State().Error)

	before := auth.State()
	auth.ClearError()
	after := auth.State()
	before.Error = ""
	assert.Equal(t, before, after)
}

func TestAuthStore_SetUserAndUpdateTokens(t *testing.T) {
	ctx := context.Background()
	auth, store, _ := newAuthStore(t, successfulLogin())
	require.NoError(t, auth.Login(ctx, models.LoginPayload{Email: "a@b.com", Password: "secret1"}))

	auth.SetUser(nil)
	assert.False(t, auth.State().IsAuthenticated)

	renamed := testProfile
	renamed.Name = "Renamed"
	auth.SetUser(&renamed)
	renamed.Name = "mutated after the call"
	assert.Equal(t, "Renamed", auth.State().User.Name)
	assert.True(t, auth.State().IsAuthenticated)

	require.NoError(t, auth.UpdateTokens(ctx, "t2", "r2"))
	s := auth.State()
	assert.Equal(t, "t2", s.AccessToken)
	assert.Equal(t, "r2", s.RefreshToken)
	tok, err := store.Get(ctx, credentials.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "t2", tok.Value)

	require.NoError(t, auth.UpdateTokens(ctx, "", "r3"))
	assert.False(t, auth.State().IsAuthenticated)
}

func TestAuthStore_InvariantHoldsInEveryCommit(t *testing.T) {
	ctx := context.Background()
	api := successfulLogin()
	auth, _, _ := newAuthStore(t, api)

	var seen []Session
	unsubscribe := auth.Subscribe(func(s Session) { seen = append(seen, s) })
	defer unsubscribe()

	_ = auth.Initialize(ctx)
	_ = auth.Login(ctx, models.LoginPayload{Email: "a@b.com", Password: "secret1"})
	auth.SetUser(nil)
	_ = auth.UpdateTokens(ctx, "t2", "r2")
	auth.SetUser(&testProfile)
	api.loginErr = apierr.NewServer(401, "nope")
	_ = auth.Login(ctx, models.LoginPayload{Email: "a@b.com", Password: "secret1"})
	_ = auth.Logout(ctx)

	require.NotEmpty(t, seen)
	for _, s := range seen {
		assertInvariant(t, s)
	}
}

func TestAuthStore_SnapshotsAreIsolated(t *testing.T) {
	ctx := context.Background()
	auth, _, _ := newAuthStore(t, successfulLogin())
	require.NoError(t, auth.Login(ctx, models.LoginPayload{Email: "a@b.com", Password: "secret1"}))

	s := auth.State()
	s.User.Name = "changed"
	assert.Equal(t, "A", auth.State().User.Name)
}

func TestAuthStore_Unsubscribe(t *testing.T) {
	auth, _, _ := newAuthStore(t, &fakeAuthAPI{})
	calls := 0
	unsubscribe := auth.Subscribe(func(Session) { calls++ })

	auth.ClearError()
	unsubscribe()
	unsubscribe()
	auth.ClearError()
	assert.Equal(t, 1, calls)
}
