// Package credentials persists the session tokens and cached profile.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/models"
	"github.com/p-blackswan/taskboard/pkg/tokenstore"
)

// Storage keys.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserDetails  = "userDetails"
)

// TTLs holds the validity window of each persisted entry.
type TTLs struct {
	AccessToken  time.Duration
	RefreshToken time.Duration
	Profile      time.Duration
}

// DefaultTTLs mirrors the web client: 15 minutes, 7 days and 1 day.
func DefaultTTLs() TTLs {
	return TTLs{
		AccessToken:  15 * time.Minute,
		RefreshToken: 7 * 24 * time.Hour,
		Profile:      24 * time.Hour,
	}
}

// Credentials is what Load found in storage. Fields are empty when the
// entry is missing or expired.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Profile      *models.Profile
}

// Complete reports whether all three entries are present.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && c.Profile != nil
}

// Persistence writes, reads and clears the session credentials. It does no
// network I/O.
type Persistence struct {
	store  tokenstore.Store
	ttls   TTLs
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a Persistence over store.
func New(store tokenstore.Store, ttls TTLs, logger zerolog.Logger) *Persistence {
	return &Persistence{
		store:  store,
		ttls:   ttls,
		logger: logger.With().Str("component", "credentials").Logger(),
		now:    time.Now,
	}
}

// Set writes both tokens and, when given, the profile, each with its own TTL.
func (p *Persistence) Set(ctx context.Context, accessToken, refreshToken string, profile *models.Profile) error {
	if err := p.store.Set(ctx, KeyAccessToken, accessToken, p.accessTTL(accessToken)); err != nil {
		return fmt.Errorf("persisting access token: %w", err)
	}
	if err := p.store.Set(ctx, KeyRefreshToken, refreshToken, p.ttls.RefreshToken); err != nil {
		return fmt.Errorf("persisting refresh token: %w", err)
	}
	if profile == nil {
		return nil
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := p.store.Set(ctx, KeyUserDetails, string(raw), p.ttls.Profile); err != nil {
		return fmt.Errorf("persisting profile: %w", err)
	}
	return nil
}

// Load reads whatever credentials are still valid. Missing and expired
// entries are not errors.
func (p *Persistence) Load(ctx context.Context) (Credentials, error) {
	var creds Credentials
	var err error

	if creds.AccessToken, err = p.get(ctx, KeyAccessToken); err != nil {
		return Credentials{}, err
	}
	if creds.RefreshToken, err = p.get(ctx, KeyRefreshToken); err != nil {
		return Credentials{}, err
	}
	raw, err := p.get(ctx, KeyUserDetails)
	if err != nil {
		return Credentials{}, err
	}
	if raw != "" {
		var profile models.Profile
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			// A corrupt profile is treated like a missing one.
			p.logger.Warn().Err(err).Msg("discarding unreadable stored profile")
		} else {
			creds.Profile = &profile
		}
	}
	return creds, nil
}

// AccessToken returns the current access token, or "" when there is none.
func (p *Persistence) AccessToken(ctx context.Context) (string, error) {
	return p.get(ctx, KeyAccessToken)
}

// Clear removes all three entries. Absent entries are not errors.
func (p *Persistence) Clear(ctx context.Context) error {
	if err := tokenstore.DeleteAll(ctx, p.store, KeyAccessToken, KeyRefreshToken, KeyUserDetails); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	return nil
}

// Ping checks the underlying store.
func (p *Persistence) Ping(ctx context.Context) error {
	return p.store.Ping(ctx)
}

func (p *Persistence) get(ctx context.Context, key string) (string, error) {
	tok, err := p.store.Get(ctx, key)
	switch {
	case errors.Is(err, tokenstore.ErrTokenNotFound), errors.Is(err, tokenstore.ErrTokenExpired):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return tok.Value, nil
}

// accessTTL caps the configured TTL at the token's own exp claim when the
// token is a JWT. The signature is not checked; the server remains the
// authority on validity.
func (p *Persistence) accessTTL(token string) time.Duration {
	ttl := p.ttls.AccessToken
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ttl
	}
	if claims.ExpiresAt == nil {
		return ttl
	}
	remaining := claims.ExpiresAt.Sub(p.now())
	if remaining <= 0 {
		p.logger.Warn().Time("exp", claims.ExpiresAt.Time).Msg("access token already expired on arrival")
		return time.Millisecond
	}
	if remaining < ttl {
		return remaining
	}
	return ttl
}
