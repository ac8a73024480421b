package repository

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/models"
)

// AuthRepository covers /auth.
type AuthRepository struct {
	base
}

// NewAuthRepository creates an AuthRepository.
func NewAuthRepository(api Requester, logger zerolog.Logger) *AuthRepository {
	return &AuthRepository{base: newBase(api, logger, "repository.auth")}
}

// Login exchanges credentials for a token pair and profile.
func (r *AuthRepository) Login(ctx context.Context, payload models.LoginPayload) (models.LoginData, error) {
	if err := payload.Validate(); err != nil {
		return models.LoginData{}, r.fail(OpLogin, err)
	}
	var resp models.Envelope[models.LoginData]
	if err := r.api.Post(ctx, "/auth/login", payload, &resp); err != nil {
		return models.LoginData{}, r.fail(OpLogin, err)
	}
	return resp.Data, nil
}

// Register creates an account. It does not sign the caller in.
func (r *AuthRepository) Register(ctx context.Context, payload models.RegisterPayload) (models.Profile, error) {
	if err := payload.Validate(); err != nil {
		return models.Profile{}, r.fail(OpRegister, err)
	}
	var resp models.Envelope[models.Profile]
	if err := r.api.Post(ctx, "/auth/register", payload, &resp); err != nil {
		return models.Profile{}, r.fail(OpRegister, err)
	}
	return resp.Data, nil
}

// Logout ends the session on the server.
func (r *AuthRepository) Logout(ctx context.Context) error {
	if err := r.api.Post(ctx, "/auth/logout", struct{}{}, nil); err != nil {
		return r.fail(OpLogout, err)
	}
	return nil
}
