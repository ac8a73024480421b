package repository

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/models"
)

// UserRepository covers /user.
type UserRepository struct {
	base
}

// NewUserRepository creates a UserRepository.
func NewUserRepository(api Requester, logger zerolog.Logger) *UserRepository {
	return &UserRepository{base: newBase(api, logger, "repository.user")}
}

// ListMembers returns every registered member with their memberships.
func (r *UserRepository) ListMembers(ctx context.Context) ([]models.Member, error) {
	var resp models.Envelope[[]models.Member]
	if err := r.api.Get(ctx, "/user/get-all-members", &resp); err != nil {
		return nil, r.fail(OpListMembers, err)
	}
	return resp.Data, nil
}
