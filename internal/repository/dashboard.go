package repository

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/models"
)

// DashboardRepository covers /dashboard.
type DashboardRepository struct {
	base
}

// NewDashboardRepository creates a DashboardRepository.
func NewDashboardRepository(api Requester, logger zerolog.Logger) *DashboardRepository {
	return &DashboardRepository{base: newBase(api, logger, "repository.dashboard")}
}

// Overview returns the whole response envelope: the dashboard container
// treats success=false as a failure carrying the envelope's message.
func (r *DashboardRepository) Overview(ctx context.Context) (models.Envelope[models.DashboardSnapshot], error) {
	var resp models.Envelope[models.DashboardSnapshot]
	if err := r.api.Get(ctx, "/dashboard/overview", &resp); err != nil {
		return models.Envelope[models.DashboardSnapshot]{}, r.fail(OpDashboard, err)
	}
	return resp, nil
}
