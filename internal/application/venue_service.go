package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/venuedesk/service-billing/internal/domain/session"
	"github.com/venuedesk/service-billing/internal/domain/venue"
)

// CreateSpaceRequest holds data to register a table or hall.
type CreateSpaceRequest struct {
	Name          string           `json:"name" binding:"required"`
	Kind          string           `json:"kind" binding:"required,oneof=table hall"`
	PricingMode   string           `json:"pricing_mode" binding:"required,oneof=per_space per_person"`
	HourlyRate    decimal.Decimal  `json:"hourly_rate"`
	FirstHourRate *decimal.Decimal `json:"first_hour_rate"`
}

// VenueService manages the rate cards of spaces.
type VenueService struct {
	repo   venue.SpaceRepository
	logger *zap.Logger
}

// NewVenueService creates a new VenueService.
func NewVenueService(repo venue.SpaceRepository, logger *zap.Logger) *VenueService {
	return &VenueService{repo: repo, logger: logger}
}

// CreateSpace registers a new space (admin only).
func (s *VenueService) CreateSpace(ctx context.Context, req CreateSpaceRequest) (*SpaceDTO, error) {
	space, err := venue.NewSpace(req.Name, venue.Kind(req.Kind), session.PricingMode(req.PricingMode), req.HourlyRate, req.FirstHourRate)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, space); err != nil {
		return nil, fmt.Errorf("failed to save space: %w", err)
	}

	s.logger.Info("space created",
		zap.String("space_id", space.ID().String()),
		zap.String("name", space.Name()),
		zap.String("pricing_mode", string(space.Mode())),
	)
	dto := toSpaceDTO(space)
	return &dto, nil
}

// GetSpace retrieves a space by its ID.
func (s *VenueService) GetSpace(ctx context.Context, id uuid.UUID) (*SpaceDTO, error) {
	space, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toSpaceDTO(space)
	return &dto, nil
}

// ListSpaces lists spaces, optionally only those in service.
func (s *VenueService) ListSpaces(ctx context.Context, activeOnly bool) ([]SpaceDTO, error) {
	spaces, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	dtos := make([]SpaceDTO, len(spaces))
	for i, sp := range spaces {
		dtos[i] = toSpaceDTO(sp)
	}
	return dtos, nil
}

// DeactivateSpace takes a space out of service (admin only).
func (s *VenueService) DeactivateSpace(ctx context.Context, id uuid.UUID) (*SpaceDTO, error) {
	space, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	space.Deactivate()
	if err := s.repo.Update(ctx, space); err != nil {
		return nil, err
	}
	s.logger.Info("space deactivated", zap.String("space_id", id.String()))
	dto := toSpaceDTO(space)
	return &dto, nil
}
