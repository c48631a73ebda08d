package venue

import (
	"context"

	"github.com/google/uuid"
)

// SpaceRepository defines the persistence contract for spaces.
type SpaceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Space, error)
	List(ctx context.Context, activeOnly bool) ([]*Space, error)
	Save(ctx context.Context, s *Space) error
	Update(ctx context.Context, s *Space) error
}
