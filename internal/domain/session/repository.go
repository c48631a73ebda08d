package session

import (
	"context"

	"github.com/google/uuid"
)

// SessionRepository defines the persistence contract for Session aggregates.
type SessionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// ListOpen returns sessions that have not been closed, oldest first.
	ListOpen(ctx context.Context) ([]*Session, error)
	Save(ctx context.Context, s *Session) error
	// Update persists changes with optimistic locking on the version.
	Update(ctx context.Context, s *Session) error
}
