package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/venuedesk/service-billing/internal/platform/domain"
)

// translate maps gorm errors onto domain errors.
func translate(err error, entity, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.NewNotFoundError(entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.NewConflictError(entity + " " + id + " already exists")
	default:
		return err
	}
}
