package repository

import (
	"embed"

	"gorm.io/gorm"
)

// Migrations holds the versioned SQL schema, applied outside development.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations holding the SQL files.
const MigrationsDir = "migrations"

// AutoMigrate creates or alters every table from the GORM models. Used in
// development and by the integration tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&SpaceModel{},
		&SessionModel{},
		&SegmentModel{},
		&MemberModel{},
		&LineItemModel{},
		&PromoModel{},
		&PromoUsageModel{},
		&InvoiceModel{},
	)
}
