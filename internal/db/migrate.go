package db

import (
	"fmt"

	"github.com/skillroad/skillroad/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Roadmap{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_roadmaps_owner_created
		ON roadmaps (created_by, created_at DESC, id DESC)
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create roadmaps owner index: %w", errIndex)
	}
	if errUserRoadmaps := conn.Exec(`
		UPDATE users
		SET roadmap_ids = '[]'::jsonb
		WHERE roadmap_ids IS NULL
	`).Error; errUserRoadmaps != nil {
		return fmt.Errorf("db: backfill user roadmap ids: %w", errUserRoadmaps)
	}
	if errProviderIndex := conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_provider_identity
		ON users (auth_provider, provider_id)
		WHERE provider_id <> ''
	`).Error; errProviderIndex != nil {
		return fmt.Errorf("db: create user provider index: %w", errProviderIndex)
	}
	return nil
}

// migrateSQLite applies SQLite schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(
		&models.User{},
		&models.Roadmap{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errIndex := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_roadmaps_owner_created
		ON roadmaps (created_by, created_at DESC, id DESC)
	`).Error; errIndex != nil {
		return fmt.Errorf("db: create roadmaps owner index: %w", errIndex)
	}
	if errUserRoadmaps := conn.Exec(`
		UPDATE users
		SET roadmap_ids = '[]'
		WHERE roadmap_ids IS NULL
	`).Error; errUserRoadmaps != nil {
		return fmt.Errorf("db: backfill user roadmap ids: %w", errUserRoadmaps)
	}
	if errProviderIndex := conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_provider_identity
		ON users (auth_provider, provider_id)
		WHERE provider_id <> ''
	`).Error; errProviderIndex != nil {
		return fmt.Errorf("db: create user provider index: %w", errProviderIndex)
	}
	return nil
}
