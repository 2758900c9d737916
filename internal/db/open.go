package db

import (
	"fmt"
	"strings"

	"github.com/skillroad/skillroad/internal/logging"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	postgresMaxOpenConns = 20
	postgresMaxIdleConns = 5
)

// Open connects to PostgreSQL or SQLite depending on the DSN.
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}
	gormCfg := &gorm.Config{Logger: logging.NewGormLogger(), TranslateError: true}

	if isSQLiteDSN(trimmed) {
		conn, errOpen := gorm.Open(sqlite.Open(trimmed), gormCfg)
		if errOpen != nil {
			return nil, fmt.Errorf("db: open sqlite: %w", errOpen)
		}
		sqlDB, errDB := conn.DB()
		if errDB != nil {
			return nil, fmt.Errorf("db: sqlite handle: %w", errDB)
		}
		// A single connection keeps SQLite writers from failing with "database is locked".
		sqlDB.SetMaxOpenConns(1)
		return conn, nil
	}

	pgCfg, errParse := pgx.ParseConfig(trimmed)
	if errParse != nil {
		return nil, fmt.Errorf("db: parse postgres dsn: %w", errParse)
	}
	sqlDB := stdlib.OpenDB(*pgCfg)
	sqlDB.SetMaxOpenConns(postgresMaxOpenConns)
	sqlDB.SetMaxIdleConns(postgresMaxIdleConns)

	conn, errOpen := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
	if errOpen != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: open postgres: %w", errOpen)
	}
	return conn, nil
}

// isSQLiteDSN reports whether the DSN points at a SQLite database.
func isSQLiteDSN(dsn string) bool {
	lowered := strings.ToLower(dsn)
	if strings.HasPrefix(lowered, "file:") || lowered == ":memory:" {
		return true
	}
	pathPart, _, _ := strings.Cut(lowered, "?")
	return strings.HasSuffix(pathPart, ".db") || strings.HasSuffix(pathPart, ".sqlite") || strings.HasSuffix(pathPart, ".sqlite3")
}
