// Package postgres implements track storage on a PostgreSQL server through
// the shared GORM backend. The connection is made lazily in Init so the
// backend can be constructed before the server is reachable.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/demoghost/replay/internal/database"
	gormstorage "github.com/demoghost/replay/internal/storage/gorm"
)

// Backend wraps the GORM backend for PostgreSQL-specific behavior.
type Backend struct {
	*gormstorage.Backend
	log *slog.Logger
}

// New creates a new PostgreSQL storage backend. No connection is made yet.
func New(log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{Log: log}),
		log:     log,
	}
}

// Init connects to the server when no connection was injected, validates
// it, and initializes the embedded GORM backend.
func (b *Backend) Init() error {
	if b.DB() == nil {
		db, err := database.GetPostgresDBStandalone()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.SetDB(db)
	}

	return b.Backend.Init()
}
