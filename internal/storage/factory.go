// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/demoghost/replay/internal/config"
	gormstorage "github.com/demoghost/replay/internal/storage/gorm"
	"github.com/demoghost/replay/internal/storage/memory"
	"github.com/demoghost/replay/internal/storage/postgres"
	sqlitestorage "github.com/demoghost/replay/internal/storage/sqlite"
)

// Backend contract checks live here rather than in the backend packages,
// which cannot import this one.
var (
	_ Backend    = (*memory.Backend)(nil)
	_ Exporter   = (*memory.Backend)(nil)
	_ Uploadable = (*memory.Backend)(nil)
	_ Backend    = (*gormstorage.Backend)(nil)
	_ Backend    = (*sqlitestorage.Backend)(nil)
	_ Backend    = (*postgres.Backend)(nil)
)

// NewBackend creates a storage backend based on configuration.
// An empty type selects the memory backend.
func NewBackend(cfg config.StorageConfig, log *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(log), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.Path,
		}, log)
	case "", "memory":
		return memory.New(memory.Config{
			OutputDir:      cfg.Memory.OutputDir,
			CompressOutput: cfg.Memory.CompressOutput,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
