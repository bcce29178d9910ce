// Package backend selects the key store gateway named by configuration.
package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/balajivenky06/dandi/internal/config"
	"github.com/balajivenky06/dandi/internal/storage"
	"github.com/balajivenky06/dandi/internal/storage/memory"
	"github.com/balajivenky06/dandi/internal/storage/mongo"
	"github.com/balajivenky06/dandi/internal/storage/sql"
)

// Open returns the gateway for cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	case "mongo":
		return mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case "sqlite3":
		// Create data directory if needed
		if dir := filepath.Dir(cfg.DSN); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
		return sql.New(cfg.Driver, cfg.DSN)
	case "postgres":
		return sql.New(cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
