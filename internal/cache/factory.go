package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"hotjar/internal/config"
)

func MakeCache(ctx context.Context, cfg *config.Config) (ListCache, error) {
	s := cfg.Storage
	switch s.Backend {
	case "memory":
		slog.Info("Using in-memory config store; settings are lost on restart")
		return NewInMemoryCache(), nil
	case "blob":
		slog.Info("Using Azure Blob Storage for config", "account", s.BlobAccount, "container", s.BlobContainer)
		return NewBlobCache(s.BlobAccount, s.BlobKey, s.BlobContainer)
	case "cosmos":
		slog.Info("Using Azure Cosmos DB for config", "database", s.CosmosDatabase, "container", s.CosmosContainer)
		return NewCosmosCache(s.CosmosEndpoint, s.CosmosKey, s.CosmosDatabase, s.CosmosContainer)
	case "sqlite":
		slog.Info("Using SQLite for config", "path", s.SQLitePath)
		if dir := filepath.Dir(s.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		return NewSQLiteCache(ctx, s.SQLitePath)
	case "postgres":
		slog.Info("Using Postgres for config")
		return NewPostgresCache(ctx, s.PostgresDSN)
	case "file", "":
		slog.Info("Using local files for config", "dir", s.Dir)
		return NewFileCache(s.Dir), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.Backend)
	}
}
