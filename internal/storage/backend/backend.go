// Package backend opens the users directory selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/hongminglow/dealer-gateway/internal/config"
	"github.com/hongminglow/dealer-gateway/internal/storage"
	"github.com/hongminglow/dealer-gateway/internal/storage/postgres"
	"github.com/hongminglow/dealer-gateway/internal/storage/sqlite"
)

// Open returns the configured store and a function releasing it.
func Open(ctx context.Context, cfg config.Config) (storage.UserStore, func(), error) {
	switch cfg.DirectoryDriver {
	case config.DriverPostgres:
		store, err := postgres.NewUserStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported directory driver %q", cfg.DirectoryDriver)
	}
}
