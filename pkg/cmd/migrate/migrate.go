package migrate

import (
	"context"
	"fmt"
	"log"

	"github.com/igolaizola/sonicforge/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string
}

// Run launches the migration process.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.DBType == "" {
		return fmt.Errorf("migrate: db type is required")
	}
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("migrate: couldn't create: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("migrate: couldn't start: %w", err)
	}
	defer func() { _ = store.Stop() }()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: couldn't migrate: %w", err)
	}
	v, err := store.Version(ctx)
	if err != nil {
		return fmt.Errorf("migrate: couldn't get version: %w", err)
	}
	log.Printf("migrate: database at version %d\n", v)
	return nil
}
