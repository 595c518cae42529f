package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/oregrid/facility-cli/internal/config"
	"github.com/oregrid/facility-cli/internal/registry"
	"github.com/oregrid/facility-cli/internal/resilience"
	"github.com/oregrid/facility-cli/internal/store"
	registryclient "github.com/oregrid/facility-cli/pkg/registry"
)

// openFacilityStore opens the facility record file store.
func openFacilityStore(cfg *config.Config) (*store.FileStore, error) {
	fs, err := store.NewFileStore(cfg.Store.FacilityDir)
	if err != nil {
		return nil, eris.Wrap(err, "open facility store")
	}
	return fs, nil
}

// openRelationshipStore opens and migrates the configured relationship store.
func openRelationshipStore(ctx context.Context, cfg *config.Config) (store.RelationshipStore, error) {
	var rels store.RelationshipStore
	switch cfg.Store.Driver {
	case "sqlite", "":
		s, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(resilience.ErrStorage, err.Error())
		}
		rels = s
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(resilience.ErrStorage, err.Error())
		}
		rels = s
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if err := rels.Migrate(ctx); err != nil {
		rels.Close()
		return nil, eris.Wrap(resilience.ErrStorage, err.Error())
	}
	return rels, nil
}

// openRegistry builds the configured canonical-company registry backend.
func openRegistry(cfg *config.Config) (registry.Registry, error) {
	switch cfg.Registry.Mode {
	case "snapshot", "":
		snap, err := registry.LoadSnapshot(cfg.Registry.SnapshotPath)
		if err != nil {
			return nil, eris.Wrap(resilience.ErrInput, err.Error())
		}
		return snap, nil
	case "http":
		return registryclient.NewClient(registryclient.Options{
			BaseURL:           cfg.Registry.BaseURL,
			APIKey:            cfg.Registry.APIKey,
			Timeout:           time.Duration(cfg.Registry.TimeoutSecs) * time.Second,
			RequestsPerSecond: cfg.Registry.RateLimit,
			Retry: resilience.RetryConfig{
				MaxAttempts: cfg.Registry.MaxAttempts,
			},
		}), nil
	default:
		return nil, eris.Errorf("unknown registry mode %q", cfg.Registry.Mode)
	}
}
