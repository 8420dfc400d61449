package core

import (
	"context"
	"fmt"

	"kittycore/internal/infra/persistence/memory"
	"kittycore/internal/infra/persistence/postgres"
	"kittycore/internal/infra/persistence/sqlite"
	"kittycore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and parameterises the ledger backend.
type StorageConfig struct {
	Driver         StorageDriver
	SQLitePath     string
	PostgresDSN    string
	EventRetention int
}

// OpenPersistentStore opens the backend named by cfg. The returned close
// function releases database handles and is safe to call for memory stores.
// An empty driver selects sqlite.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, engine *domain.RulesEngine) (domain.PersistentStore, func() error, error) {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	var opts []memory.Option
	if cfg.EventRetention > 0 {
		opts = append(opts, memory.WithEventRetention(cfg.EventRetention))
	}
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine, opts...), func() error { return nil }, nil
	case StorageSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath, engine, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, engine, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
