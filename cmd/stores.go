package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/account"
	"github.com/sells-group/leadflow/internal/canonical"
	"github.com/sells-group/leadflow/internal/consolidate"
	"github.com/sells-group/leadflow/internal/db"
	"github.com/sells-group/leadflow/internal/event"
	"github.com/sells-group/leadflow/internal/intake"
	"github.com/sells-group/leadflow/internal/staging"
)

// storeEnv holds the driver-specific stores and the components built on them.
type storeEnv struct {
	Accounts account.Source
	Events   event.Writer
	Staged   staging.Repository
	Canon    canonical.Store
	Intake   *intake.Handler
	Engine   *consolidate.Engine

	pool *pgxpool.Pool
	sdb  *sql.DB
}

// Close releases database handles.
func (e *storeEnv) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.sdb != nil {
		_ = e.sdb.Close()
	}
}

// initStores builds the persistence layer for the configured driver and runs
// migrations. Callers should defer env.Close().
func initStores(ctx context.Context) (*storeEnv, error) {
	env := &storeEnv{}

	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, &db.PoolConfig{
			MaxConns: int32(cfg.Store.MaxConns),
			MinConns: int32(cfg.Store.MinConns),
		})
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		env.pool = pool
		env.Events = event.NewPostgresStore(pool)
		env.Staged = staging.NewPostgresRepository(pool)
		env.Canon = canonical.NewPostgresStore(pool)
		if cfg.Accounts.RegistryPath != "" {
			env.Accounts = account.NewRegistry(cfg.Accounts.RegistryPath)
		} else {
			env.Accounts = account.NewPostgresSource(pool)
		}

	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadflow.db"
		}
		sdb, err := db.OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := db.MigrateSQLite(ctx, sdb); err != nil {
			sdb.Close()
			return nil, err
		}
		env.sdb = sdb
		env.Events = event.NewSQLiteStore(sdb)
		env.Staged = staging.NewSQLiteRepository(sdb)
		env.Canon = canonical.NewSQLiteStore(sdb)
		env.Accounts = account.NewRegistry(cfg.Accounts.RegistryPath)

	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}

	env.Intake = intake.NewHandler(env.Accounts, env.Events, env.Staged).
		WithStorageTimeout(time.Duration(cfg.Intake.StorageTimeoutSecs) * time.Second)
	env.Engine = consolidate.NewEngine(env.Staged, env.Canon, canonical.NewResolver(cfg.Consolidate.TerminalStatuses)).
		WithConcurrency(cfg.Consolidate.Concurrency)

	return env, nil
}
