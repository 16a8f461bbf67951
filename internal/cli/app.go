package cli

import (
	"fmt"

	"github.com/prepflow-labs/prepflow/internal/blob"
	"github.com/prepflow-labs/prepflow/internal/pipeline"
	"github.com/prepflow-labs/prepflow/internal/state"
	"github.com/prepflow-labs/prepflow/internal/transform"
	"github.com/prepflow-labs/prepflow/internal/version"
)

// app bundles the wired services for one command invocation.
type app struct {
	store    *state.SQLiteStore
	engine   *transform.Engine
	versions *version.Service
	runner   *pipeline.Runner
}

// openApp opens the state database, runs migrations, and wires the
// engine and version service. Callers must call close.
func openApp() (*app, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}

	blobs, err := blob.NewFSStore(cfg.BlobDir)
	if err != nil {
		store.Close()
		return nil, err
	}

	engine := transform.NewEngine(logger)
	versions := version.NewService(store, blobs, logger)

	return &app{
		store:    store,
		engine:   engine,
		versions: versions,
		runner:   pipeline.NewRunner(engine, versions, logger),
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
}
