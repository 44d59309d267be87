package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/probelab/headnotes/internal/config"
	"github.com/probelab/headnotes/internal/filestore"
	"github.com/probelab/headnotes/internal/mcp"
	"github.com/probelab/headnotes/internal/remote"
	"github.com/probelab/headnotes/internal/repository"
	"github.com/probelab/headnotes/internal/sqlite"
	"github.com/probelab/headnotes/migrations"
)

// openStore opens the configured document backend. The returned cleanup
// must be called before exit.
func openStore(cfg config.Config) (repository.DocumentStore, func(), error) {
	switch cfg.Store.Backend {
	case "remote":
		return remote.New(cfg.Store.RemoteURL, cfg.Server.Secret), func() {}, nil
	case "file":
		return filestore.New(cfg.Store.Path), func() {}, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Store.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("prepare database path: %w", err)
			}
		}
		db, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		data, err := migrations.FS.ReadFile("001_initial_schema.up.sql")
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("read migrations: %w", err)
		}
		if _, err := db.Exec(string(data)); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		return sqlite.NewDocumentStore(db), func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// newService wires a document service over the configured backend.
func newService(cfg config.Config, logger *slog.Logger) (*mcp.Service, func(), error) {
	store, cleanup, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := mcp.NewService(store, mcp.Defaults{
		ModelName: cfg.Sync.ModelName,
		NumLayers: cfg.Sync.NumLayers,
		NumHeads:  cfg.Sync.NumHeads,
	}, logger)
	return svc, cleanup, nil
}
