package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/probelab/headnotes/internal/localcache"
	"github.com/probelab/headnotes/internal/sync"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the sync engine against the configured backend",
		Long: `Run the sync engine headless. The engine keeps the local cache file and
the configured backend reconciled: local edits (including external writes to
the cache file) are debounced and pushed, remote changes are polled and
adopted. Stop with Ctrl-C.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(rootOpts)

			store, cleanup, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			cache := localcache.New(cfg.Store.CachePath)
			engine := sync.NewEngine(sync.Config{
				ModelName:          cfg.Sync.ModelName,
				NumLayers:          cfg.Sync.NumLayers,
				NumHeads:           cfg.Sync.NumHeads,
				LocalSaveDebounce:  cfg.Sync.LocalSaveDebounce,
				RemoteSaveDebounce: cfg.Sync.RemoteSaveDebounce,
				PollInterval:       cfg.Sync.PollInterval,
			}, cache, store, logger)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			engine.Start(ctx)
			defer engine.Stop()
			logger.Info("sync engine started",
				"backend", cfg.Store.Backend,
				"cache", cfg.Store.CachePath,
				"lastSeenRemote", engine.LastSeenRemote())

			// Another process editing the cache file counts as a local edit;
			// re-read it and push the content through the engine.
			watchErr := cache.Watch(ctx, logger, func() {
				doc, err := cache.Load(ctx)
				if err != nil {
					logger.Warn("failed to reload cache after external write", "error", err)
					return
				}
				engine.Dispatch(project.ImportFile{Doc: doc})
				engine.Resume()
			})
			if watchErr != nil {
				logger.Warn("cache watcher unavailable", "error", watchErr)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Syncing. Press Ctrl-C to stop.")

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop
			fmt.Fprintln(cmd.OutOrStdout(), "Stopping.")
			return nil
		},
	}
}
