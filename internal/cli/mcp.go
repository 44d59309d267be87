package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/probelab/headnotes/internal/mcp"
)

// NewMCPCommand creates the mcp command.
func NewMCPCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "mcp",
		Short:         "Serve the annotation tools over MCP stdio",
		Long:          "Serve the annotation document as MCP tools on stdin/stdout, for agent clients. Logs go to stderr to keep stdout clean for JSON-RPC.",
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

			server := mcp.NewServer(mcp.Config{
				Store: store,
				Defaults: mcp.Defaults{
					ModelName: cfg.Sync.ModelName,
					NumLayers: cfg.Sync.NumLayers,
					NumHeads:  cfg.Sync.NumHeads,
				},
				Logger: logger,
			})

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-stop
				logger.Info("shutting down")
				cancel()
			}()

			return server.Run(ctx, &sdkmcp.StdioTransport{})
		},
	}
}
