package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probelab/headnotes/internal/domain/project"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:           "reset",
		Short:         "Clear all annotations and tags, keeping the grid configuration",
		Long:          "Replace the document with a fresh empty one keeping the model name and grid dimensions. Requires --force.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("reset discards every annotation and tag; re-run with --force")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, cleanup, err := newService(cfg, newLogger(rootOpts))
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := svc.Apply(cmd.Context(), project.Reset{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %s (%dx%d)\n", doc.ModelName, doc.NumLayers, doc.NumHeads)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm that the document should be cleared")
	return cmd
}
