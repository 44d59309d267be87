package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/probelab/headnotes/internal/domain/project"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "export [file]",
		Short:         "Write the annotation document as JSON to a file or stdout",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc, cleanup, err := newService(cfg, newLogger(rootOpts))
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := svc.Document(cmd.Context())
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("encode document: %w", err)
			}
			data = append(data, '\n')

			if len(args) == 0 {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(args[0], data, 0o644)
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "import <file>",
		Short:         "Replace the annotation document from an exported JSON file",
		Long:          "Replace the document's annotations and tags with the file's content. The document's creation time is preserved and the imported copy becomes the newest version.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			imported, err := project.ParseImportFile(data)
			if err != nil {
				return fmt.Errorf("%s is not a valid export: %w", args[0], err)
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

			doc, err := svc.Apply(cmd.Context(), project.ImportFile{Doc: imported})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d annotation(s), %d tag(s)\n", len(doc.Annotations), len(doc.Tags))
			return nil
		},
	}
}
