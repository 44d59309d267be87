package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probelab/headnotes/internal/domain/project"
)

// NewTagCommand creates the tag command group.
func NewTagCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage the project's tag list",
	}
	cmd.AddCommand(newTagAddCommand(rootOpts))
	cmd.AddCommand(newTagRmCommand(rootOpts))
	cmd.AddCommand(newTagMvCommand(rootOpts))
	return cmd
}

func newTagAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <tag>",
		Short:         "Add a tag (major or major/minor) to the project",
		Args:          cobra.ExactArgs(1),
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

			if _, err := svc.Apply(cmd.Context(), project.AddTag{Tag: args[0]}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q\n", project.NormalizeTag(args[0]))
			return nil
		},
	}
}

func newTagRmCommand(rootOpts *RootOptions) *cobra.Command {
	var topic bool

	cmd := &cobra.Command{
		Use:           "rm <tag>",
		Short:         "Remove a tag from the project and every annotation",
		Long:          "Remove a tag everywhere it appears. With --topic the argument names a major tag and the whole topic, including all its minors, is removed.",
		Args:          cobra.ExactArgs(1),
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

			var action project.Action
			if topic {
				action = project.DeleteTopic{Major: args[0]}
			} else {
				action = project.RemoveTag{Tag: args[0]}
			}
			if _, err := svc.Apply(cmd.Context(), action); err != nil {
				return err
			}
			if topic {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted topic %q\n", project.NormalizeTopic(args[0]))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %q\n", project.NormalizeTag(args[0]))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&topic, "topic", false, "treat the argument as a major tag and remove the whole topic")
	return cmd
}

func newTagMvCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "mv <major/minor> <new-major>",
		Short:         "Move a minor tag under a different major everywhere",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, minor := project.SplitTag(project.NormalizeTag(args[0])); minor == "" {
				return fmt.Errorf("%q has no minor part; only major/minor tags can be moved", args[0])
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

			doc, err := svc.Apply(cmd.Context(), project.ReparentTag{Tag: args[0], NewMajor: args[1]})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Now tracking %d tag(s)\n", len(doc.Tags))
			return nil
		},
	}
}
