package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/probelab/headnotes/internal/domain/project"
)

// NewAnnotateCommand creates the annotate command group.
func NewAnnotateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Manage per-head annotations",
	}
	cmd.AddCommand(newAnnotateSetCommand(rootOpts))
	cmd.AddCommand(newAnnotateRmCommand(rootOpts))
	cmd.AddCommand(newAnnotateShowCommand(rootOpts))
	return cmd
}

func newAnnotateSetCommand(rootOpts *RootOptions) *cobra.Command {
	var tags []string
	var descs []string

	cmd := &cobra.Command{
		Use:   "set <layer> <head>",
		Short: "Create or replace the annotation for one head",
		Long: `Create or replace the annotation for one head.

Example:
  headnotes annotate set 2 5 --tag reasoning/causal --desc reasoning/causal="tracks cause-effect pairs"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			layer, head, err := parseHeadArgs(args)
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				return fmt.Errorf("at least one --tag is required; untagged annotations are dropped")
			}
			descriptions, err := parseDescs(descs)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if layer < 0 || layer >= cfg.Sync.NumLayers || head < 0 || head >= cfg.Sync.NumHeads {
				return fmt.Errorf("head %s is outside the %dx%d grid",
					project.HeadKey(layer, head), cfg.Sync.NumLayers, cfg.Sync.NumHeads)
			}
			svc, cleanup, err := newService(cfg, newLogger(rootOpts))
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := svc.Apply(cmd.Context(), project.UpsertAnnotation{Annotation: project.Annotation{
				Layer:        layer,
				Head:         head,
				Tags:         tags,
				Descriptions: descriptions,
			}})
			if err != nil {
				return err
			}
			ann := doc.Annotations[project.HeadKey(layer, head)]
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", project.HeadKey(layer, head), strings.Join(ann.Tags, ", "))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag for this head, repeatable (major or major/minor)")
	cmd.Flags().StringArrayVar(&descs, "desc", nil, "per-tag note as tag=text, repeatable")
	return cmd
}

func newAnnotateRmCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <layer> <head>",
		Short:         "Remove the annotation for one head",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			layer, head, err := parseHeadArgs(args)
			if err != nil {
				return err
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

			if _, err := svc.Apply(cmd.Context(), project.DeleteAnnotation{Layer: layer, Head: head}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", project.HeadKey(layer, head))
			return nil
		},
	}
}

func newAnnotateShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "List all annotated heads",
		Args:          cobra.NoArgs,
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

			keys := make([]string, 0, len(doc.Annotations))
			for key := range doc.Annotations {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				ann := doc.Annotations[key]
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", key, strings.Join(ann.Tags, ", "))
				for _, tag := range ann.Tags {
					if desc, ok := ann.Descriptions[tag]; ok && desc != "" {
						fmt.Fprintf(cmd.OutOrStdout(), "    %s: %s\n", tag, desc)
					}
				}
			}
			return nil
		},
	}
}

func parseHeadArgs(args []string) (int, int, error) {
	layer, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid layer %q", args[0])
	}
	head, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid head %q", args[1])
	}
	return layer, head, nil
}

func parseDescs(descs []string) (map[string]string, error) {
	if len(descs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(descs))
	for _, d := range descs {
		tag, text, ok := strings.Cut(d, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --desc %q, expected tag=text", d)
		}
		out[tag] = text
	}
	return out, nil
}
