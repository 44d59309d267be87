package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/probelab/headnotes/internal/domain/project"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status",
		Short:         "Show a summary of the annotation document",
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

			if rootOpts.Format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(statusSummary(doc))
			}
			printStatus(cmd, doc)
			return nil
		},
	}
}

type statusOutput struct {
	ModelName   string         `json:"modelName"`
	NumLayers   int            `json:"numLayers"`
	NumHeads    int            `json:"numHeads"`
	Annotations int            `json:"annotations"`
	Tags        int            `json:"tags"`
	Topics      map[string]int `json:"topics"`
	UpdatedAt   string         `json:"updatedAt"`
}

func statusSummary(doc *project.Project) statusOutput {
	topics := map[string]int{}
	for _, tag := range doc.Tags {
		major, _ := project.SplitTag(tag)
		topics[major]++
	}
	return statusOutput{
		ModelName:   doc.ModelName,
		NumLayers:   doc.NumLayers,
		NumHeads:    doc.NumHeads,
		Annotations: len(doc.Annotations),
		Tags:        len(doc.Tags),
		Topics:      topics,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func printStatus(cmd *cobra.Command, doc *project.Project) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model:       %s (%d layers x %d heads)\n", doc.ModelName, doc.NumLayers, doc.NumHeads)
	fmt.Fprintf(out, "Annotations: %d\n", len(doc.Annotations))
	fmt.Fprintf(out, "Tags:        %d\n", len(doc.Tags))
	if doc.UpdatedAt != "" {
		fmt.Fprintf(out, "Updated:     %s\n", doc.UpdatedAt)
	} else {
		fmt.Fprintln(out, "Updated:     never (empty document)")
	}

	summary := statusSummary(doc)
	majors := make([]string, 0, len(summary.Topics))
	for major := range summary.Topics {
		majors = append(majors, major)
	}
	sort.Strings(majors)
	for _, major := range majors {
		fmt.Fprintf(out, "  %s: %d tag(s)\n", major, summary.Topics[major])
	}
}
