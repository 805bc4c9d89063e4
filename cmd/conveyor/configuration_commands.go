package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"conveyor/internal/pipeline"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored pipeline configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			configurations, err := ctx.apiClient().ListConfigurations(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, configurations)
			}
			if len(configurations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No configurations stored")
				return nil
			}

			rows := make([][]string, 0, len(configurations))
			for _, cfg := range configurations {
				rows = append(rows, []string{
					cfg.ID,
					cfg.Name,
					strconv.Itoa(len(cfg.Steps)),
					strconv.FormatInt(cfg.Version, 10),
					cfg.UpdatedAt.Local().Format(time.RFC3339),
				})
			}
			out := renderTable([]string{"ID", "Name", "Steps", "Version", "Updated"}, rows, 2, 3)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON instead of a table")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <configuration-id>",
		Short: "Show one configuration and its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configuration, err := ctx.apiClient().GetConfiguration(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, configuration)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			for _, line := range renderSectionHeader(configuration.Name, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderField("ID", configuration.ID))
			fmt.Fprintln(stdout, renderField("Version", strconv.FormatInt(configuration.Version, 10)))
			fmt.Fprintln(stdout, renderField("Updated", configuration.UpdatedAt.Local().Format(time.RFC3339)))
			fmt.Fprintln(stdout)
			fmt.Fprintln(stdout, renderStepTable(configuration.Steps, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON instead of a table")
	return cmd
}

func renderStepTable(steps []pipeline.Step, colorize bool) string {
	summaries := make([]pipeline.StepSummary, len(steps))
	for i, step := range steps {
		summaries[i] = step.Summarize()
	}
	return renderSummaryTable(summaries, colorize)
}
