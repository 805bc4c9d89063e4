package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"conveyor/internal/api"
	"conveyor/internal/pipeline"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <execution-id>",
		Short: "Show the daemon's view of one execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			execution, err := ctx.apiClient().GetExecution(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, execution)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			for _, line := range renderSectionHeader("Execution "+execution.ID, colorize) {
				fmt.Fprintln(stdout, line)
			}
			status := colorizeStatus(string(execution.Status), runStatusColor(execution.Status), colorize)
			fmt.Fprintln(stdout, renderField("Status", status))
			fmt.Fprintln(stdout, renderField("Configuration", execution.ConfigurationID))
			fmt.Fprintln(stdout, renderField("Current step", formatStepIndex(execution)))
			fmt.Fprintln(stdout)
			fmt.Fprintln(stdout, renderSummaryTable(execution.Steps, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON instead of formatted output")
	return cmd
}

// formatStepIndex names the step the execution sits at. The index lands one
// past the end when every step has finished.
func formatStepIndex(execution *api.ExecutionState) string {
	if execution.CurrentStepIndex < 0 {
		return "none"
	}
	if execution.CurrentStepIndex >= len(execution.Steps) {
		return "done"
	}
	step := execution.Steps[execution.CurrentStepIndex]
	return fmt.Sprintf("%d (%s)", execution.CurrentStepIndex+1, step.ID)
}

func renderSummaryTable(steps []pipeline.StepSummary, colorize bool) string {
	rows := make([][]string, 0, len(steps))
	for i, step := range steps {
		status := colorizeStatus(string(step.Status), stepStatusColor(step.Status), colorize)
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			step.ID,
			step.Name,
			status,
			formatProgress(step.Progress),
			strconv.Itoa(step.Warnings),
			strconv.Itoa(step.Errors),
		})
	}
	return renderTable([]string{"#", "Step", "Name", "Status", "Progress", "Warn", "Err"}, rows, 0, 4, 5, 6)
}
