package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.apiClient().Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("daemon unreachable at %s: %w", ctx.configValue().Client.APIURL, err)
			}
			if asJSON {
				return writeJSON(cmd, status)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			for _, line := range renderSectionHeader("Daemon Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, renderField("Running", yesNo(status.Running)))
			fmt.Fprintln(stdout, renderField("PID", strconv.Itoa(status.PID)))
			fmt.Fprintln(stdout, renderField("Database", status.DBPath))
			fmt.Fprintln(stdout, renderField("Configurations", strconv.Itoa(status.Configurations)))
			fmt.Fprintln(stdout, renderField("Active executions", strconv.Itoa(status.ActiveExecutions)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw JSON instead of formatted output")
	return cmd
}
