package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExecutionCommands(ctx *commandContext) []*cobra.Command {
	pauseCmd := &cobra.Command{
		Use:   "pause <execution-id>",
		Short: "Pause a running execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.apiClient().PauseExecution(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Execution %s paused\n", args[0])
			return nil
		},
	}

	resumeCmd := &cobra.Command{
		Use:   "resume <execution-id>",
		Short: "Resume a paused execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.apiClient().ResumeExecution(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Execution %s resumed\n", args[0])
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop <execution-id>",
		Short: "Stop an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.apiClient().StopExecution(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Execution %s stopped\n", args[0])
			return nil
		},
	}

	runStepCmd := &cobra.Command{
		Use:   "run <execution-id> <step-id>",
		Short: "Re-run a single step of an execution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.apiClient().RunStep(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Step %s queued on execution %s\n", args[1], args[0])
			return nil
		},
	}

	runFromCmd := &cobra.Command{
		Use:   "run-from <execution-id> <step-id>",
		Short: "Re-run an execution from a step onward",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.apiClient().RunFromStep(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Execution %s restarting from step %s\n", args[0], args[1])
			return nil
		},
	}

	return []*cobra.Command{pauseCmd, resumeCmd, stopCmd, runStepCmd, runFromCmd}
}
