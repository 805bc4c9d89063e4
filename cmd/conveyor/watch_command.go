package main

import (
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"conveyor/internal/client"
	"conveyor/internal/pipeline"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <execution-id>",
		Short: "Stream live step updates for an execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			streamCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			err := ctx.apiClient().SubscribeUpdates(streamCtx, args[0], func(update pipeline.StepUpdate) {
				printUpdate(stdout, update, colorize)
			})
			if errors.Is(err, client.ErrStreamClosed) {
				fmt.Fprintln(stdout, "Stream ended; execution is no longer publishing updates")
				return nil
			}
			return err
		},
	}
}

func printUpdate(out io.Writer, update pipeline.StepUpdate, colorize bool) {
	status := colorizeStatus(string(update.Status), stepStatusColor(update.Status), colorize)
	fmt.Fprintf(out, "%6d  %-14s %-12s %s\n", update.Sequence, update.StepID, status, formatProgress(update.Progress))
	for _, line := range update.Logs {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			fmt.Fprintf(out, "        %s\n", trimmed)
		}
	}
}
