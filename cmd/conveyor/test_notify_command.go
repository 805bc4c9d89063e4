package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"conveyor/internal/notify"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the configured channels",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger := ctx.cliLogger()

			notifier := notify.NewService(cfg, logger)
			sink := notify.NewNtfySink(cfg, logger)
			if sink != nil {
				defer sink.Attach(notifier)()
			}

			// Pipeline category so the forwarding filters admit it.
			notifier.Info(notify.Options{
				Category: notify.CategoryPipeline,
				Title:    "Conveyor Test",
				Message:  "Notifications are working",
			})

			out := cmd.OutOrStdout()
			if sink == nil {
				fmt.Fprintln(out, "Test notification shown locally (no ntfy topic configured)")
				return nil
			}
			fmt.Fprintf(out, "Test notification forwarded to ntfy topic %q\n", cfg.Notifications.NtfyTopic)
			return nil
		},
	}
}
