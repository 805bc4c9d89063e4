package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"conveyor/internal/bridge"
	"conveyor/internal/logging"
	"conveyor/internal/notify"
	"conveyor/internal/pipeline"
	"conveyor/internal/prefs"
	"conveyor/internal/store"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "start <configuration-id>",
		Short: "Start a pipeline execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !follow {
				executionID, err := ctx.apiClient().StartExecution(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Execution %s started\n", executionID)
				return nil
			}
			return runFollowedExecution(cmd, ctx, args[0])
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stay attached and stream step progress until the run ends")
	return cmd
}

// runFollowedExecution drives a full client session: the state container
// loads the configuration and starts the run, the notification bridge turns
// state events into notices, and the command prints progress until the
// pipeline reaches a terminal state or the user interrupts.
func runFollowedExecution(cmd *cobra.Command, ctx *commandContext, configID string) error {
	runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := ctx.configValue()
	logger := ctx.cliLogger()
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	st := store.New(ctx.apiClient(), logger)

	prefsStore := prefs.NewStore(cfg.Client.PrefsPath, logger)
	if state, err := prefsStore.Load(); err == nil {
		st.Hydrate(state)
	}
	defer func() {
		if err := prefsStore.Save(st.PersistedState()); err != nil {
			logger.Warn("persist client preferences", logging.Error(err))
		}
	}()

	notifier := notify.NewService(cfg, logger)
	if sink := notify.NewNtfySink(cfg, logger); sink != nil {
		defer sink.Attach(notifier)()
	}
	defer notifier.Subscribe(func(n notify.Notification) {
		fmt.Fprintf(stdout, "%s: %s\n", n.Title, n.Message)
	})()

	br := bridge.New(st, notifier, cfg, logger)
	br.Start()
	defer br.Stop()

	done := make(chan store.Event, 1)
	defer st.Watch(func(event store.Event) {
		switch event.Kind {
		case store.EventStepUpdated:
			if step, ok := st.Step(event.StepID); ok {
				printStepProgress(stdout, step, colorize)
			}
		case store.EventPipelineCompleted, store.EventPipelineFailed, store.EventPipelineStopped:
			select {
			case done <- event:
			default:
			}
		}
	})()

	if err := st.LoadConfiguration(runCtx, configID); err != nil {
		return err
	}
	if err := st.StartPipeline(runCtx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Execution %s started\n", st.ExecutionID())

	select {
	case <-runCtx.Done():
		// Leave the run going on the daemon; only detach the stream.
		st.DisconnectFromUpdates()
		fmt.Fprintln(stdout, "Detached; execution continues on the daemon")
		return context.Cause(runCtx)
	case event := <-done:
		st.DisconnectFromUpdates()
		switch event.Kind {
		case store.EventPipelineFailed:
			return fmt.Errorf("pipeline failed at step %s", event.StepName)
		case store.EventPipelineStopped:
			fmt.Fprintln(stdout, "Pipeline stopped")
		default:
			fmt.Fprintln(stdout, "Pipeline completed")
		}
		return nil
	}
}

func printStepProgress(out io.Writer, step pipeline.Step, colorize bool) {
	status := colorizeStatus(string(step.Status), stepStatusColor(step.Status), colorize)
	fmt.Fprintf(out, "  %-14s %-12s %s\n", step.Name, status, formatProgress(step.Progress))
}
