// Command conveyord runs the conveyor pipeline daemon: it stores
// configurations, tracks executions, ingests executor progress, and serves
// the HTTP and update-stream API that the conveyor CLI consumes.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"conveyor/internal/config"
	"conveyor/internal/configstore"
	"conveyor/internal/daemon"
	"conveyor/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	configs, err := configstore.Open(cfg)
	if err != nil {
		logger.Error("open configuration store", logging.Error(err))
		return
	}

	d, err := daemon.New(cfg, configs, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = configs.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("conveyord shutting down")
}
