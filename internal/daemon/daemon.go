package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"conveyor/internal/config"
	"conveyor/internal/configstore"
	"conveyor/internal/logging"
)

const defaultHubCapacity = 512

// Daemon owns the configuration store, the execution registry, and the API
// server lifecycle.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	configs    *configstore.Store
	executions *Registry

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status reports daemon runtime information.
type Status struct {
	Running          bool
	PID              int
	DBPath           string
	LockFilePath     string
	Configurations   int
	ActiveExecutions int
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, configs *configstore.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || configs == nil {
		return nil, errors.New("daemon requires config and configuration store")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "conveyord.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		configs:    configs,
		executions: NewRegistry(defaultHubCapacity),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}

	d.api = newAPIServer(cfg, d, d.logger)
	return d, nil
}

// Start acquires the daemon lock and brings the API server up.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another conveyor daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("conveyor daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API server down and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("conveyor daemon stopped")
}

// Handler exposes the HTTP API without binding a listener. Callers that
// embed the daemon, and tests, mount it on their own server.
func (d *Daemon) Handler() http.Handler {
	return d.api.router()
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.configs != nil {
		return d.configs.Close()
	}
	return nil
}

// Status returns current daemon health.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:          d.running.Load(),
		PID:              os.Getpid(),
		DBPath:           d.configs.Path(),
		LockFilePath:     d.lockPath,
		ActiveExecutions: d.executions.ActiveCount(),
	}
	if configs, err := d.configs.List(ctx); err == nil {
		status.Configurations = len(configs)
	}
	return status
}
