package main

import (
	"log/slog"
	"path/filepath"
	"strings"

	"conveyor/internal/config"
	"conveyor/internal/logging"
)

// newLogger builds the daemon logger from config: stdout plus a log file
// under the configured log directory.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	outputs := []string{"stdout"}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, err
		}
		outputs = append(outputs, filepath.Join(dir, "conveyord.log"))
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}
