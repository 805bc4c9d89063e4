// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"conveyor/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := &config.Config{}
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Client.APIURL = "http://127.0.0.1:0"
	cfg.Client.PrefsPath = filepath.Join(base, "prefs.json")
	cfg.Notifications.Pipeline = true
	cfg.Notifications.Steps = true
	cfg.Notifications.Errors = true
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "debug"

	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfg
}

// WithNtfyTopic points the notification sink at a test server.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
	}
}

// WithAPIURL points the client at a test server.
func WithAPIURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Client.APIURL = url
	}
}
