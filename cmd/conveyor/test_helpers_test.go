package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"conveyor/internal/config"
	"conveyor/internal/configstore"
	"conveyor/internal/daemon"
	"conveyor/internal/logging"
	"conveyor/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *httptest.Server
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t)

	configs, err := configstore.Open(cfg)
	if err != nil {
		t.Fatalf("open configuration store: %v", err)
	}
	d, err := daemon.New(cfg, configs, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	server := httptest.NewServer(d.Handler())
	cfg.Client.APIURL = server.URL

	configPath := filepath.Join(homeDir, ".config", "conveyor", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		server:     server,
		configPath: configPath,
	}

	t.Cleanup(func() {
		server.Close()
		_ = d.Close()
	})

	return env
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
api_bind = %q

[client]
api_url = %q
prefs_path = %q

[logging]
format = "console"
level = "warn"
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Client.APIURL,
		cfg.Client.PrefsPath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// extractParenthesized pulls the id out of lines like
// `Created configuration "x" (id) with 6 steps`.
func extractParenthesized(t *testing.T, output string) string {
	t.Helper()
	open := strings.Index(output, "(")
	end := strings.Index(output, ")")
	if open < 0 || end < open {
		t.Fatalf("no parenthesized id in output %q", output)
	}
	return output[open+1 : end]
}
