package main

import (
	"strings"
	"testing"
)

func startTestExecution(t *testing.T, env *cliTestEnv) string {
	t.Helper()

	out, _, err := runCLI(t, env, "create", "exec-test")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	configID := extractParenthesized(t, out)

	out, _, err = runCLI(t, env, "start", configID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "started")

	fields := strings.Fields(out)
	if len(fields) < 2 {
		t.Fatalf("unexpected start output %q", out)
	}
	return fields[1]
}

func TestExecutionLifecycleCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	executionID := startTestExecution(t, env)

	out, _, err := runCLI(t, env, "pause", executionID)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	requireContains(t, out, "paused")

	out, _, err = runCLI(t, env, "resume", executionID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	requireContains(t, out, "resumed")

	out, _, err = runCLI(t, env, "stop", executionID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "stopped")
}

func TestRunStepCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	executionID := startTestExecution(t, env)

	out, _, err := runCLI(t, env, "run", executionID, "extraction")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Step extraction queued")

	out, _, err = runCLI(t, env, "run-from", executionID, "analysis")
	if err != nil {
		t.Fatalf("run-from: %v", err)
	}
	requireContains(t, out, "restarting from step analysis")
}

func TestInspectCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	executionID := startTestExecution(t, env)

	out, _, err := runCLI(t, env, "inspect", executionID)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, executionID)
	requireContains(t, out, "running")
	requireContains(t, out, "extraction")

	if _, _, err := runCLI(t, env, "inspect", "missing"); err == nil {
		t.Fatal("expected inspect of unknown execution to fail")
	}
}

func TestExecutionCommandsRejectUnknownID(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "pause", "missing"); err == nil {
		t.Fatal("expected pause of unknown execution to fail")
	}
	if _, _, err := runCLI(t, env, "run", "missing", "extraction"); err == nil {
		t.Fatal("expected run on unknown execution to fail")
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "create", "status-test"); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Daemon Status")
	requireContains(t, out, "Configurations")
	requireContains(t, out, "1")
}
