package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateListShowRoundTrip(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "create", "nightly conversion")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	requireContains(t, out, "Created configuration")
	configID := extractParenthesized(t, out)

	out, _, err = runCLI(t, env, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "nightly conversion")
	requireContains(t, out, configID)

	out, _, err = runCLI(t, env, "show", configID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "nightly conversion")
	requireContains(t, out, "extraction")
	requireContains(t, out, "validation")
	requireContains(t, out, "pending")
}

func TestListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "No configurations stored")
}

func TestShowUnknownConfiguration(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "show", "missing"); err == nil {
		t.Fatal("expected show of unknown configuration to fail")
	}
}

func TestListJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "create", "json-run"); err != nil {
		t.Fatalf("create: %v", err)
	}
	out, _, err := runCLI(t, env, "list", "--json")
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "[") {
		t.Fatalf("expected JSON array, got %q", out)
	}
	requireContains(t, out, `"json-run"`)
}

func TestImportFromYAML(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	doc := `name: imported pipeline
steps:
  - id: Extraction
    payload:
      continueOnError: true
  - id: generation
    name: Code Generation
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	out, _, err := runCLI(t, env, "import", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, `Imported configuration "imported pipeline"`)
	requireContains(t, out, "2 steps")

	configID := extractParenthesized(t, out)
	out, _, err = runCLI(t, env, "show", configID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "extraction")
	requireContains(t, out, "Code Generation")
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("name: no steps here\n"), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	if _, _, err := runCLI(t, env, "import", path); err == nil {
		t.Fatal("expected import of step-less document to fail")
	}
}
