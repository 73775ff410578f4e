package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "nexusvision.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDoctorReportsProviderFailureWithoutCredentials(t *testing.T) {
	path := writeTestConfig(t, `
llm:
  default_provider: anthropic
  providers:
    anthropic: {}
`)

	cmd := buildDoctorCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("doctor command returned an error: %v", err)
	}

	if !strings.Contains(out.String(), `provider "anthropic": FAILED`) {
		t.Fatalf("expected a FAILED provider report, got:\n%s", out.String())
	}
}

func TestDoctorFailsOnInvalidConfig(t *testing.T) {
	path := writeTestConfig(t, `
server:
  not_a_real_field: true
`)

	cmd := buildDoctorCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for a config file with unknown fields")
	}
}
