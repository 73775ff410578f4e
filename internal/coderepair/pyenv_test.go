package coderepair

import (
	"context"
	"testing"
)

func TestNewPyEnv_Defaults(t *testing.T) {
	env := NewPyEnv()
	if env.PythonPath != "python3" {
		t.Fatalf("expected python3, got %q", env.PythonPath)
	}
	if env.PipPath != "pip3" {
		t.Fatalf("expected pip3, got %q", env.PipPath)
	}
}

func TestPyEnv_NameExists_RejectsEmptyName(t *testing.T) {
	env := &PyEnv{PythonPath: "python3", PipPath: "pip3"}
	if env.NameExists(context.Background(), "") {
		t.Fatalf("expected an empty name to never resolve")
	}
}

func TestPyEnv_NameExists_MissingInterpreterFails(t *testing.T) {
	env := &PyEnv{PythonPath: "/no/such/python-binary", PipPath: "pip3"}
	if env.NameExists(context.Background(), "os.path") {
		t.Fatalf("expected a missing interpreter to report no resolution")
	}
}

func TestPyEnv_InstalledPackages_MissingPipReturnsNil(t *testing.T) {
	env := &PyEnv{PythonPath: "python3", PipPath: "/no/such/pip-binary"}
	if pkgs := env.InstalledPackages(context.Background()); pkgs != nil {
		t.Fatalf("expected nil package list when pip is unavailable, got %v", pkgs)
	}
}

func TestPyEnv_Install_NoopForEmptyList(t *testing.T) {
	env := &PyEnv{PythonPath: "python3", PipPath: "/no/such/pip-binary"}
	if err := env.Install(context.Background(), nil); err != nil {
		t.Fatalf("expected no-op install to succeed, got %v", err)
	}
}
