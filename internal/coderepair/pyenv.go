package coderepair

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// PyEnv implements both Resolver and Installer by shelling out to the
// python3/pip binaries on PATH, grounded on pip_utils.py's subprocess-based
// install/list helpers and the teacher's exec.CommandContext wrapper
// pattern (internal/tailscale/tailscale.go's runCommand). No example repo
// in the pack ships a Python environment introspection library, so this
// is built on os/exec against the real interpreter rather than a
// hand-rolled import graph, which is the only way to answer "does this
// name actually resolve" without reimplementing Python's import system.
type PyEnv struct {
	PythonPath string
	PipPath    string
}

// NewPyEnv builds a PyEnv using "python3" and "pip3" resolved from PATH.
func NewPyEnv() *PyEnv {
	return &PyEnv{PythonPath: "python3", PipPath: "pip3"}
}

// NameExists reports whether a fully-qualified name resolves to something
// importable, by asking the interpreter to import the root module and then
// walk attribute access for the remaining dotted segments.
func (p *PyEnv) NameExists(ctx context.Context, fullyQualifiedName string) bool {
	fullyQualifiedName = strings.TrimSpace(fullyQualifiedName)
	if fullyQualifiedName == "" {
		return false
	}
	parts := strings.Split(fullyQualifiedName, ".")
	script := fmt.Sprintf(`
import importlib
name = %q
parts = name.split(".")
try:
    obj = importlib.import_module(parts[0])
except Exception:
    raise SystemExit(1)
for part in parts[1:]:
    try:
        obj = getattr(obj, part)
    except AttributeError:
        try:
            obj = importlib.import_module(obj.__name__ + "." + part)
        except Exception:
            raise SystemExit(1)
`, strings.Join(parts, "."))
	cmd := exec.CommandContext(ctx, p.PythonPath, "-c", script)
	return cmd.Run() == nil
}

// InstalledPackages lists the distribution names `pip list` reports as
// currently installed.
func (p *PyEnv) InstalledPackages(ctx context.Context) []string {
	cmd := exec.CommandContext(ctx, p.PipPath, "list", "--format=freeze", "--disable-pip-version-check")
	output, err := cmd.Output()
	if err != nil {
		return nil
	}

	var pkgs []string
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, _, found := strings.Cut(line, "==")
		if !found {
			name, _, _ = strings.Cut(line, "@")
		}
		if name != "" {
			pkgs = append(pkgs, strings.TrimSpace(name))
		}
	}
	return pkgs
}

// Install runs `pip install` for the given package names.
func (p *PyEnv) Install(ctx context.Context, packages []string) error {
	if len(packages) == 0 {
		return nil
	}
	args := append([]string{"install", "--disable-pip-version-check"}, packages...)
	cmd := exec.CommandContext(ctx, p.PipPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("pip install failed: %s: %s", exitErr, strings.TrimSpace(string(output)))
		}
		return fmt.Errorf("pip install failed: %w", err)
	}
	return nil
}
