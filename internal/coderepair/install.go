package coderepair

import (
	"context"
	"regexp"
	"strings"
)

// topLevelImportPattern extracts the top-level package name from `import
// x...` and `from x... import y` lines, e.g. "skimage" from
// "from skimage.filters import gaussian".
var topLevelImportPattern = regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// importedTopLevelPackages returns the distinct top-level package names
// code imports.
func importedTopLevelPackages(code string) []string {
	seen := map[string]bool{}
	var pkgs []string
	for _, m := range topLevelImportPattern.FindAllStringSubmatch(code, -1) {
		name := m[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		pkgs = append(pkgs, name)
	}
	return pkgs
}

// installMissingPackages implements stage 6 (§4.3 step 6): ask the
// Advisor which packages the code needs, drop anything already installed
// or on the skip set, and install what remains if the caller has
// consented. Grounded on pip_utils.py's pip_install: the "included
// packages that ship with the host already" filter there is this stage's
// InstallSkipSet, and the permission gate there is AllowInstall here.
func (p *Pipeline) installMissingPackages(ctx context.Context, code string, opts Options) (*AppliedRepair, error) {
	imported := importedTopLevelPackages(code)
	if len(imported) == 0 {
		return nil, nil
	}

	proposed, err := p.advisor.ProposeMissingPackages(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(proposed) == 0 {
		return nil, nil
	}

	installed := map[string]bool{}
	for _, pkg := range p.resolver.InstalledPackages(ctx) {
		installed[pkg] = true
	}
	skip := map[string]bool{}
	for _, pkg := range opts.InstallSkipSet {
		skip[pkg] = true
	}

	var needed []string
	for _, pkg := range proposed {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" || installed[pkg] || skip[pkg] {
			continue
		}
		needed = append(needed, pkg)
	}
	if len(needed) == 0 {
		return nil, nil
	}

	if !opts.AllowInstall {
		return &AppliedRepair{
			Stage:   StagePackageInstall,
			Summary: "install required but not authorised: " + strings.Join(needed, ", "),
		}, nil
	}

	if err := p.installer.Install(ctx, needed); err != nil {
		return nil, err
	}
	return &AppliedRepair{
		Stage:   StagePackageInstall,
		Summary: "installed: " + strings.Join(needed, ", "),
	}, nil
}
