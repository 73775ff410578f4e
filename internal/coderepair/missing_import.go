package coderepair

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// unresolvedNames returns the set of fully-qualified call names (e.g.
// "skimage.filters.gaussian") referenced in code that do not resolve
// against the Resolver, in the order first seen.
func unresolvedNames(ctx context.Context, code string, resolver Resolver) []string {
	seen := map[string]bool{}
	var names []string
	for _, site := range findCallSites(code) {
		if seen[site.fullyQualifiedName] {
			continue
		}
		seen[site.fullyQualifiedName] = true
		if !resolver.NameExists(ctx, site.fullyQualifiedName) {
			names = append(names, site.fullyQualifiedName)
		}
	}
	return names
}

// repairMissingImports implements stage 3 (§4.3 step 3): scan code for
// referenced names that do not resolve, ask the Advisor to propose import
// lines, then consolidate — dedupe and merge against whatever imports are
// already present anywhere in the code — and prepend the result at the top.
// The proposed import lines are not checked against the Resolver; every
// non-empty proposal is kept.
func (p *Pipeline) repairMissingImports(ctx context.Context, code string) (string, *AppliedRepair, error) {
	unresolved := unresolvedNames(ctx, code, p.resolver)
	if len(unresolved) == 0 {
		return code, nil, nil
	}

	proposed, err := p.advisor.ProposeMissingImports(ctx, code, unresolved)
	if err != nil {
		return code, nil, err
	}

	accepted := dedupeNonEmpty(proposed)
	if len(accepted) == 0 {
		return code, nil, nil
	}

	body, existing := extractImportLines(code)
	existingSet := make(map[string]bool, len(existing))
	for _, l := range existing {
		existingSet[l] = true
	}
	added := 0
	for _, l := range accepted {
		if !existingSet[l] {
			added++
		}
	}

	merged := mergeImportLines(accepted, existing)
	preamble := strings.Join(merged, "\n") + "\n"
	return preamble + body, &AppliedRepair{
		Stage:   StageMissingImport,
		Summary: "added " + strconv.Itoa(added) + " import(s) for " + strconv.Itoa(len(unresolved)) + " unresolved name(s)",
	}, nil
}

func dedupeNonEmpty(lines []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

var importLinePattern = regexp.MustCompile(`^(import\s+\S|from\s+\S+\s+import\s+)`)

// extractImportLines pulls every top-level import statement out of code,
// wherever it appears, returning the remaining body and the import lines
// (deduped, in first-seen order) so a later merge can consolidate them with
// newly proposed ones instead of leaving two copies of the same import.
func extractImportLines(code string) (body string, imports []string) {
	seen := map[string]bool{}
	lines := strings.Split(code, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if importLinePattern.MatchString(trimmed) {
			if !seen[trimmed] {
				seen[trimmed] = true
				imports = append(imports, trimmed)
			}
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), imports
}

// mergeImportLines consolidates newly accepted import lines with whatever
// was already present, preserving first-seen order (accepted first, since
// those are the ones this stage was asked to add) and dropping duplicates.
func mergeImportLines(accepted, existing []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(accepted)+len(existing))
	for _, l := range accepted {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	for _, l := range existing {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
