package coderepair

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// callExprPattern matches an attribute-style call: `alias.attr(` or
// `alias.sub.attr(`. Grounded on fix_bad_fun_calls.py's
// extract_fully_qualified_function_names, which walks Python's ast.Call
// nodes looking for the same `Name.attr(...)` shape; since no AST is
// available here the call sites are found by regex instead.
var callExprPattern = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*)\.([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// importPattern / importFromPattern recognise `import x` / `import x as y`
// and `from x import y` / `from x import y as z`, so a call site's local
// prefix can be resolved to the fully-qualified module it came from.
var (
	importPattern     = regexp.MustCompile(`(?m)^\s*import\s+([A-Za-z_][A-Za-z0-9_.]*)(?:\s+as\s+([A-Za-z_][A-Za-z0-9_]*))?\s*$`)
	importFromPattern = regexp.MustCompile(`(?m)^\s*from\s+([A-Za-z_][A-Za-z0-9_.]*)\s+import\s+([A-Za-z_][A-Za-z0-9_]*)(?:\s+as\s+([A-Za-z_][A-Za-z0-9_]*))?\s*$`)
)

// importAliasTable maps the local name a call site uses (e.g. "np", "line")
// to the fully-qualified module or symbol it refers to.
func importAliasTable(code string) map[string]string {
	aliases := map[string]string{}
	for _, m := range importPattern.FindAllStringSubmatch(code, -1) {
		module, alias := m[1], m[2]
		if alias == "" {
			// `import a.b` binds the top-level package "a" in local
			// scope; "a.b" is reached as an attribute of it, not as a
			// separately bound name.
			root := module
			if i := strings.IndexByte(module, '.'); i >= 0 {
				root = module[:i]
			}
			aliases[root] = root
			continue
		}
		aliases[alias] = module
	}
	for _, m := range importFromPattern.FindAllStringSubmatch(code, -1) {
		module, symbol, alias := m[1], m[2], m[3]
		if alias == "" {
			alias = symbol
		}
		aliases[alias] = module + "." + symbol
	}
	return aliases
}

type callSite struct {
	original           string // e.g. "transform.line"
	fullyQualifiedName string // e.g. "skimage.transform.line"
}

// findCallSites scans code for attribute-style calls and resolves each
// against the import alias table, mirroring
// extract_fully_qualified_function_names's (fully_qualified, original) pairs.
func findCallSites(code string) []callSite {
	aliases := importAliasTable(code)
	var sites []callSite
	for _, m := range callExprPattern.FindAllStringSubmatch(code, -1) {
		prefix, attr := m[1], m[2]
		root := prefix
		rest := ""
		if i := strings.IndexByte(prefix, '.'); i >= 0 {
			root = prefix[:i]
			rest = prefix[i:]
		}
		module, ok := aliases[root]
		if !ok {
			continue
		}
		sites = append(sites, callSite{
			original:           prefix + "." + attr,
			fullyQualifiedName: module + rest + "." + attr,
		})
	}
	return sites
}

// repairBadCalls implements stage 4 (§4.3 step 4): find calls whose
// fully-qualified name does not resolve, ask the Advisor for a corrected
// call, keep it only if the Resolver confirms it resolves, and rewrite both
// the call site and its import.
func (p *Pipeline) repairBadCalls(ctx context.Context, code string) (string, *AppliedRepair, error) {
	sites := findCallSites(code)
	if len(sites) == 0 {
		return code, nil, nil
	}

	fixedCode := code
	var preamble strings.Builder
	var fixedCount int
	for _, site := range sites {
		if p.resolver.NameExists(ctx, site.fullyQualifiedName) {
			continue
		}
		fix, err := p.advisor.ProposeCallFix(ctx, site.original, site.fullyQualifiedName)
		if err != nil {
			return code, nil, err
		}
		fix = parseApostrophizedCall(fix)
		if fix == "" || !p.resolver.NameExists(ctx, fix) {
			continue
		}
		fixedCode = strings.ReplaceAll(fixedCode, site.original, fix)
		preamble.WriteString("import " + rootPackage(fix) + "\n")
		fixedCount++
	}
	if fixedCount == 0 {
		return code, nil, nil
	}
	fixedCode = preamble.String() + fixedCode
	return fixedCode, &AppliedRepair{
		Stage:   StageBadCallRepair,
		Summary: "rewrote " + strconv.Itoa(fixedCount) + " unresolved call(s)",
	}, nil
}

var apostrophizedCallPattern = regexp.MustCompile(`'([a-zA-Z]+(?:\.[a-zA-Z]+)*)'`)

// parseApostrophizedCall extracts a dotted identifier from a string the
// advisor wraps in apostrophes (grounded on fix_bad_fun_calls.py's
// _parse_function_call and its pattern
// `'([a-zA-Z]+(?:\.[a-zA-Z]+)*)'`). A response without apostrophes is
// trusted as-is.
func parseApostrophizedCall(s string) string {
	if !strings.Contains(s, "'") {
		return strings.TrimSpace(s)
	}
	m := apostrophizedCallPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

func rootPackage(fullyQualifiedName string) string {
	if i := strings.IndexByte(fullyQualifiedName, '.'); i >= 0 {
		return fullyQualifiedName[:i]
	}
	return fullyQualifiedName
}
