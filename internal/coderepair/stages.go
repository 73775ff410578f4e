package coderepair

import (
	"regexp"
	"strings"
)

var fencedCodeBlockPattern = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_+-]*\n)?(.*?)```")

// ExtractMarkdownCode implements stage 1: if the string contains fenced
// code blocks, the concatenation of their contents is taken; otherwise the
// input is treated as code unchanged (§4.3 step 1).
func ExtractMarkdownCode(raw string) (code string, changed bool) {
	matches := fencedCodeBlockPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return raw, false
	}
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, strings.Trim(m[1], "\n"))
	}
	return strings.Join(blocks, "\n\n"), true
}

// PrependPreamble implements stage 2: prepend a tool-provided preamble of
// common imports (§4.3 step 2).
func PrependPreamble(code, preamble string) string {
	preamble = strings.TrimRight(preamble, "\n")
	if preamble == "" {
		return code
	}
	return preamble + "\n" + code
}

var forbiddenLinePattern = func(pattern string) *regexp.Regexp {
	re, err := regexp.Compile(pattern)
	if err != nil {
		// An unparsable deny-list entry can never match; treat it as
		// inert rather than rejecting the whole filter configuration.
		return regexp.MustCompile(`$^`)
	}
	return re
}

// FilterForbiddenLines implements stage 5: remove any line matching a
// deny-list entry (§4.3 step 5). Entries are regular expressions so a
// tool can deny whole families of host-manipulation calls, not just exact
// strings.
func FilterForbiddenLines(code string, denyList []string) (filtered string, removedCount int) {
	if len(denyList) == 0 {
		return code, 0
	}
	patterns := make([]*regexp.Regexp, 0, len(denyList))
	for _, p := range denyList {
		patterns = append(patterns, forbiddenLinePattern(p))
	}

	lines := strings.Split(code, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		denied := false
		for _, re := range patterns {
			if re.MatchString(line) {
				denied = true
				break
			}
		}
		if denied {
			removedCount++
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), removedCount
}

// DefaultDenyList is the default forbidden-line set (§4.3 step 5):
// host-construction and event-loop-entry patterns a generated snippet has
// no business containing, since the host already exists and already owns
// its own event loop.
var DefaultDenyList = []string{
	`\bnapari\.Viewer\s*\(`,
	`\.add_dock_widget\s*\(`,
	`\bnapari\.run\s*\(`,
	`\bQApplication\s*\(`,
	`\.exec_\s*\(\s*\)`,
	`\.exec\s*\(\s*\)`,
}
