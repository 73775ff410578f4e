package llm

import "strings"

// RenderTemplate substitutes `{name}` placeholders in promptTemplate with
// the corresponding entries of variables (§4.1). Literal braces the caller
// wants preserved must already be escaped by doubling (`{{` / `}}`) before
// calling this function; RenderTemplate only resolves known placeholders
// and leaves everything else, including unmatched single braces, untouched.
// With a nil or empty variables map the template is returned as is,
// doubled braces included.
func RenderTemplate(promptTemplate string, variables map[string]string) string {
	if len(variables) == 0 {
		return promptTemplate
	}
	var b strings.Builder
	b.Grow(len(promptTemplate))

	i := 0
	for i < len(promptTemplate) {
		c := promptTemplate[i]
		if c == '{' && i+1 < len(promptTemplate) && promptTemplate[i+1] == '{' {
			b.WriteByte('{')
			i += 2
			continue
		}
		if c == '}' && i+1 < len(promptTemplate) && promptTemplate[i+1] == '}' {
			b.WriteByte('}')
			i += 2
			continue
		}
		if c == '{' {
			end := strings.IndexByte(promptTemplate[i:], '}')
			if end == -1 {
				b.WriteString(promptTemplate[i:])
				break
			}
			name := promptTemplate[i+1 : i+end]
			if val, ok := variables[name]; ok {
				b.WriteString(val)
				i += end + 1
				continue
			}
			b.WriteString(promptTemplate[i : i+end+1])
			i += end + 1
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String()
}
