package coderepair

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nexus-vision/agentcore/internal/llm"
)

// LLMAdvisor is the production Advisor: it asks the C1 façade for a small
// JSON object and validates the reply against a schema before trusting it,
// a deliberate departure from the original's free-text-plus-apostrophe-
// stripping parsing (§4.3 stage 3/4 note). A malformed or schema-invalid
// reply is treated as "nothing to propose" rather than a hard failure,
// since the deterministic Resolver check downstream still has the final
// word on whether any proposal actually applies.
type LLMAdvisor struct {
	facade  *llm.Facade
	model   string
	prompts AdvisorPrompts
}

// AdvisorPrompts holds the prompt templates used for each proposal kind.
// Each template is rendered with the variables documented on its field and
// must ask the model to reply with nothing but the JSON object described.
type AdvisorPrompts struct {
	// MissingImports variables: {code}, {names}.
	MissingImports string
	// CallFix variables: {original_call}, {fully_qualified_name}.
	CallFix string
	// MissingPackages variables: {code}.
	MissingPackages string
}

// DefaultAdvisorPrompts returns the prompt templates used when none are
// supplied, matching the structured-response convention documented in
// §4.3: a single JSON object, nothing else.
func DefaultAdvisorPrompts() AdvisorPrompts {
	return AdvisorPrompts{
		MissingImports: "The following Python code references these names, which do not currently " +
			"resolve: {names}\n\nCode:\n{code}\n\n" +
			`Reply with only a JSON object of the form {"imports": ["import foo", "from bar import baz"]} ` +
			"listing the import statements needed to make those names resolve. Omit anything already imported.",
		CallFix: "This call does not resolve: {original_call}\nIts fully-qualified name, which does not exist, is: " +
			"{fully_qualified_name}\n\n" +
			`Reply with only a JSON object of the form {"replacement": "package.module.function"} ` +
			"giving the corrected fully-qualified function name, without arguments or parentheses.",
		MissingPackages: "Given the following Python code, list any third-party packages that must be " +
			"pip-installed for it to run, beyond the standard library.\n\nCode:\n{code}\n\n" +
			`Reply with only a JSON object of the form {"packages": ["scikit-image", "tifffile"]}.`,
	}
}

// NewLLMAdvisor builds an Advisor backed by facade/model. An empty prompts
// value is replaced with DefaultAdvisorPrompts().
func NewLLMAdvisor(facade *llm.Facade, model string, prompts AdvisorPrompts) *LLMAdvisor {
	if prompts == (AdvisorPrompts{}) {
		prompts = DefaultAdvisorPrompts()
	}
	return &LLMAdvisor{facade: facade, model: model, prompts: prompts}
}

type importsResponse struct {
	Imports []string `json:"imports"`
}

type callFixResponse struct {
	Replacement string `json:"replacement"`
}

type packagesResponse struct {
	Packages []string `json:"packages"`
}

var (
	importsSchema   = mustCompileSchema(importsResponse{})
	callFixSchema   = mustCompileSchema(callFixResponse{})
	packagesSchema  = mustCompileSchema(packagesResponse{})
	schemaReflector = &invopop.Reflector{ExpandedStruct: true}
)

// mustCompileSchema reflects a Go struct into a JSON schema (via
// invopop/jsonschema) and compiles it (via santhosh-tekuri/jsonschema) once
// at package init, so every advisor call reuses the same compiled schema.
func mustCompileSchema(shape any) *jsonschema.Schema {
	raw, err := json.Marshal(schemaReflector.Reflect(shape))
	if err != nil {
		panic(fmt.Sprintf("coderepair: could not marshal reflected schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	const resourceName = "advisor-response.json"
	if err := c.AddResource(resourceName, strings.NewReader(string(raw))); err != nil {
		panic(fmt.Sprintf("coderepair: could not add schema resource: %v", err))
	}
	schema, err := c.Compile(resourceName)
	if err != nil {
		panic(fmt.Sprintf("coderepair: could not compile schema: %v", err))
	}
	return schema
}

// decodeValidated parses reply as JSON, validates it against schema, and
// unmarshals the same bytes into out. Any failure along the way is reported
// as an error so the caller can fall back to "nothing proposed".
func decodeValidated(schema *jsonschema.Schema, reply string, out any) error {
	reply = extractJSONObject(reply)
	if reply == "" {
		return fmt.Errorf("coderepair: advisor reply contained no JSON object")
	}

	var generic any
	if err := json.Unmarshal([]byte(reply), &generic); err != nil {
		return fmt.Errorf("coderepair: advisor reply is not valid JSON: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return fmt.Errorf("coderepair: advisor reply failed schema validation: %w", err)
	}
	return json.Unmarshal([]byte(reply), out)
}

// extractJSONObject keeps the span from the first '{' to the last '}' and
// trims everything outside it, tolerating a model that wraps its JSON in prose or a markdown
// fence despite being asked not to.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return s[start : end+1]
}

func (a *LLMAdvisor) generate(ctx context.Context, promptTemplate string, vars map[string]string) (string, error) {
	messages, err := a.facade.Generate(ctx, a.model, promptTemplate, vars, 0)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Content)
	}
	return b.String(), nil
}

// ProposeMissingImports implements Advisor.
func (a *LLMAdvisor) ProposeMissingImports(ctx context.Context, code string, unresolved []string) ([]string, error) {
	reply, err := a.generate(ctx, a.prompts.MissingImports, map[string]string{
		"code":  code,
		"names": strings.Join(unresolved, ", "),
	})
	if err != nil {
		return nil, err
	}
	var parsed importsResponse
	if err := decodeValidated(importsSchema, reply, &parsed); err != nil {
		return nil, nil
	}
	return parsed.Imports, nil
}

// ProposeCallFix implements Advisor.
func (a *LLMAdvisor) ProposeCallFix(ctx context.Context, originalCall, fullyQualifiedName string) (string, error) {
	reply, err := a.generate(ctx, a.prompts.CallFix, map[string]string{
		"original_call":        originalCall,
		"fully_qualified_name": fullyQualifiedName,
	})
	if err != nil {
		return "", err
	}
	var parsed callFixResponse
	if err := decodeValidated(callFixSchema, reply, &parsed); err != nil {
		return "", nil
	}
	return parsed.Replacement, nil
}

// ProposeMissingPackages implements Advisor.
func (a *LLMAdvisor) ProposeMissingPackages(ctx context.Context, code string) ([]string, error) {
	reply, err := a.generate(ctx, a.prompts.MissingPackages, map[string]string{"code": code})
	if err != nil {
		return nil, err
	}
	var parsed packagesResponse
	if err := decodeValidated(packagesSchema, reply, &parsed); err != nil {
		return nil, nil
	}
	return parsed.Packages, nil
}
