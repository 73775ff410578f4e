// Package coderepair implements the code-repair pipeline (C3): six ordered
// stages applied to a raw LLM-generated code string before it reaches the
// host bridge for execution. Grounded on the original Python pipeline
// (fix_bad_fun_calls.py, fix_code_given_error.py, check_code_safety.py,
// pip_utils.py) and reworked as Go-native regex-based static scanning,
// since no Python AST parser exists anywhere in the corpus this was
// adapted from — a deliberate, idiomatic substitution for the original's
// `ast`-module parsing.
package coderepair

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nexus-vision/agentcore/internal/observability"
)

// StageName identifies one pipeline stage for flags, metrics, and logs.
type StageName string

const (
	StageMarkdownExtraction  StageName = "markdown"
	StageImportPrefix        StageName = "imports"
	StageMissingImport       StageName = "missing_import"
	StageBadCallRepair       StageName = "bad_call"
	StageForbiddenLineFilter StageName = "forbidden_line"
	StagePackageInstall      StageName = "install"
)

// Stages controls which pipeline stages run for a given tool invocation
// (§4.3: "Each stage is independently gateable by a boolean flag on the
// owning tool").
type Stages struct {
	MarkdownExtraction  bool
	ImportPrefixing     bool
	MissingImportFix    bool
	BadCallFix          bool
	ForbiddenLineFilter bool
	PackageInstall      bool
}

// AllStages returns a Stages value with every stage enabled.
func AllStages() Stages {
	return Stages{true, true, true, true, true, true}
}

// Options configures a Pipeline run.
type Options struct {
	Stages Stages
	// ImportPreamble is the tool-provided preamble of common imports
	// prepended in stage 2.
	ImportPreamble string
	// DenyList is the forbidden-line deny-list for stage 5. Entries are
	// treated as regular expressions matched against each line.
	DenyList []string
	// InstallSkipSet names packages assumed always present, skipped by
	// stage 6 even if the LLM flags them missing.
	InstallSkipSet []string
	// AllowInstall gates stage 6 on user consent; the stage is a no-op
	// (reporting only) when false.
	AllowInstall bool
	MaxRounds    int
}

// Resolver answers the questions the pipeline needs about the running
// environment: which names resolve to real importable symbols, and which
// packages are already installed. It is the deterministic half of stages
// 3, 4, and 6; an LLM proposes, Resolver verifies.
type Resolver interface {
	// NameExists reports whether a fully-qualified name (e.g.
	// "skimage.transform.line") resolves to something importable.
	NameExists(ctx context.Context, fullyQualifiedName string) bool
	// InstalledPackages lists packages installed in the current environment.
	InstalledPackages(ctx context.Context) []string
}

// Installer performs stage 6's actual installation once consent and
// verification have both passed.
type Installer interface {
	Install(ctx context.Context, packages []string) error
}

// Advisor is the LLM-backed half of stages 3, 4, and 6: it proposes fixes
// that the Resolver then verifies, per §9's "always combine an LLM
// proposal with a deterministic verification step" design note.
type Advisor interface {
	// ProposeMissingImports returns import lines to prepend for the given
	// set of referenced names not already resolvable.
	ProposeMissingImports(ctx context.Context, code string, unresolved []string) ([]string, error)
	// ProposeCallFix returns a corrected fully-qualified call to replace
	// one that does not resolve.
	ProposeCallFix(ctx context.Context, originalCall, fullyQualifiedName string) (string, error)
	// ProposeMissingPackages returns package names the LLM believes must
	// be installed for code to run, given the current import set.
	ProposeMissingPackages(ctx context.Context, code string) ([]string, error)
}

// Pipeline runs the ordered repair stages over one code string.
type Pipeline struct {
	resolver  Resolver
	advisor   Advisor
	installer Installer

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// NewPipeline builds a Pipeline from its collaborators.
func NewPipeline(resolver Resolver, advisor Advisor, installer Installer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{resolver: resolver, advisor: advisor, installer: installer}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PipelineOption configures optional Pipeline behavior.
type PipelineOption func(*Pipeline)

// WithObservability attaches logging, metrics, and tracing to the pipeline.
func WithObservability(logger *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) PipelineOption {
	return func(p *Pipeline) { p.logger, p.metrics, p.tracer = logger, metrics, tracer }
}

// Result is the outcome of running the pipeline over one code string.
type Result struct {
	Code    string
	Applied []AppliedRepair
}

// AppliedRepair records one stage's effect for the GeneratedCodeArtifact's
// applied-repairs log (§3).
type AppliedRepair struct {
	Stage   StageName
	Summary string
}

// Run executes every enabled stage in order: markdown extraction, import
// prefixing, missing-import inference, bad-call repair, forbidden-line
// filtering, package installation. Each stage's output feeds the next.
func (p *Pipeline) Run(ctx context.Context, rawCode string, opts Options) (Result, error) {
	res := Result{Code: rawCode}

	stage := func(name StageName, enabled bool, fn func(ctx context.Context, code string) (string, *AppliedRepair, error)) error {
		if !enabled {
			return nil
		}
		start := time.Now()
		stageCtx := ctx
		var span trace.Span
		if p.tracer != nil {
			stageCtx, span = p.tracer.TraceRepairStage(ctx, string(name))
		}
		next, applied, err := fn(stageCtx, res.Code)
		if span != nil {
			span.End()
		}
		outcome := "noop"
		if err != nil {
			outcome = "failed"
		} else if applied != nil {
			outcome = "applied"
		}
		if p.metrics != nil {
			p.metrics.RecordRepairStage(string(name), outcome, time.Since(start).Seconds())
		}
		if err != nil {
			return err
		}
		res.Code = next
		if applied != nil {
			res.Applied = append(res.Applied, *applied)
		}
		return nil
	}

	if err := stage(StageMarkdownExtraction, opts.Stages.MarkdownExtraction, func(ctx context.Context, code string) (string, *AppliedRepair, error) {
		extracted, changed := ExtractMarkdownCode(code)
		if !changed {
			return code, nil, nil
		}
		return extracted, &AppliedRepair{Stage: StageMarkdownExtraction, Summary: "extracted fenced code blocks"}, nil
	}); err != nil {
		return res, err
	}

	if err := stage(StageImportPrefix, opts.Stages.ImportPrefixing, func(ctx context.Context, code string) (string, *AppliedRepair, error) {
		if opts.ImportPreamble == "" {
			return code, nil, nil
		}
		return PrependPreamble(code, opts.ImportPreamble), &AppliedRepair{Stage: StageImportPrefix, Summary: "prepended tool import preamble"}, nil
	}); err != nil {
		return res, err
	}

	if err := stage(StageMissingImport, opts.Stages.MissingImportFix, func(ctx context.Context, code string) (string, *AppliedRepair, error) {
		return p.repairMissingImports(ctx, code)
	}); err != nil {
		return res, err
	}

	if err := stage(StageBadCallRepair, opts.Stages.BadCallFix, func(ctx context.Context, code string) (string, *AppliedRepair, error) {
		return p.repairBadCalls(ctx, code)
	}); err != nil {
		return res, err
	}

	if err := stage(StageForbiddenLineFilter, opts.Stages.ForbiddenLineFilter, func(ctx context.Context, code string) (string, *AppliedRepair, error) {
		filtered, removed := FilterForbiddenLines(code, opts.DenyList)
		if removed == 0 {
			return code, nil, nil
		}
		return filtered, &AppliedRepair{Stage: StageForbiddenLineFilter, Summary: fmt.Sprintf("removed %d forbidden line(s)", removed)}, nil
	}); err != nil {
		return res, err
	}

	if err := stage(StagePackageInstall, opts.Stages.PackageInstall, func(ctx context.Context, code string) (string, *AppliedRepair, error) {
		applied, err := p.installMissingPackages(ctx, code, opts)
		return code, applied, err
	}); err != nil {
		return res, err
	}

	return res, nil
}
