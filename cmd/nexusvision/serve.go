package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nexus-vision/agentcore/internal/bridge"
	"github.com/nexus-vision/agentcore/internal/coderepair"
	"github.com/nexus-vision/agentcore/internal/config"
	"github.com/nexus-vision/agentcore/internal/observability"
	"github.com/nexus-vision/agentcore/internal/registry"
	"github.com/nexus-vision/agentcore/internal/session"
	"github.com/nexus-vision/agentcore/internal/tools"
)

func buildServeCmd() *cobra.Command {
	var (
		configPath   string
		model        string
		systemPrompt string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run one turn against a fake host, taking the user input as an argument",
		Long: `Run the agent core against a fake host: loads configuration, constructs
the LLM façade, code-repair pipeline, and session controller, then runs one
turn with the single positional argument as the user input and prints the
agent's final answer.

This is the reference wiring for embedding internal/session.Controller in a
real host application; the fake host here never evaluates generated code,
it only records it (see "nexusvision doctor" and FakeHost.Executed).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, model, systemPrompt, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "nexusvision.yaml", "Path to YAML/JSON5 configuration file")
	cmd.Flags().StringVar(&model, "model", "", "Model ID to drive the turn (defaults to the façade's best available text model)")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "You are an agent embedded in a scientific image viewer.", "System prompt for the agent loop")

	return cmd
}

func runServe(ctx context.Context, configPath, model, systemPrompt, userInput string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format, AddSource: cfg.Logging.AddSource})
	metrics := observability.NewMetrics()
	tracer, shutdownTracer := observability.NewTracer(observability.TraceConfig{
		ServiceName:  cfg.Observability.Tracing.ServiceName,
		Endpoint:     cfg.Observability.Tracing.Endpoint,
		SamplingRate: cfg.Observability.Tracing.SamplingRate,
		Environment:  cfg.Observability.Tracing.Environment,
		Attributes:   cfg.Observability.Tracing.Attributes,
	})
	defer shutdownTracer(ctx)

	facade, err := buildFacade(ctx, cfg, logger, metrics, tracer)
	if err != nil {
		return fmt.Errorf("failed to build LLM façade: %w", err)
	}
	if model == "" {
		best, ok := facade.BestModel()
		if !ok {
			return fmt.Errorf("no model available from any configured provider")
		}
		model = best
	}

	advisor := coderepair.NewLLMAdvisor(facade, model, coderepair.DefaultAdvisorPrompts())
	pyenv := coderepair.NewPyEnv()
	pipeline := coderepair.NewPipeline(pyenv, advisor, pyenv, coderepair.WithObservability(logger, metrics, tracer))

	store := session.NewMemoryStore()

	buildTools := func(reg *registry.Registry, br *bridge.Bridge[*FakeHost], subAgent tools.SubAgentRunner, pl *coderepair.Pipeline) {
		buildFakeTools(reg, br, subAgent, pl, facade, model)
	}

	ctrl, err := session.NewController[*FakeHost](
		NewFakeHost(), cfg, facade, model, systemPrompt, pipeline, store, buildTools,
		session.WithObservability[*FakeHost](logger, metrics, tracer),
	)
	if err != nil {
		return fmt.Errorf("failed to construct session controller: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("failed to start peer services: %w", err)
	}
	defer func() { _ = ctrl.Shutdown(context.Background()) }()

	answer, err := ctrl.HandleTurn(ctx, "nexusvision-cli", userInput, nil)
	if err != nil {
		return fmt.Errorf("turn failed: %w", err)
	}
	fmt.Println(answer)
	return nil
}
