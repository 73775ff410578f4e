package agentloop

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/nexus-vision/agentcore/internal/llm"
	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/observability"
	"github.com/nexus-vision/agentcore/internal/registry"
)

// Phase names the agent loop's state machine positions (§4.7: Idle →
// Thinking → Executing → Finalising/Failed), grounded on the teacher's
// AgenticLoop phase machine (PhaseInit/Stream/ExecuteTools/Continue/
// Complete) collapsed to this spec's simpler sequential contract.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseThinking   Phase = "thinking"
	PhaseExecuting  Phase = "executing"
	PhaseFinalising Phase = "finalising"
	PhaseFailed     Phase = "failed"
)

// Config bounds one turn of the loop.
type Config struct {
	MaxIterations int           // default 10, matching the teacher's DefaultLoopConfig
	MaxToolCalls  int           // 0 = unlimited
	MaxWallTime   time.Duration // 0 = no limit
	Temperature   float64
}

// DefaultConfig mirrors the teacher's DefaultLoopConfig defaults.
func DefaultConfig() Config {
	return Config{MaxIterations: 10, Temperature: 0.2}
}

func sanitizeConfig(c Config) Config {
	d := DefaultConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxToolCalls < 0 {
		c.MaxToolCalls = 0
	}
	if c.MaxWallTime < 0 {
		c.MaxWallTime = 0
	}
	return c
}

// toolCallPattern recognizes the loop's single-tool-call-per-turn calling
// convention: "TOOL: <name>" on one line followed by "INPUT: <free text>"
// through to the end of the response, matching the free-text single-field
// ToolDescriptor contract in §3.
var toolCallPattern = regexp.MustCompile(`(?s)TOOL:\s*(\S+)\s*\nINPUT:\s*(.*)`)

// Loop is the agent loop (C7): one Run call drives exactly one
// user turn to completion or failure, streaming ChatEvents as it goes.
type Loop struct {
	facade   *llm.Facade
	model    string
	system   string
	tools    *registry.Registry
	config   Config
	sink     EventSink

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// Option configures optional Loop behavior.
type Option func(*Loop)

// WithEventSink attaches the sink ChatEvents stream to.
func WithEventSink(sink EventSink) Option {
	return func(l *Loop) { l.sink = sink }
}

// WithObservability attaches logging, metrics, and tracing.
func WithObservability(logger *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) Option {
	return func(l *Loop) { l.logger, l.metrics, l.tracer = logger, metrics, tracer }
}

// New builds a Loop bound to one model, system prompt, and toolset.
func New(facade *llm.Facade, model, systemPrompt string, tools *registry.Registry, config Config, opts ...Option) *Loop {
	l := &Loop{
		facade: facade, model: model, system: systemPrompt,
		tools: tools, config: sanitizeConfig(config), sink: NopSink{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run drives the loop for one user turn against the given conversation
// history, appending the user message and every resulting assistant/tool
// message to it, and returns the final answer text.
func (l *Loop) Run(ctx context.Context, history *models.ConversationHistory, sessionID, userInput string) (string, error) {
	ctx = observability.AddSessionID(ctx, sessionID)

	if l.tracer != nil {
		var span trace.Span
		ctx, span = l.tracer.TraceAgentTurn(ctx, sessionID)
		defer span.End()
	}

	start := time.Now()
	if l.config.MaxWallTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.MaxWallTime)
		defer cancel()
	}

	history.Append(models.NewTextMessage(models.RoleUser, userInput))
	l.emit(ctx, models.ChatEvent{Sender: models.SenderUser, Type: models.ChatEventStream, Message: userInput})

	phase := PhaseThinking
	toolCalls := 0

	for iteration := 0; iteration < l.config.MaxIterations; iteration++ {
		select {
		case <-ctx.Done():
			phase = PhaseFailed
			l.emit(ctx, models.ChatEvent{Sender: models.SenderAgent, Type: models.ChatEventError, Message: ctx.Err().Error()})
			return "", ctx.Err()
		default:
		}

		phase = PhaseThinking
		l.emit(ctx, models.ChatEvent{Sender: models.SenderAgent, Type: models.ChatEventThinking})
		reply, err := l.think(ctx, history)
		if err != nil {
			phase = PhaseFailed
			l.emit(ctx, models.ChatEvent{Sender: models.SenderAgent, Type: models.ChatEventError, Message: err.Error()})
			return "", fmt.Errorf("agent loop: thinking phase failed: %w", err)
		}

		name, input, isToolCall := parseToolCall(reply)
		if !isToolCall {
			phase = PhaseFinalising
			history.Append(models.NewTextMessage(models.RoleAssistant, reply))
			l.emit(ctx, models.ChatEvent{Sender: models.SenderAgent, Type: models.ChatEventFinal, Message: reply})
			if l.metrics != nil {
				l.metrics.RecordAgentTurn("completed", time.Since(start).Seconds())
			}
			return reply, nil
		}

		if l.config.MaxToolCalls > 0 && toolCalls >= l.config.MaxToolCalls {
			phase = PhaseFailed
			msg := "tool call budget exhausted"
			l.emit(ctx, models.ChatEvent{Sender: models.SenderAgent, Type: models.ChatEventError, Message: msg})
			return "", fmt.Errorf("agent loop: %s", msg)
		}

		phase = PhaseExecuting
		toolCalls++
		td, ok := l.tools.Get(name)
		if !ok {
			result := models.ErrorResult("", "UnknownTool", "no tool named '"+name+"' is registered", "")
			history.Append(models.NewTextMessage(models.RoleTool, result.AsText()))
			continue
		}

		l.emit(ctx, models.ChatEvent{Sender: models.SenderAgent, Type: models.ChatEventToolStart, ToolName: name, Message: input})
		result := l.tools.Invoke(ctx, models.ToolContext{ToolCallID: uuid.NewString(), SessionID: sessionID}, name, input)
		l.emit(ctx, models.ChatEvent{Sender: models.SenderAgent, Type: models.ChatEventToolResult, ToolName: name, Message: result.AsText()})
		history.Append(models.NewTextMessage(models.RoleTool, result.AsText()))

		if td.ReturnDirect {
			phase = PhaseFinalising
			l.emit(ctx, models.ChatEvent{Sender: models.SenderAgent, Type: models.ChatEventFinal, Message: result.AsText()})
			if l.metrics != nil {
				l.metrics.RecordAgentTurn("completed", time.Since(start).Seconds())
			}
			return result.AsText(), nil
		}
	}

	phase = PhaseFailed
	if l.metrics != nil {
		l.metrics.RecordAgentTurn("failed", time.Since(start).Seconds())
	}
	msg := "exceeded maximum iterations without reaching a final answer"
	l.emit(ctx, models.ChatEvent{Sender: models.SenderAgent, Type: models.ChatEventError, Message: msg})
	return "", fmt.Errorf("agent loop: %s (phase=%s)", msg, phase)
}

// RunToCompletion implements tools.SubAgentRunner: a one-shot loop bound to
// an ephemeral system prompt and toolset, used by the widget-maker's nested
// sub-agent (C6).
func (l *Loop) RunToCompletion(ctx context.Context, systemPrompt, userInput string, tools *registry.Registry) (string, error) {
	sub := New(l.facade, l.model, systemPrompt, tools, l.config, WithEventSink(l.sink))
	history := models.NewConversationHistory(0)
	history.Append(models.NewTextMessage(models.RoleSystem, systemPrompt))
	return sub.Run(ctx, history, "", userInput)
}

func (l *Loop) think(ctx context.Context, history *models.ConversationHistory) (string, error) {
	prompt := l.buildPrompt(history)
	messages, err := l.facade.Generate(ctx, l.model, prompt, nil, l.config.Temperature)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for _, m := range messages {
		out.WriteString(m.Content)
	}
	return out.String(), nil
}

// buildPrompt assembles the system prompt, the registered tool
// descriptions, and the conversation history into one request string. The
// façade's synchronous contract (§4.1) means this is a plain string, not a
// structured multi-message request with native tool-call support.
func (l *Loop) buildPrompt(history *models.ConversationHistory) string {
	var b strings.Builder
	if l.system != "" {
		b.WriteString(l.system)
		b.WriteString("\n\n")
	}
	if l.tools != nil {
		descriptors := l.tools.List()
		if len(descriptors) > 0 {
			b.WriteString("Available tools (call at most one per response, using \"TOOL: <name>\\nINPUT: <text>\"; otherwise just answer directly):\n")
			for _, td := range descriptors {
				b.WriteString("- " + td.Name + ": " + td.Description + "\n")
			}
			b.WriteString("\n")
		}
	}
	for _, m := range history.Messages() {
		b.WriteString(string(m.Role) + ": " + m.Text() + "\n")
	}
	return b.String()
}

func parseToolCall(reply string) (name, input string, ok bool) {
	m := toolCallPattern.FindStringSubmatch(reply)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

func (l *Loop) emit(ctx context.Context, e models.ChatEvent) {
	if l.sink != nil {
		l.sink.Emit(ctx, e)
	}
}
