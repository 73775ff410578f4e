package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application
// metrics, following the teacher's promauto registration pattern. It tracks:
//   - agent turns and LLM request performance
//   - tool execution patterns and latencies, including repair-pipeline stages
//   - host bridge queue depth and task latency
//   - peer discovery and transfer activity
//   - error rates categorized by type and component
type Metrics struct {
	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests by provider, model, and status.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// RepairStageCounter counts code-repair pipeline stage outcomes (C3).
	// Labels: stage (markdown|imports|missing_import|bad_call|forbidden_line|install),
	// outcome (applied|noop|failed)
	RepairStageCounter *prometheus.CounterVec

	// RepairStageDuration measures repair-pipeline stage latency in seconds.
	// Labels: stage
	RepairStageDuration *prometheus.HistogramVec

	// BridgeQueueDepth tracks the current depth of the host bridge's inbox
	// and outbox queues (C4).
	// Labels: queue (inbox|outbox)
	BridgeQueueDepth *prometheus.GaugeVec

	// BridgeTaskDuration measures time spent executing a task on the host
	// thread, from submit to result delivery.
	BridgeTaskDuration prometheus.Histogram

	// BridgeTaskCounter counts bridge task submissions by outcome.
	// Labels: outcome (success|error|timeout)
	BridgeTaskCounter *prometheus.CounterVec

	// AgentTurnDuration measures the wall-clock duration of one full agent
	// turn (C7), from Thinking to Finalising/Failed.
	AgentTurnDuration prometheus.Histogram

	// AgentTurnCounter counts agent turns by terminal phase.
	// Labels: phase (finalising|failed)
	AgentTurnCounter *prometheus.CounterVec

	// ActiveSessions is a gauge tracking current active sessions.
	ActiveSessions prometheus.Gauge

	// ErrorCounter tracks errors by component and error type.
	// Labels: component (agent|bridge|tool|repair|peer|session), error_type
	ErrorCounter *prometheus.CounterVec

	// PeerBeaconsSent counts multicast beacons emitted (C9).
	PeerBeaconsSent prometheus.Counter

	// PeerBeaconsReceived counts multicast beacons observed from others.
	PeerBeaconsReceived prometheus.Counter

	// PeersKnown is a gauge tracking the size of the peer directory.
	PeersKnown prometheus.Gauge

	// PeerTransferCounter counts peer code transfers by direction and
	// outcome.
	// Labels: direction (sent|received), outcome (success|error|rejected)
	PeerTransferCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics. Call once at
// startup; metrics register against the default registry, available at
// /metrics when the prometheus HTTP handler is mounted.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentcore_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentcore_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		RepairStageCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_repair_stage_total",
				Help: "Total number of code-repair pipeline stage executions by outcome",
			},
			[]string{"stage", "outcome"},
		),

		RepairStageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentcore_repair_stage_duration_seconds",
				Help:    "Duration of a single code-repair pipeline stage in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"stage"},
		),

		BridgeQueueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agentcore_bridge_queue_depth",
				Help: "Current depth of the host bridge inbox/outbox queues",
			},
			[]string{"queue"},
		),

		BridgeTaskDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agentcore_bridge_task_duration_seconds",
				Help:    "Duration of a task executed on the host thread via the bridge",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),

		BridgeTaskCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_bridge_tasks_total",
				Help: "Total number of bridge task submissions by outcome",
			},
			[]string{"outcome"},
		),

		AgentTurnDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "agentcore_agent_turn_duration_seconds",
				Help:    "Duration of a full agent turn in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),

		AgentTurnCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_agent_turns_total",
				Help: "Total number of agent turns by terminal phase",
			},
			[]string{"phase"},
		),

		ActiveSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "agentcore_active_sessions",
				Help: "Current number of active sessions",
			},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),

		PeerBeaconsSent: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "agentcore_peer_beacons_sent_total",
				Help: "Total number of discovery beacons emitted",
			},
		),

		PeerBeaconsReceived: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "agentcore_peer_beacons_received_total",
				Help: "Total number of discovery beacons observed from other peers",
			},
		),

		PeersKnown: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "agentcore_peers_known",
				Help: "Current number of peers in the discovery directory",
			},
		),

		PeerTransferCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentcore_peer_transfers_total",
				Help: "Total number of peer code transfers by direction and outcome",
			},
			[]string{"direction", "outcome"},
		),
	}
}

// RecordLLMRequest records metrics for an LLM API request.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolExecution records metrics for a tool execution.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordRepairStage records one code-repair pipeline stage execution.
func (m *Metrics) RecordRepairStage(stage, outcome string, durationSeconds float64) {
	m.RepairStageCounter.WithLabelValues(stage, outcome).Inc()
	m.RepairStageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// SetBridgeQueueDepth sets the current depth of a bridge queue.
func (m *Metrics) SetBridgeQueueDepth(queue string, depth int) {
	m.BridgeQueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordBridgeTask records a completed bridge task submission.
func (m *Metrics) RecordBridgeTask(outcome string, durationSeconds float64) {
	m.BridgeTaskCounter.WithLabelValues(outcome).Inc()
	m.BridgeTaskDuration.Observe(durationSeconds)
}

// RecordAgentTurn records a completed agent turn.
func (m *Metrics) RecordAgentTurn(phase string, durationSeconds float64) {
	m.AgentTurnCounter.WithLabelValues(phase).Inc()
	m.AgentTurnDuration.Observe(durationSeconds)
}

// SessionStarted increments the active sessions gauge.
func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

// SessionEnded decrements the active sessions gauge.
func (m *Metrics) SessionEnded() {
	m.ActiveSessions.Dec()
}

// RecordError increments the error counter for a given component and error type.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}

// RecordBeaconSent increments the emitted-beacon counter.
func (m *Metrics) RecordBeaconSent() {
	m.PeerBeaconsSent.Inc()
}

// RecordBeaconReceived increments the observed-beacon counter.
func (m *Metrics) RecordBeaconReceived() {
	m.PeerBeaconsReceived.Inc()
}

// SetPeersKnown sets the current size of the peer directory.
func (m *Metrics) SetPeersKnown(n int) {
	m.PeersKnown.Set(float64(n))
}

// RecordPeerTransfer records a completed peer code transfer.
func (m *Metrics) RecordPeerTransfer(direction, outcome string) {
	m.PeerTransferCounter.WithLabelValues(direction, outcome).Inc()
}
