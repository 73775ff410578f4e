// Package config loads and validates the agent core's configuration,
// following the teacher's YAML+JSON5 loader with $include resolution
// (internal/config/loader.go).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure for the agent core.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Session       SessionConfig       `yaml:"session"`
	LLM           LLMConfig           `yaml:"llm"`
	Tools         ToolsConfig         `yaml:"tools"`
	Peer          PeerConfig          `yaml:"peer"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig configures the process-level listen addresses.
type ServerConfig struct {
	MetricsAddr string `yaml:"metrics_addr"`
}

// SessionConfig controls agent-turn and conversation-history behavior (C11, §3).
type SessionConfig struct {
	// TokenCeiling bounds ConversationHistory before older messages are
	// collapsed into a summary. 0 disables summarization.
	TokenCeiling int `yaml:"token_ceiling"`

	// MaxToolRetries is the configured retry count for a tool's self-repair
	// loop (C5). Only `nexusvision doctor` reads it; BaseTool takes its bound
	// from CodeGenSpec.MaxRetries (default 2), which is not set from here.
	MaxToolRetries int `yaml:"max_tool_retries"`

	// VisionRetryBudget bounds the attempts the LLM façade (C1) makes for
	// one vision call before returning the last error.
	VisionRetryBudget int `yaml:"vision_retry_budget"`

	// WidgetMakerMaxAttempts is the configured attempt count for the nested
	// widget-maker sub-agent (C6). Only `nexusvision doctor` reads it; the
	// tool takes its bound from WidgetMakerConfig.MaxAttempts (default 3),
	// which is not set from here.
	WidgetMakerMaxAttempts int `yaml:"widget_maker_max_attempts"`
}

// LLMConfig configures the provider façade (C1).
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
	FallbackChain   []string                     `yaml:"fallback_chain"`
}

// LLMProviderConfig configures a single provider binding.
type LLMProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url"`
	Region       string `yaml:"region"` // used by the bedrock provider
}

// ToolsConfig configures the tool registry (C8) and the code-repair
// pipeline (C3) each tool's BaseTool wraps generated code through.
type ToolsConfig struct {
	Repair       RepairConfig        `yaml:"repair"`
	DenyList     []string            `yaml:"deny_list"`
	AllowInstall bool                `yaml:"allow_install"`
	Overrides    map[string]ToolFlag `yaml:"overrides"`
}

// ToolFlag lets a single tool be disabled or marked return-direct from config.
type ToolFlag struct {
	Enabled      *bool `yaml:"enabled"`
	ReturnDirect *bool `yaml:"return_direct"`
}

// RepairConfig independently gates each stage of the code-repair pipeline (C3, §4.3).
type RepairConfig struct {
	MarkdownExtraction  bool `yaml:"markdown_extraction"`
	ImportPrefixing     bool `yaml:"import_prefixing"`
	MissingImportFix    bool `yaml:"missing_import_fix"`
	BadCallFix          bool `yaml:"bad_call_fix"`
	ForbiddenLineFilter bool `yaml:"forbidden_line_filter"`
	PackageInstall      bool `yaml:"package_install"`
	MaxRepairRounds     int  `yaml:"max_repair_rounds"`
}

// PeerConfig configures LAN discovery (C9) and code transfer (C10).
type PeerConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Username        string        `yaml:"username"`
	MulticastGroups []string      `yaml:"multicast_groups"`
	BeaconInterval  time.Duration `yaml:"beacon_interval"`
	ListenTimeout   time.Duration `yaml:"listen_timeout"`
	SilentLoopAfter time.Duration `yaml:"silent_loop_after"`
	TCPPortRangeLo  int           `yaml:"tcp_port_range_lo"`
	TCPPortRangeHi  int           `yaml:"tcp_port_range_hi"`
	SendRetries     int           `yaml:"send_retries"`
	SendRetryDelay  time.Duration `yaml:"send_retry_delay"`
	// FreshnessWindow is 0 by default (§9 Open Question: peers never
	// expire unless an operator opts into Prune(window)).
	FreshnessWindow time.Duration `yaml:"freshness_window"`
}

// LoggingConfig configures the ambient structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// ObservabilityConfig configures metrics and tracing export.
type ObservabilityConfig struct {
	MetricsEnabled bool              `yaml:"metrics_enabled"`
	Tracing        TracingConfigYAML `yaml:"tracing"`
}

// TracingConfigYAML mirrors observability.TraceConfig for YAML decoding.
type TracingConfigYAML struct {
	ServiceName    string            `yaml:"service_name"`
	Endpoint       string            `yaml:"endpoint"`
	SamplingRate   float64           `yaml:"sampling_rate"`
	Environment    string            `yaml:"environment"`
	EnableInsecure bool              `yaml:"enable_insecure"`
	Attributes     map[string]string `yaml:"attributes"`
}

func (c *Config) applyDefaults() {
	if c.Session.TokenCeiling == 0 {
		c.Session.TokenCeiling = 6000
	}
	if c.Session.MaxToolRetries == 0 {
		c.Session.MaxToolRetries = 2
	}
	if c.Session.VisionRetryBudget == 0 {
		c.Session.VisionRetryBudget = 4
	}
	if c.Session.WidgetMakerMaxAttempts == 0 {
		c.Session.WidgetMakerMaxAttempts = 3
	}
	if c.Tools.Repair.MaxRepairRounds == 0 {
		c.Tools.Repair.MaxRepairRounds = 2
	}
	if c.Peer.BeaconInterval == 0 {
		c.Peer.BeaconInterval = 5 * time.Second
	}
	if c.Peer.ListenTimeout == 0 {
		c.Peer.ListenTimeout = time.Second
	}
	if c.Peer.SilentLoopAfter == 0 {
		c.Peer.SilentLoopAfter = 30 * time.Second
	}
	if c.Peer.TCPPortRangeLo == 0 {
		c.Peer.TCPPortRangeLo = 5000
	}
	if c.Peer.TCPPortRangeHi == 0 {
		c.Peer.TCPPortRangeHi = 5100
	}
	if c.Peer.SendRetries == 0 {
		c.Peer.SendRetries = 10
	}
	if c.Peer.SendRetryDelay == 0 {
		c.Peer.SendRetryDelay = 100 * time.Millisecond
	}
	if len(c.Peer.MulticastGroups) == 0 {
		c.Peer.MulticastGroups = []string{"224.0.0.241:54545", "224.0.0.242:54546"}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate checks invariants the loader cannot express structurally.
func (c *Config) Validate() error {
	if c.Peer.TCPPortRangeLo > c.Peer.TCPPortRangeHi {
		return fmt.Errorf("peer.tcp_port_range_lo (%d) must be <= peer.tcp_port_range_hi (%d)",
			c.Peer.TCPPortRangeLo, c.Peer.TCPPortRangeHi)
	}
	if c.Session.TokenCeiling < 0 {
		return fmt.Errorf("session.token_ceiling must be >= 0")
	}
	return nil
}
