package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexus-vision/agentcore/internal/config"
)

func buildDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate a configuration file without starting any services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "nexusvision.yaml", "Path to YAML/JSON5 configuration file")
	return cmd
}

func runDoctor(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config OK: %s\n", configPath)
	fmt.Fprintf(out, "  session.token_ceiling:              %d\n", cfg.Session.TokenCeiling)
	fmt.Fprintf(out, "  session.max_tool_retries:           %d\n", cfg.Session.MaxToolRetries)
	fmt.Fprintf(out, "  session.widget_maker_max_attempts:  %d\n", cfg.Session.WidgetMakerMaxAttempts)
	fmt.Fprintf(out, "  llm.default_provider:               %s\n", cfg.LLM.DefaultProvider)

	if len(cfg.LLM.Providers) == 0 {
		fmt.Fprintln(out, "  warning: no llm.providers configured; serve will fail to start")
	}
	for name := range cfg.LLM.Providers {
		if _, err := buildProvider(cmd.Context(), name, cfg.LLM.Providers[name]); err != nil {
			fmt.Fprintf(out, "  provider %q: FAILED: %v\n", name, err)
			continue
		}
		fmt.Fprintf(out, "  provider %q: OK\n", name)
	}

	fmt.Fprintf(out, "  peer.enabled:                       %v\n", cfg.Peer.Enabled)
	if cfg.Peer.Enabled {
		fmt.Fprintf(out, "  peer.multicast_groups:               %v\n", cfg.Peer.MulticastGroups)
		fmt.Fprintf(out, "  peer.tcp_port_range:                 %d-%d\n", cfg.Peer.TCPPortRangeLo, cfg.Peer.TCPPortRangeHi)
	}
	return nil
}
