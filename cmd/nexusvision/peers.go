package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexus-vision/agentcore/internal/config"
	"github.com/nexus-vision/agentcore/internal/peer"
)

func buildPeersCmd() *cobra.Command {
	var (
		configPath string
		listen     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "peers",
		Short: "Listen for LAN peer beacons for a fixed window and print the directory",
		Long: `Bind the peer discovery listener (C9) for --listen and print every peer
beacon observed, then exit. Useful for verifying multicast reachability
without running the full agent core.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPeers(cmd, configPath, listen)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "nexusvision.yaml", "Path to YAML/JSON5 configuration file")
	cmd.Flags().DurationVar(&listen, "listen", 5*time.Second, "How long to listen for beacons before printing results")
	return cmd
}

func runPeers(cmd *cobra.Command, configPath string, listen time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	groups, err := peer.ParseMulticastGroups(cfg.Peer.MulticastGroups)
	if err != nil {
		return fmt.Errorf("invalid peer.multicast_groups: %w", err)
	}

	dir := peer.NewDirectory()
	listener := peer.NewListener(groups, dir, nil)

	ctx, cancel := context.WithTimeout(cmd.Context(), listen)
	defer cancel()

	_ = listener.Run(ctx)

	out := cmd.OutOrStdout()
	peers := dir.List()
	if len(peers) == 0 {
		fmt.Fprintln(out, "no peers observed")
		return nil
	}
	for _, p := range peers {
		fmt.Fprintf(out, "%s@%s  %s:%d  last seen %s\n", p.Username, p.Hostname, p.IPAddress, p.TCPPort, p.LastSeen.Format(time.RFC3339))
	}
	return nil
}
