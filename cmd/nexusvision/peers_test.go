package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPeersCommandFlags(t *testing.T) {
	cmd := buildPeersCmd()
	if cmd.Name() != "peers" {
		t.Fatalf("expected command name %q, got %q", "peers", cmd.Name())
	}
	if f := cmd.Flags().Lookup("config"); f == nil || f.DefValue != "nexusvision.yaml" {
		t.Fatalf("expected a --config flag defaulting to nexusvision.yaml, got %+v", f)
	}
	if f := cmd.Flags().Lookup("listen"); f == nil || f.DefValue != "5s" {
		t.Fatalf("expected a --listen flag defaulting to 5s, got %+v", f)
	}
}

func TestPeersCommandRejectsMalformedMulticastGroup(t *testing.T) {
	path := writeTestConfig(t, `
llm:
  default_provider: anthropic
  providers:
    anthropic: {}
peer:
  enabled: true
  multicast_groups:
    - "not-a-host-port"
`)

	cmd := buildPeersCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "--listen", "1ms"})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error for a malformed peer.multicast_groups entry")
	}
	if !strings.Contains(err.Error(), "multicast_groups") {
		t.Fatalf("expected the error to mention multicast_groups, got %v", err)
	}
}
