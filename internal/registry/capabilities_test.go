package registry_test

import (
	"context"
	"net"
	"testing"

	"github.com/nexus-vision/agentcore/internal/llm"
	"github.com/nexus-vision/agentcore/internal/llm/providers"
	"github.com/nexus-vision/agentcore/internal/registry"
)

func TestProbeCapabilities_ReportsVisionModelWhenAvailable(t *testing.T) {
	vision := llm.Model{ID: "vision-model", Provider: "fake", SupportsVision: true}
	facade := llm.NewFacade([]llm.Provider{providers.NewFakeProvider(vision)})

	caps := registry.ProbeCapabilities(context.Background(), facade, 40000, 40001)
	if !caps.SupportsVision || caps.VisionModel != "vision-model" {
		t.Fatalf("expected vision support reported, got %+v", caps)
	}
	if caps.Platform == "" {
		t.Fatalf("expected a non-empty platform string")
	}
}

func TestProbeCapabilities_NoVisionWithTextOnlyModel(t *testing.T) {
	textOnly := llm.Model{ID: "text-model", Provider: "fake", SupportsVision: false}
	facade := llm.NewFacade([]llm.Provider{providers.NewFakeProvider(textOnly)})

	caps := registry.ProbeCapabilities(context.Background(), facade, 40010, 40011)
	if caps.SupportsVision {
		t.Fatalf("expected no vision support, got %+v", caps)
	}
}

func TestProbeCapabilities_NilFacadeReportsNoVision(t *testing.T) {
	caps := registry.ProbeCapabilities(context.Background(), nil, 40020, 40021)
	if caps.SupportsVision {
		t.Fatalf("expected no vision support with a nil facade, got %+v", caps)
	}
}

func TestProbeCapabilities_PeerTransportFreeDetectsOpenPort(t *testing.T) {
	caps := registry.ProbeCapabilities(context.Background(), nil, 40030, 40040)
	if !caps.PeerTransportFree {
		t.Fatalf("expected at least one free port in a wide ephemeral range")
	}
}

func TestProbeCapabilities_PeerTransportNotFreeWhenRangeOccupied(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("could not bind a test listener: %v", err)
	}
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	caps := registry.ProbeCapabilities(context.Background(), nil, port, port)
	if caps.PeerTransportFree {
		t.Fatalf("expected the single occupied port to be reported as not free")
	}
}
