package registry

import (
	"context"
	"net"
	"runtime"
	"strconv"

	"github.com/nexus-vision/agentcore/internal/llm"
)

// Capabilities describes what the running environment can actually do: the
// host platform, a vision-capable model, and a free TCP port in the transfer
// range. session.Controller does not call ProbeCapabilities; the tools a
// session gets are whatever its ToolFactory registers.
type Capabilities struct {
	Platform          string
	VisionModel       string
	SupportsVision    bool
	PeerTransportFree bool
	OptionalLibraries map[string]bool
}

// ProbeCapabilities inspects the running environment. facade may be nil if
// no LLM façade is configured yet (vision support is then reported false).
// OptionalLibraries is returned empty: no library is probed.
func ProbeCapabilities(ctx context.Context, facade *llm.Facade, peerPortLo, peerPortHi int) Capabilities {
	caps := Capabilities{
		Platform:          runtime.GOOS,
		OptionalLibraries: map[string]bool{},
	}

	if facade != nil {
		if model, ok := facade.BestModel(llm.FeatureVision); ok {
			caps.VisionModel = model
			caps.SupportsVision = true
		}
	}

	caps.PeerTransportFree = probeFreePort(peerPortLo, peerPortHi)

	return caps
}

// probeFreePort reports whether at least one port in [lo, hi] is currently
// bindable, the same range C10's transfer server itself probes at startup.
func probeFreePort(lo, hi int) bool {
	for port := lo; port <= hi; port++ {
		addr := net.JoinHostPort("", strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			continue
		}
		_ = ln.Close()
		return true
	}
	return false
}
