// Package registry implements the toolset registry (C8): thread-safe
// registration and lookup of tool descriptors, plus environment capability
// probing (vision support, host platform, a free peer-transfer port); no
// optional library is probed. Grounded on the
// teacher's internal/agent.ToolRegistry (register-by-name, RWMutex-guarded
// map), generalized from tool-call execution to descriptor storage since
// execution itself lives in the agent loop here.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/nexus-vision/agentcore/internal/models"
)

// MaxToolNameLength bounds a tool name the same way the teacher's registry
// bounds tool-call input, as a cheap guard against malformed descriptors.
const MaxToolNameLength = 256

// Registry holds the toolset available to one session. At session
// construction the caller's ToolFactory fills it; no Capabilities probe is
// consulted.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]models.ToolDescriptor
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{tools: make(map[string]models.ToolDescriptor)}
}

// Register adds or replaces a tool descriptor by name.
func (r *Registry) Register(td models.ToolDescriptor) error {
	if td.Name == "" {
		return errNamelessTool
	}
	if len(td.Name) > MaxToolNameLength {
		return errToolNameTooLong
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[td.Name] = td
	return nil
}

// Unregister removes a tool by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns a tool descriptor by name.
func (r *Registry) Get(name string) (models.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	td, ok := r.tools[name]
	return td, ok
}

// List returns all registered descriptors sorted by name, for stable
// prompt-assembly ordering.
func (r *Registry) List() []models.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolDescriptor, 0, len(r.tools))
	for _, td := range r.tools {
		out = append(out, td)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke runs the named tool's handler, or returns an Error ToolResult if
// the tool does not exist. Like ToolHandler, it has no Go error return.
func (r *Registry) Invoke(ctx context.Context, tc models.ToolContext, name, input string) models.ToolResult {
	td, ok := r.Get(name)
	if !ok {
		return models.ErrorResult(tc.ToolCallID, "UnknownTool", "no tool registered with name '"+name+"'", "")
	}
	return td.Handler(ctx, tc, input)
}

type registryError string

func (e registryError) Error() string { return string(e) }

const (
	errNamelessTool    registryError = "registry: tool descriptor has an empty name"
	errToolNameTooLong registryError = "registry: tool name exceeds maximum length"
)
