// Package host defines the narrow external interfaces the agent core
// consumes from whatever viewer application embeds it (§6). These are
// opaque to the core: it never inspects Handle, it only passes it to
// Tasks executed on the host's GUI thread by the bridge (internal/bridge).
package host

import "context"

// Handle is the opaque reference passed to every bridge Task (C4, §6). A
// Task uses it to read/modify the host's layer collection and register
// dockable widgets; the bridge requires only that it is safe to use on the
// GUI thread.
type Handle any

// InfoFunc returns a human-readable summary of current host state (layer
// names, data shapes, dtypes, per-layer simple statistics), used inside
// prompts assembled by C5.
type InfoFunc func(ctx context.Context, h Handle) (string, error)

// ScreenshotFunc returns an image of the host canvas, or of a named layer
// when layerName is non-empty, used by the vision tool.
type ScreenshotFunc func(ctx context.Context, h Handle, layerName string) (Image, error)

// Image is a minimal image container wide enough to carry any raster
// format the vision call needs; the façade (internal/llm) treats the
// bytes as an opaque attachment keyed by MIMEType.
type Image struct {
	MIMEType string
	Data     []byte
}

// NotebookSink is the append-only recording surface the core calls on
// successful tool executions (§6 "Notebook sink").
type NotebookSink interface {
	AddCodeCell(ctx context.Context, text string) error
	AddMarkdownCell(ctx context.Context, text string) error
	AddImageCell(ctx context.Context, img Image, caption string) error
}

// NopNotebookSink discards everything; used when no notebook sink is
// configured for a session.
type NopNotebookSink struct{}

func (NopNotebookSink) AddCodeCell(context.Context, string) error         { return nil }
func (NopNotebookSink) AddMarkdownCell(context.Context, string) error     { return nil }
func (NopNotebookSink) AddImageCell(context.Context, Image, string) error { return nil }
