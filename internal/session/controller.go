package session

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nexus-vision/agentcore/internal/agentloop"
	"github.com/nexus-vision/agentcore/internal/bridge"
	"github.com/nexus-vision/agentcore/internal/coderepair"
	"github.com/nexus-vision/agentcore/internal/config"
	"github.com/nexus-vision/agentcore/internal/llm"
	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/observability"
	"github.com/nexus-vision/agentcore/internal/peer"
	"github.com/nexus-vision/agentcore/internal/registry"
	"github.com/nexus-vision/agentcore/internal/tools"
)

// ToolFactory registers one host's tool set into reg once the bridge and
// outer agent loop (used as the widget-maker's nested sub-agent, see
// tools.SubAgentRunner) both exist. Kept as a caller-supplied hook because
// the code-to-Task runners a tool needs (tools.CodeRunner[H]) are
// necessarily host-specific; Controller itself stays host-agnostic beyond
// the H type parameter.
type ToolFactory[H any] func(reg *registry.Registry, br *bridge.Bridge[H], subAgent tools.SubAgentRunner, pipeline *coderepair.Pipeline)

// ReceivedCodeHandler is invoked when a peer transfer (C10) delivers a
// CodeMessage this instance accepts. The default handler only logs the
// delivery; a caller that wants to, say, insert the snippet into the host
// console supplies its own.
type ReceivedCodeHandler func(ctx context.Context, from string, msg models.CodeMessage) error

// Controller is the session controller (C11): it binds one host handle to
// its bridge (C4), tool registry (C8), agent loop (C7), and — if configured
// — the peer discovery/transfer services (C9/C10), and serializes agent
// turns per session, grounded on cmd/nexus/commands_serve.go's construction
// sequence and internal/agents/heartbeat/runner.go's goroutine-group shape.
type Controller[H any] struct {
	store      Store
	bridge     *bridge.Bridge[H]
	registry   *registry.Registry
	loop       *agentloop.Loop
	sessionCfg config.SessionConfig

	mu       sync.Mutex
	sessions map[string]*sessionState

	peerDirectory *peer.Directory
	peerListener  *peer.Listener
	peerBeacon    *peer.Beacon
	peerServer    *peer.Server
	peerClient    *peer.Client
	peerGroup     *errgroup.Group
	peerCancel    context.CancelFunc
	receivedCode  ReceivedCodeHandler

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// sessionState holds one session's live conversation history and the
// per-session mutex that serializes its turns (§9 Open Question: concurrent
// turns on the same session are not permitted).
type sessionState struct {
	mu      sync.Mutex
	history *models.ConversationHistory
}

// sinkContextKey carries the calling turn's external EventSink through
// ctx, rather than looking it up by session ID: the widget-maker's nested
// sub-agent (C6) runs with sessionID "" (see agentloop.RunToCompletion), so
// a session-ID-keyed lookup would silently drop its events. Propagating the
// sink through ctx instead means it reaches nested turns automatically,
// since context values flow through every call in the chain.
type sinkContextKey struct{}

func withSink(ctx context.Context, sink agentloop.EventSink) context.Context {
	return context.WithValue(ctx, sinkContextKey{}, sink)
}

// Option configures optional Controller behavior.
type Option[H any] func(*Controller[H])

// WithObservability attaches logging, metrics, and tracing, propagated to
// every component the Controller constructs.
func WithObservability[H any](logger *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) Option[H] {
	return func(c *Controller[H]) { c.logger, c.metrics, c.tracer = logger, metrics, tracer }
}

// WithReceivedCodeHandler overrides the default log-only handling of
// accepted peer code drops.
func WithReceivedCodeHandler[H any](h ReceivedCodeHandler) Option[H] {
	return func(c *Controller[H]) { c.receivedCode = h }
}

// NewController builds the Controller's full dependency graph in
// construction order: bridge, registry, outer agent loop (referencing that
// same registry so tools registered into it afterward are visible at
// lookup time), the caller's tools, and — if cfg.Peer.Enabled — the peer
// services. It does not start any peer goroutines; call Start for that.
func NewController[H any](
	host H,
	cfg *config.Config,
	facade *llm.Facade,
	model, systemPrompt string,
	pipeline *coderepair.Pipeline,
	store Store,
	buildTools ToolFactory[H],
	opts ...Option[H],
) (*Controller[H], error) {
	c := &Controller[H]{
		store:      store,
		sessionCfg: cfg.Session,
		sessions:   make(map[string]*sessionState),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.bridge = bridge.New[H](host, bridge.WithObservability[H](c.logger, c.metrics, c.tracer))
	c.registry = registry.New()

	loopConfig := agentloop.DefaultConfig()
	c.loop = agentloop.New(facade, model, systemPrompt, c.registry, loopConfig,
		agentloop.WithEventSink(c),
		agentloop.WithObservability(c.logger, c.metrics, c.tracer))

	if buildTools != nil {
		buildTools(c.registry, c.bridge, c.loop, pipeline)
	}

	if cfg.Peer.Enabled {
		if err := c.buildPeerServices(cfg); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Controller[H]) buildPeerServices(cfg *config.Config) error {
	groups, err := peer.ParseMulticastGroups(cfg.Peer.MulticastGroups)
	if err != nil {
		return fmt.Errorf("session: invalid peer multicast group: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown-host"
	}
	username := cfg.Peer.Username
	if username == "" {
		username = "anonymous"
	}

	if c.receivedCode == nil {
		c.receivedCode = func(ctx context.Context, from string, msg models.CodeMessage) error {
			if c.logger != nil {
				c.logger.Info(ctx, "peer: accepted code drop", "from", from, "sender", msg.Hostname, "filename", msg.Filename)
			}
			return nil
		}
	}

	server, err := peer.NewServer(func(ctx context.Context, from net.Addr, msg models.CodeMessage) bool {
		_ = c.receivedCode(ctx, from.String(), msg)
		return true
	}, c.logger)
	if err != nil {
		return fmt.Errorf("session: could not start peer transfer server: %w", err)
	}

	c.peerDirectory = peer.NewDirectory()
	c.peerListener = peer.NewListener(groups, c.peerDirectory, c.logger)
	c.peerBeacon = peer.NewBeacon(groups, username, hostname, server.Port(), peer.WithFixedInterval(cfg.Peer.BeaconInterval))
	c.peerServer = server
	c.peerClient = peer.NewClient(hostname, username)
	return nil
}

// Start launches the peer discovery listener, beacon, and transfer accept
// loop as a coordinated goroutine group (an errgroup from golang.org/x/sync),
// following the teacher's goroutine-group
// conventions. It is a no-op if peer services were not configured. The
// bridge's own worker goroutine is already started by bridge.New and needs
// no group membership, only deterministic teardown ordering in Shutdown.
func (c *Controller[H]) Start(ctx context.Context) error {
	if c.peerDirectory == nil {
		return nil
	}
	groupCtx, cancel := context.WithCancel(ctx)
	c.peerCancel = cancel
	g, groupCtx := errgroup.WithContext(groupCtx)
	g.Go(func() error { return c.peerListener.Run(groupCtx) })
	g.Go(func() error { return c.peerBeacon.Run(groupCtx) })
	g.Go(func() error { return c.peerServer.Run(groupCtx) })
	c.peerGroup = g
	return nil
}

// Shutdown stops the peer goroutine group (if running), then the host
// bridge worker, in that order: peer services never submit bridge Tasks, so
// there is no ordering hazard in stopping the bridge second, but stopping it
// first would leave the peer accept loop attempting to respond to
// in-flight transfers with nowhere to route anything that touched the host.
func (c *Controller[H]) Shutdown(ctx context.Context) error {
	var peerErr error
	if c.peerCancel != nil {
		c.peerCancel()
	}
	if c.peerGroup != nil {
		peerErr = c.peerGroup.Wait()
	}
	if c.peerServer != nil {
		_ = c.peerServer.Close()
	}
	if err := c.bridge.Shutdown(ctx); err != nil {
		return err
	}
	return peerErr
}

// Peers returns a snapshot of every peer discovered so far. Returns nil if
// peer services are not configured.
func (c *Controller[H]) Peers() []models.PeerRecord {
	if c.peerDirectory == nil {
		return nil
	}
	return c.peerDirectory.List()
}

// SendCode hands a code snippet to a discovered peer over the transfer
// protocol (C10). Returns an error if peer services are not configured.
func (c *Controller[H]) SendCode(ctx context.Context, addr string, port int, filename, code string) error {
	if c.peerClient == nil {
		return fmt.Errorf("session: peer services are not enabled")
	}
	return c.peerClient.Send(ctx, addr, port, filename, code)
}

// HandleTurn serializes one user turn against sessionID: it ensures the
// session exists (replaying its persisted history on first use), runs the
// agent loop, and forwards ChatEvents to sink for the duration of the call
// while durably persisting the turn's user/assistant/tool messages to
// Store, sidestepping ConversationHistory's internal message-index
// bookkeeping (enforceBudget can retroactively evict or summarize older
// messages, so diffing message counts before/after a turn is not reliable).
func (c *Controller[H]) HandleTurn(ctx context.Context, sessionID, userInput string, sink agentloop.EventSink) (string, error) {
	st, err := c.sessionFor(ctx, sessionID)
	if err != nil {
		return "", err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	ctx = withSink(ctx, sink)
	return c.loop.Run(ctx, st.history, sessionID, userInput)
}

// History returns a session's current in-memory conversation (post any
// summarization), building it from the persisted Store on first access.
func (c *Controller[H]) History(ctx context.Context, sessionID string) ([]*models.Message, error) {
	st, err := c.sessionFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.history.Messages(), nil
}

func (c *Controller[H]) sessionFor(ctx context.Context, sessionID string) (*sessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st, ok := c.sessions[sessionID]; ok {
		return st, nil
	}

	if _, err := c.store.EnsureSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("session: could not ensure session %q: %w", sessionID, err)
	}
	persisted, err := c.store.History(ctx, sessionID, 0)
	if err != nil {
		return nil, fmt.Errorf("session: could not load history for %q: %w", sessionID, err)
	}

	history := models.NewConversationHistory(c.sessionCfg.TokenCeiling)
	for _, m := range persisted {
		history.Append(m)
	}

	st := &sessionState{history: history}
	c.sessions[sessionID] = st
	return st, nil
}

// Emit implements agentloop.EventSink: it is the sink every agent loop
// instance the Controller builds (including the widget-maker's nested
// sub-agent) was constructed with. It forwards to whichever external sink
// the in-flight HandleTurn call supplied, then persists the events that
// correspond 1:1 to a message the loop itself appends to the session's
// ConversationHistory (user input, tool results, the final answer).
func (c *Controller[H]) Emit(ctx context.Context, e models.ChatEvent) {
	if sink, ok := ctx.Value(sinkContextKey{}).(agentloop.EventSink); ok && sink != nil {
		sink.Emit(ctx, e)
	}

	sessionID, _ := ctx.Value(observability.SessionIDKey).(string)
	c.persist(ctx, sessionID, e)
}

func (c *Controller[H]) persist(ctx context.Context, sessionID string, e models.ChatEvent) {
	if sessionID == "" || c.store == nil {
		return
	}

	var msg *models.Message
	switch {
	case e.Type == models.ChatEventStream && e.Sender == models.SenderUser:
		msg = models.NewTextMessage(models.RoleUser, e.Message)
	case e.Type == models.ChatEventToolResult:
		msg = models.NewTextMessage(models.RoleTool, e.Message)
	case e.Type == models.ChatEventFinal:
		msg = models.NewTextMessage(models.RoleAssistant, e.Message)
	default:
		return
	}

	if err := c.store.AppendMessage(ctx, sessionID, msg); err != nil && c.logger != nil {
		c.logger.Warn(ctx, "session: could not persist message", "session_id", sessionID, "error", err.Error())
	}
}
