// Package bridge implements the host bridge (C4) and exception guard (C2):
// the cross-thread mailbox that marshals work from the agent/tool
// goroutines onto the host's single GUI-thread-equivalent goroutine.
//
// This is modeled directly on napari_bridge.py's to_napari_queue /
// from_napari_queue pair (Queue(maxsize=16)) and its ExceptionGuard context
// manager: a Task is submitted, runs exactly once on the dedicated worker,
// and its result or captured failure is handed back to the submitter.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/observability"
)

// queueCapacity matches napari_bridge.py's Queue(maxsize=16); saturation blocks
// the submitter so the GUI thread is never flooded (§5 Backpressure).
const queueCapacity = 16

// ErrShutdown is returned to any submitter once the bridge has processed
// its shutdown sentinel; no further Tasks are accepted.
var ErrShutdown = errors.New("bridge: shut down")

type envelope[H any] struct {
	task   models.Task[H]
	result chan result
}

type result struct {
	value any
	guard *models.ExceptionGuard
}

// Bridge runs one dedicated worker goroutine standing in for the host's
// GUI thread. Exactly one Task executes at a time; Tasks are serialised.
//
// The original napari_bridge.py moves work across two bounded queues: one
// carrying Tasks to the GUI thread, one carrying results back. Here the
// inbox channel is that first queue; since each submission owns a private
// one-slot result channel instead of sharing a second bounded queue, the
// pending-deliveries counter plays the role of the outbox's depth.
type Bridge[H any] struct {
	host    H
	inbox   chan envelope[H]
	pending int64 // results computed but not yet claimed by their submitter
	done    chan struct{}
	closed  chan struct{}

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// Option configures optional Bridge behavior.
type Option[H any] func(*Bridge[H])

// WithObservability attaches logging, metrics, and tracing to the bridge.
func WithObservability[H any](logger *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) Option[H] {
	return func(b *Bridge[H]) { b.logger, b.metrics, b.tracer = logger, metrics, tracer }
}

// New creates a Bridge bound to the given host handle and starts its
// worker goroutine. Call Shutdown to stop it.
func New[H any](host H, opts ...Option[H]) *Bridge[H] {
	b := &Bridge[H]{
		host:   host,
		inbox:  make(chan envelope[H], queueCapacity),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	go b.run()
	return b
}

// Submit blocks the caller until the Task has run on the host thread and
// returns its value, or an ExceptionGuard if the Task panicked or errored.
// Submit itself returns an error only for bridge-level conditions (context
// cancellation, shutdown); Task failures never surface as a Go error here,
// per C2's ownership contract (capture, don't propagate).
func (b *Bridge[H]) Submit(ctx context.Context, task models.Task[H]) (any, *models.ExceptionGuard, error) {
	if b.tracer != nil {
		spanCtx, span := b.tracer.TraceBridgeSubmit(ctx)
		defer span.End()
		ctx = spanCtx
	}

	env := envelope[H]{task: task, result: make(chan result, 1)}

	b.setQueueDepthMetric()

	select {
	case <-b.closed:
		return nil, nil, ErrShutdown
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case b.inbox <- env:
	}

	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case r := <-env.result:
		atomic.AddInt64(&b.pending, -1)
		b.setOutboxDepthMetric()
		return r.value, r.guard, nil
	}
}

// Shutdown signals the worker to stop accepting new Tasks and waits for it
// to drain and exit. Pending submitters already blocked in Submit receive
// ErrShutdown or an ExceptionGuard; no Task is abandoned mid-execution.
func (b *Bridge[H]) Shutdown(ctx context.Context) error {
	select {
	case <-b.closed:
		return nil
	default:
	}
	close(b.done)
	select {
	case <-b.closedSignal():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bridge[H]) closedSignal() <-chan struct{} { return b.closed }

func (b *Bridge[H]) run() {
	defer close(b.closed)
	for {
		select {
		case <-b.done:
			b.drain()
			return
		case env := <-b.inbox:
			b.execute(env)
		}
	}
}

// drain rejects any Tasks still queued once shutdown has been requested,
// so no submitter blocks forever on a bridge that will never run them.
func (b *Bridge[H]) drain() {
	for {
		select {
		case env := <-b.inbox:
			env.result <- result{guard: &models.ExceptionGuard{
				ExceptionTypeName: "BridgeShutdown",
				ExceptionValue:    "bridge shut down before task ran",
			}}
		default:
			return
		}
	}
}

func (b *Bridge[H]) execute(env envelope[H]) {
	start := time.Now()
	value, guard := runGuarded(env.task, b.host)
	d := time.Since(start)

	if b.metrics != nil {
		outcome := "success"
		if guard != nil {
			outcome = "error"
		}
		b.metrics.RecordBridgeTask(outcome, d.Seconds())
	}
	if b.logger != nil && guard != nil {
		b.logger.Warn(context.Background(), "bridge task failed", "exception", guard.Error())
	}

	atomic.AddInt64(&b.pending, 1)
	b.setOutboxDepthMetric()
	env.result <- result{value: value, guard: guard}
}

// runGuarded is the exception guard (C2): it activates on entry and on
// exit captures any panic or error into an ExceptionGuard rather than
// letting it cross the channel boundary as a live error or, worse, an
// unrecovered panic that would kill the worker goroutine.
func runGuarded[H any](task models.Task[H], host H) (value any, guard *models.ExceptionGuard) {
	defer func() {
		if r := recover(); r != nil {
			guard = &models.ExceptionGuard{
				ExceptionTypeName: "PanicRecovered",
				ExceptionValue:    fmt.Sprintf("%v", r),
				Traceback:         string(debug.Stack()),
			}
			value = nil
		}
	}()

	v, err := task(host)
	if err != nil {
		return nil, &models.ExceptionGuard{
			ExceptionTypeName: exceptionTypeName(err),
			ExceptionValue:    err.Error(),
		}
	}
	return v, nil
}

func exceptionTypeName(err error) string {
	var guard *models.ExceptionGuard
	if errors.As(err, &guard) {
		return guard.ExceptionTypeName
	}
	return fmt.Sprintf("%T", err)
}

func (b *Bridge[H]) setQueueDepthMetric() {
	if b.metrics == nil {
		return
	}
	b.metrics.SetBridgeQueueDepth("inbox", len(b.inbox))
}

func (b *Bridge[H]) setOutboxDepthMetric() {
	if b.metrics == nil {
		return
	}
	b.metrics.SetBridgeQueueDepth("outbox", int(atomic.LoadInt64(&b.pending)))
}
