// Package agentloop implements the agent loop (C7): a state machine that
// drives one conversation turn from the user's request to a final answer,
// calling the LLM, invoking tools through the registry, and streaming
// ChatEvents to an observer along the way. Grounded on the teacher's
// internal/agent.AgenticLoop (loop.go) and its Phase state machine,
// generalized from the teacher's richer branch/job/approval machinery down
// to this spec's simpler sequential-by-default contract.
package agentloop

import (
	"context"

	"github.com/nexus-vision/agentcore/internal/models"
)

// EventSink receives ChatEvents during a turn. Implementations must be
// safe to call from the loop's own goroutine; they are called
// synchronously and in causal order, never concurrently with each other.
type EventSink interface {
	Emit(ctx context.Context, e models.ChatEvent)
}

// ChanSink streams events onto a buffered channel, dropping events rather
// than blocking the loop if the channel is full or ctx is done — grounded
// on the teacher's ChanSink (internal/agent/event_sink.go).
type ChanSink struct {
	ch chan<- models.ChatEvent
}

// NewChanSink wraps a channel as an EventSink. The channel should be
// buffered; an unbuffered channel with no reader drops every event.
func NewChanSink(ch chan<- models.ChatEvent) *ChanSink { return &ChanSink{ch: ch} }

// Emit implements EventSink.
func (s *ChanSink) Emit(ctx context.Context, e models.ChatEvent) {
	select {
	case s.ch <- e:
	case <-ctx.Done():
	default:
	}
}

// MultiSink fans one event out to several sinks, filtering nil entries —
// grounded on the teacher's MultiSink.
type MultiSink struct {
	sinks []EventSink
}

// NewMultiSink builds a MultiSink from zero or more sinks, any of which may
// be nil.
func NewMultiSink(sinks ...EventSink) *MultiSink {
	filtered := make([]EventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiSink{sinks: filtered}
}

// Emit implements EventSink.
func (s *MultiSink) Emit(ctx context.Context, e models.ChatEvent) {
	for _, sink := range s.sinks {
		sink.Emit(ctx, e)
	}
}

// NopSink discards every event.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(context.Context, models.ChatEvent) {}
