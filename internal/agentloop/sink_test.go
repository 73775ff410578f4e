package agentloop_test

import (
	"context"
	"testing"

	"github.com/nexus-vision/agentcore/internal/agentloop"
	"github.com/nexus-vision/agentcore/internal/models"
)

func TestChanSink_DropsOnFullChannel(t *testing.T) {
	ch := make(chan models.ChatEvent, 1)
	sink := agentloop.NewChanSink(ch)

	sink.Emit(context.Background(), models.ChatEvent{Type: models.ChatEventStream})
	sink.Emit(context.Background(), models.ChatEvent{Type: models.ChatEventFinal}) // dropped, channel full

	if len(ch) != 1 {
		t.Fatalf("expected exactly 1 buffered event, got %d", len(ch))
	}
	got := <-ch
	if got.Type != models.ChatEventStream {
		t.Fatalf("expected the first event to survive, got %v", got.Type)
	}
}

func TestChanSink_StopsOnDoneContext(t *testing.T) {
	ch := make(chan models.ChatEvent)
	sink := agentloop.NewChanSink(ch)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink.Emit(ctx, models.ChatEvent{Type: models.ChatEventError}) // must not block
}

func TestMultiSink_FansOutAndFiltersNil(t *testing.T) {
	var got1, got2 []models.ChatEvent
	s1 := recordFn(func(e models.ChatEvent) { got1 = append(got1, e) })
	s2 := recordFn(func(e models.ChatEvent) { got2 = append(got2, e) })

	multi := agentloop.NewMultiSink(s1, nil, s2)
	multi.Emit(context.Background(), models.ChatEvent{Type: models.ChatEventThinking})

	if len(got1) != 1 || len(got2) != 1 {
		t.Fatalf("expected both sinks to receive the event: got1=%d got2=%d", len(got1), len(got2))
	}
}

func TestNopSink_DiscardsSilently(t *testing.T) {
	var sink agentloop.NopSink
	sink.Emit(context.Background(), models.ChatEvent{Type: models.ChatEventFinal}) // must not panic
}

type recordFn func(models.ChatEvent)

func (f recordFn) Emit(_ context.Context, e models.ChatEvent) { f(e) }
