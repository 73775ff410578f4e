package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nexus-vision/agentcore/internal/models"
)

type fakeHost struct{ layers []string }

func TestBridge_HappyPath(t *testing.T) {
	b := New[*fakeHost](&fakeHost{})
	defer b.Shutdown(context.Background())

	task := models.Task[*fakeHost](func(h *fakeHost) (any, error) {
		h.layers = append(h.layers, "new-layer")
		return len(h.layers), nil
	})

	v, guard, err := b.Submit(context.Background(), task)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if guard != nil {
		t.Fatalf("unexpected guard: %+v", guard)
	}
	if v.(int) != 1 {
		t.Fatalf("expected 1, got %v", v)
	}
}

func TestBridge_FailurePathReturnsExceptionGuard(t *testing.T) {
	b := New[*fakeHost](&fakeHost{})
	defer b.Shutdown(context.Background())

	task := models.Task[*fakeHost](func(h *fakeHost) (any, error) {
		return nil, errors.New("boom")
	})

	v, guard, err := b.Submit(context.Background(), task)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if v != nil {
		t.Fatalf("expected nil value, got %v", v)
	}
	if guard == nil || guard.ExceptionValue != "boom" {
		t.Fatalf("expected guard capturing 'boom', got %+v", guard)
	}
}

func TestBridge_PanicRecoveredAsGuard(t *testing.T) {
	b := New[*fakeHost](&fakeHost{})
	defer b.Shutdown(context.Background())

	task := models.Task[*fakeHost](func(h *fakeHost) (any, error) {
		panic("unexpected host failure")
	})

	_, guard, err := b.Submit(context.Background(), task)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if guard == nil || guard.ExceptionTypeName != "PanicRecovered" {
		t.Fatalf("expected PanicRecovered guard, got %+v", guard)
	}
}

func TestBridge_TasksAreSerialised(t *testing.T) {
	b := New[*fakeHost](&fakeHost{})
	defer b.Shutdown(context.Background())

	var order []int
	recordingTask := func(n int) models.Task[*fakeHost] {
		return func(h *fakeHost) (any, error) {
			order = append(order, n)
			return nil, nil
		}
	}

	for i := 0; i < 5; i++ {
		if _, _, err := b.Submit(context.Background(), recordingTask(i)); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	if len(order) != 5 {
		t.Fatalf("expected 5 tasks to have run, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected serial order, got %v", order)
		}
	}
}

func TestBridge_ShutdownRejectsFurtherSubmits(t *testing.T) {
	b := New[*fakeHost](&fakeHost{})

	if err := b.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err := b.Submit(ctx, func(h *fakeHost) (any, error) { return nil, nil })
	if !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown, got %v", err)
	}
}
