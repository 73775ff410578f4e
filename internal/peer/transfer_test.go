package peer

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nexus-vision/agentcore/internal/models"
)

func TestServerClient_RoundTrip(t *testing.T) {
	var mu sync.Mutex
	var received models.CodeMessage
	got := make(chan struct{}, 1)

	server, err := NewServer(func(ctx context.Context, from net.Addr, msg models.CodeMessage) bool {
		mu.Lock()
		received = msg
		mu.Unlock()
		got <- struct{}{}
		return true
	}, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)

	client := NewClient("sender-host", "sender-user")
	if err := client.Send(context.Background(), "127.0.0.1", server.Port(), "snippet.py", "print('hi')"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the server to receive the message")
	}

	mu.Lock()
	defer mu.Unlock()
	if received.Hostname != "sender-host" || received.Username != "sender-user" || received.Filename != "snippet.py" || received.Code != "print('hi')" {
		t.Fatalf("unexpected received message: %+v", received)
	}
}

func TestServerClient_RejectsMalformedPayload(t *testing.T) {
	called := make(chan struct{}, 1)
	server, err := NewServer(func(ctx context.Context, from net.Addr, msg models.CodeMessage) bool {
		called <- struct{}{}
		return true
	}, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)

	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(server.Port())))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if _, err := conn.Write([]byte("not json")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	conn.Close()

	select {
	case <-called:
		t.Fatal("expected the accept callback not to run for a malformed payload")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestClient_SendSerializesConcurrentCalls(t *testing.T) {
	server, err := NewServer(func(ctx context.Context, from net.Addr, msg models.CodeMessage) bool { return true }, nil)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Run(ctx)

	client := NewClient("host", "user")
	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- client.Send(context.Background(), "127.0.0.1", server.Port(), "f.py", "pass")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Send() error = %v", err)
		}
	}
}
