package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/observability"
)

const (
	transferPortLow    = 5000
	transferPortHigh   = 5100
	sendRetryAttempts  = 10
	sendRetryBackoff   = 100 * time.Millisecond
	maxMessageBodySize = 8 << 20 // generous ceiling on one code-drop payload
)

// AcceptFunc decides whether to accept a received CodeMessage (e.g. an
// interactive confirmation prompt), and handles it when accepted.
type AcceptFunc func(ctx context.Context, from net.Addr, msg models.CodeMessage) (accept bool)

// Server listens on one TCP port in [5000, 5100] (probed at construction,
// matching CodeDropServer._find_port) and hands each incoming one-shot
// connection's decoded CodeMessage to an AcceptFunc.
type Server struct {
	listener net.Listener
	port     int
	accept   AcceptFunc
	logger   *observability.Logger
}

// NewServer probes the fixed port range for a bindable TCP port and starts
// listening on it immediately; call Run to begin accepting connections.
func NewServer(accept AcceptFunc, logger *observability.Logger) (*Server, error) {
	ln, port, err := probeListenerInRange(transferPortLow, transferPortHigh)
	if err != nil {
		return nil, fmt.Errorf("peer: no transfer port available in [%d, %d]: %w", transferPortLow, transferPortHigh, err)
	}
	return &Server{listener: ln, port: port, accept: accept, logger: logger}, nil
}

// Port returns the TCP port the server bound to.
func (s *Server) Port() int { return s.port }

// Run accepts connections until ctx is cancelled, decoding exactly one
// JSON-framed CodeMessage per connection (the sender writes the whole
// message, then closes; Run reads to EOF), matching the original's
// one-shot connect/sendall/close client behavior.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if s.logger != nil {
				s.logger.Warn(ctx, "peer: accept failed", "error", err.Error())
			}
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	body, err := io.ReadAll(io.LimitReader(conn, maxMessageBodySize))
	if err != nil {
		if s.logger != nil {
			s.logger.Warn(ctx, "peer: read failed", "error", err.Error())
		}
		return
	}

	var msg models.CodeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		if s.logger != nil {
			s.logger.Warn(ctx, "peer: malformed code message", "error", err.Error())
		}
		return
	}
	if err := msg.Validate(); err != nil {
		if s.logger != nil {
			s.logger.Warn(ctx, "peer: incomplete code message", "error", err.Error())
		}
		return
	}

	if s.accept != nil {
		s.accept(ctx, conn.RemoteAddr(), msg)
	}
}

func (s *Server) Close() error { return s.listener.Close() }

func probeListenerInRange(low, high int) (net.Listener, int, error) {
	var lastErr error
	for port := low; port <= high; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
		if err != nil {
			lastErr = err
			continue
		}
		return ln, port, nil
	}
	return nil, 0, lastErr
}

// Client sends CodeMessages to discovered peers. It serializes sends
// process-wide with a single mutex, matching CodeDropClient's
// sending_lock and its bounded wait for an in-flight send to finish.
type Client struct {
	mu       sync.Mutex
	hostname string
	username string
}

// NewClient builds a Client identified by the given hostname/username,
// embedded in every CodeMessage it sends.
func NewClient(hostname, username string) *Client {
	return &Client{hostname: hostname, username: username}
}

// Send connects to addr:port, writes one JSON-framed CodeMessage, and
// closes the connection. If another Send is already in flight, it retries
// acquiring the lock up to sendRetryAttempts times before giving up,
// mirroring send_message_by_address's 10x100ms wait-then-abort policy.
func (c *Client) Send(ctx context.Context, addr string, port int, filename, code string) error {
	if !c.tryLock(ctx) {
		return fmt.Errorf("peer: a send is already in progress after %d attempts", sendRetryAttempts)
	}
	defer c.mu.Unlock()

	msg := models.CodeMessage{Hostname: c.hostname, Username: c.username, Filename: filename, Code: code}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("peer: could not encode code message: %w", err)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("peer: could not connect to %s:%d: %w", addr, port, err)
	}
	defer conn.Close()

	if _, err := conn.Write(body); err != nil {
		return fmt.Errorf("peer: could not send code message to %s:%d: %w", addr, port, err)
	}
	return nil
}

func (c *Client) tryLock(ctx context.Context) bool {
	for attempt := 0; attempt < sendRetryAttempts; attempt++ {
		if c.mu.TryLock() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(sendRetryBackoff):
		}
	}
	return false
}
