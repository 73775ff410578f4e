// Package session implements the session controller (C11): the binding
// sequence that wires one host handle to its bridge (C4), agent loop (C7),
// tool registry (C8), and optional peer services (C9/C10), plus the
// persisted conversation-history Store those sessions read and append to.
// Grounded on internal/sessions.Store and internal/sessions/memory.go, and
// on internal/agents/heartbeat/runner.go for the goroutine-group shape of
// starting and stopping several background workers together.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexus-vision/agentcore/internal/models"
)

// Store persists one session's append-only message history across process
// restarts, mirroring the teacher's Store interface narrowed to what the
// agent core actually needs: a session has no channel/routing concerns
// here, only an identity and a transcript.
type Store interface {
	// EnsureSession creates the session record if it does not already
	// exist; it is a no-op otherwise. Returns the session's creation time.
	EnsureSession(ctx context.Context, sessionID string) (time.Time, error)
	// AppendMessage records one message for sessionID.
	AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error
	// History returns up to limit of the most recent messages in order
	// (oldest first). limit <= 0 means unbounded.
	History(ctx context.Context, sessionID string, limit int) ([]*models.Message, error)
}

// MemoryStore is an in-memory Store for testing and local runs, grounded
// directly on the teacher's MemoryStore.
type MemoryStore struct {
	mu        sync.RWMutex
	createdAt map[string]time.Time
	messages  map[string][]*models.Message
}

// NewMemoryStore builds an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		createdAt: map[string]time.Time{},
		messages:  map[string][]*models.Message{},
	}
}

func (m *MemoryStore) EnsureSession(ctx context.Context, sessionID string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.createdAt[sessionID]; ok {
		return t, nil
	}
	now := time.Now()
	m.createdAt[sessionID] = now
	return now, nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	if msg == nil {
		return fmt.Errorf("session: message is required")
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.createdAt[sessionID]; !ok {
		m.createdAt[sessionID] = time.Now()
	}
	m.messages[sessionID] = append(m.messages[sessionID], msg)
	return nil
}

func (m *MemoryStore) History(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.messages[sessionID]
	if limit <= 0 || limit >= len(all) {
		out := make([]*models.Message, len(all))
		copy(out, all)
		return out, nil
	}
	out := make([]*models.Message, limit)
	copy(out, all[len(all)-limit:])
	return out, nil
}
