package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"          // registers the "postgres" driver
	_ "modernc.org/sqlite"          // registers the "sqlite" driver

	"github.com/nexus-vision/agentcore/internal/models"
)

// dialect abstracts the one difference between the two SQLStore backends
// this package wires: positional ($1, $2, ...) vs. ordinal (?) bind
// parameters. Everything else — schema, queries, scan logic — is identical,
// mirroring the teacher's CockroachStore shape generalized to run over
// either driver.
type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLStore implements Store over any database/sql driver registered with a
// compatible dialect, grounded on the teacher's CockroachStore (prepared
// statements, ping-on-open); no connection pool settings are applied.
type SQLStore struct {
	db      *sql.DB
	dialect dialect

	stmtEnsureSession *sql.Stmt
	stmtGetSession    *sql.Stmt
	stmtAppendMessage *sql.Stmt
	stmtGetHistory    *sql.Stmt
}

// NewSQLiteStore opens (creating if absent) a SQLite-backed Store at path,
// using modernc.org/sqlite's pure-Go driver.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("session: could not open sqlite store: %w", err)
	}
	return newSQLStore(ctx, db, dialectSQLite)
}

// NewPostgresStore opens a Postgres-backed Store using lib/pq against dsn.
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: could not open postgres store: %w", err)
	}
	return newSQLStore(ctx, db, dialectPostgres)
}

// NewSQLStoreFromDB builds a SQLStore over an already-opened *sql.DB,
// letting callers (including tests using go-sqlmock's fake driver) supply
// their own connection instead of going through NewSQLiteStore/NewPostgresStore.
func NewSQLStoreFromDB(ctx context.Context, db *sql.DB, migrate bool) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialectSQLite}
	if migrate {
		if err := s.migrate(ctx); err != nil {
			return nil, err
		}
	}
	if err := s.prepareStatements(); err != nil {
		return nil, err
	}
	return s, nil
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: could not ping store: %w", err)
	}

	s := &SQLStore{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	const sessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL
)`
	const messagesTable = `
CREATE TABLE IF NOT EXISTS session_messages (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`
	if _, err := s.db.ExecContext(ctx, sessionsTable); err != nil {
		return fmt.Errorf("session: migration failed: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, messagesTable); err != nil {
		return fmt.Errorf("session: migration failed: %w", err)
	}
	return nil
}

func (s *SQLStore) bind(n int) string {
	if s.dialect == dialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) prepareStatements() error {
	var err error
	s.stmtEnsureSession, err = s.db.Prepare(fmt.Sprintf(
		"INSERT INTO sessions (id, created_at) VALUES (%s, %s) ON CONFLICT (id) DO NOTHING",
		s.bind(1), s.bind(2)))
	if err != nil {
		return fmt.Errorf("session: prepare ensure-session: %w", err)
	}
	s.stmtGetSession, err = s.db.Prepare(fmt.Sprintf(
		"SELECT created_at FROM sessions WHERE id = %s", s.bind(1)))
	if err != nil {
		return fmt.Errorf("session: prepare get-session: %w", err)
	}
	s.stmtAppendMessage, err = s.db.Prepare(fmt.Sprintf(
		"INSERT INTO session_messages (id, session_id, body, created_at) VALUES (%s, %s, %s, %s)",
		s.bind(1), s.bind(2), s.bind(3), s.bind(4)))
	if err != nil {
		return fmt.Errorf("session: prepare append-message: %w", err)
	}
	s.stmtGetHistory, err = s.db.Prepare(fmt.Sprintf(
		"SELECT body FROM session_messages WHERE session_id = %s ORDER BY created_at ASC", s.bind(1)))
	if err != nil {
		return fmt.Errorf("session: prepare get-history: %w", err)
	}
	return nil
}

func (s *SQLStore) EnsureSession(ctx context.Context, sessionID string) (time.Time, error) {
	now := time.Now().UTC()
	if _, err := s.stmtEnsureSession.ExecContext(ctx, sessionID, now); err != nil {
		return time.Time{}, fmt.Errorf("session: ensure-session: %w", err)
	}
	var createdAt time.Time
	if err := s.stmtGetSession.QueryRowContext(ctx, sessionID).Scan(&createdAt); err != nil {
		return time.Time{}, fmt.Errorf("session: get-session: %w", err)
	}
	return createdAt, nil
}

func (s *SQLStore) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	if msg == nil {
		return fmt.Errorf("session: message is required")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("session: could not encode message: %w", err)
	}
	if _, err := s.stmtAppendMessage.ExecContext(ctx, msg.ID, sessionID, string(body), msg.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("session: append-message: %w", err)
	}
	return nil
}

func (s *SQLStore) History(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	rows, err := s.stmtGetHistory.QueryContext(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: get-history: %w", err)
	}
	defer rows.Close()

	var all []*models.Message
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("session: scan history row: %w", err)
		}
		var msg models.Message
		if err := json.Unmarshal([]byte(body), &msg); err != nil {
			return nil, fmt.Errorf("session: decode history row: %w", err)
		}
		all = append(all, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if limit <= 0 || limit >= len(all) {
		return all, nil
	}
	return all[len(all)-limit:], nil
}

// Close releases the prepared statements and the underlying connection.
func (s *SQLStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.stmtEnsureSession, s.stmtGetSession, s.stmtAppendMessage, s.stmtGetHistory} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
