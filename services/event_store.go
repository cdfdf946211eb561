package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/ela93-fv/DeSci-Peer-Review-Fhe/protocol"
)

// EventStore persists the ledger's append-only audit log. Append implements
// protocol.EventSink so a store can be attached via Ledger.SetEventSink.
type EventStore interface {
	Append(ev *protocol.Event) error
	LoadAll() ([]protocol.Event, error)
	Close() error
}

// PostgresEventStore implements EventStore with PostgreSQL persistence.
type PostgresEventStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresEventStore opens a PostgreSQL-backed event store and runs its
// migrations.
func NewPostgresEventStore(config *PostgresConfig) (*PostgresEventStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresEventStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresEventStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_events (
		sequence BIGINT PRIMARY KEY,
		event_type VARCHAR(64) NOT NULL,
		occurred_at TIMESTAMP WITH TIME ZONE NOT NULL,
		actor VARCHAR(128),
		batch_id BIGINT NOT NULL DEFAULT 0,
		request_id BIGINT NOT NULL DEFAULT 0,
		cleartext BIGINT,
		cooldown_ns BIGINT NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_events_type ON ledger_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_events_batch ON ledger_events(batch_id);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Append persists one audit event. The sequence number is the primary key,
// so a replayed append of the same event is a no-op rather than a duplicate.
func (s *PostgresEventStore) Append(ev *protocol.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var cleartext sql.NullInt64
	if ev.Cleartext != nil {
		cleartext = sql.NullInt64{Int64: int64(*ev.Cleartext), Valid: true}
	}

	query := `
	INSERT INTO ledger_events
		(sequence, event_type, occurred_at, actor, batch_id, request_id, cleartext, cooldown_ns)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (sequence) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		int64(ev.Sequence),
		string(ev.Type),
		ev.Timestamp,
		ev.Actor,
		int64(ev.BatchID),
		int64(ev.RequestID),
		cleartext,
		int64(ev.Cooldown),
	)
	return err
}

// LoadAll retrieves the persisted audit log in sequence order.
func (s *PostgresEventStore) LoadAll() ([]protocol.Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, event_type, occurred_at, actor, batch_id, request_id, cleartext, cooldown_ns
		FROM ledger_events
		ORDER BY sequence ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []protocol.Event
	for rows.Next() {
		var (
			sequence   int64
			eventType  string
			occurredAt time.Time
			actor      sql.NullString
			batchID    int64
			requestID  int64
			cleartext  sql.NullInt64
			cooldownNs int64
		)

		if err := rows.Scan(&sequence, &eventType, &occurredAt, &actor, &batchID, &requestID, &cleartext, &cooldownNs); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		ev := protocol.Event{
			Sequence:  uint64(sequence),
			Type:      protocol.EventType(eventType),
			Timestamp: occurredAt,
			Actor:     actor.String,
			BatchID:   uint64(batchID),
			RequestID: protocol.RequestID(requestID),
			Cooldown:  time.Duration(cooldownNs),
		}
		if cleartext.Valid {
			value := uint64(cleartext.Int64)
			ev.Cleartext = &value
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// Close closes the database connection.
func (s *PostgresEventStore) Close() error {
	return s.db.Close()
}

// InMemoryEventStore implements EventStore without a database, for tests and
// single-process deployments.
type InMemoryEventStore struct {
	mu     sync.Mutex
	events []protocol.Event
}

// NewInMemoryEventStore creates an in-memory event store.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{}
}

// Append stores an event in memory.
func (s *InMemoryEventStore) Append(ev *protocol.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *ev)
	return nil
}

// LoadAll returns a copy of all stored events.
func (s *InMemoryEventStore) LoadAll() ([]protocol.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryEventStore) Close() error {
	return nil
}
