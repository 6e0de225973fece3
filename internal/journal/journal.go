// Package journal persists every published vault event into an append-only
// Postgres table for durable audit.
package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/terminal-bench/timevault/pkg/messaging"
)

// Store is a Postgres-backed event journal. It implements
// messaging.Publisher so it can sit behind the same fanout as NATS.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and ensures the journal table exists.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS vault_events (
			id         UUID PRIMARY KEY,
			subject    TEXT NOT NULL,
			occurred   TIMESTAMPTZ NOT NULL,
			payload    JSONB NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to create journal table: %w", err)
	}
	return nil
}

// Publish records one event. Events are only ever inserted.
func (s *Store) Publish(evt messaging.Event) error {
	_, err := s.db.Exec(
		`INSERT INTO vault_events (id, subject, occurred, payload) VALUES ($1, $2, $3, $4)`,
		evt.ID, evt.Subject, evt.Timestamp, []byte(evt.Data),
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Recent returns the newest events, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]messaging.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject, occurred, payload FROM vault_events ORDER BY occurred DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []messaging.Event
	for rows.Next() {
		var evt messaging.Event
		var payload []byte
		if err := rows.Scan(&evt.ID, &evt.Subject, &evt.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		evt.Data = payload
		events = append(events, evt)
	}
	return events, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
