package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Schema creates the audit trail table.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
    id             UUID PRIMARY KEY,
    occurred_at    TIMESTAMPTZ NOT NULL,
    event_type     TEXT NOT NULL,
    resource_type  TEXT NOT NULL,
    resource_id    TEXT NOT NULL,
    action         TEXT NOT NULL,
    previous_state JSONB,
    new_state      JSONB
);

CREATE INDEX IF NOT EXISTS audit_entries_resource_idx
    ON audit_entries (resource_type, resource_id, occurred_at);
`

// PostgresStore persists audit entries in PostgreSQL. States are stored as
// JSONB so the trail stays queryable without a migration per field.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	previous, err := marshalState(entry.PreviousState)
	if err != nil {
		return fmt.Errorf("marshal previous state: %w", err)
	}
	next, err := marshalState(entry.NewState)
	if err != nil {
		return fmt.Errorf("marshal new state: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (id, occurred_at, event_type, resource_type, resource_id, action, previous_state, new_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), entry.Timestamp, entry.EventType, entry.ResourceType,
		entry.ResourceID, entry.Action, previous, next,
	)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByResource(ctx context.Context, resourceType, resourceID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT occurred_at, event_type, resource_type, resource_id, action, previous_state, new_state
		FROM audit_entries
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY occurred_at`,
		resourceType, resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var previous, next []byte
		if err := rows.Scan(&entry.Timestamp, &entry.EventType, &entry.ResourceType,
			&entry.ResourceID, &entry.Action, &previous, &next); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if entry.PreviousState, err = unmarshalState(previous); err != nil {
			return nil, err
		}
		if entry.NewState, err = unmarshalState(next); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func marshalState(state map[string]any) (any, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}

func unmarshalState(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var state map[string]any
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal audit state: %w", err)
	}
	return state, nil
}
