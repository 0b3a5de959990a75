// Package audit captures an append-only trail of bridge actions. Entries are
// persisted through a Store so tests can swap sinks easily.
package audit

import (
	"context"
	"time"
)

// Store persists audit entries. Append-only: nothing in this subsystem
// updates or deletes an entry once written.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]Entry, error)
}

// Publisher captures structured audit entries.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Log(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return p.store.Append(ctx, entry)
}

func (p *Publisher) List(ctx context.Context, resourceType, resourceID string) ([]Entry, error) {
	return p.store.ListByResource(ctx, resourceType, resourceID)
}
