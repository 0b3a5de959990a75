// Package events defines the domain event bus the bridge emits on. Events are
// append-only from this subsystem's perspective; downstream consumers own
// retention and fan-out.
package events

import (
	"context"
	"time"

	id "losbridge/pkg/domain"
)

// Event types emitted by the bridge.
const (
	TypeLoanLinked       = "loan.linked"
	TypeSyncFailed       = "loan.sync.failed"
	TypeMilestoneChanged = "loan.milestone.changed"
	TypeConditionChanged = "loan.condition.changed"
)

// Sources distinguish platform-initiated changes from externally-initiated
// ones. The sync engine uses this to avoid echoing webhook-driven changes
// back to the external system.
const (
	SourcePlatform = "platform"
	SourceWebhook  = "webhook"
)

// Event is the envelope published to downstream consumers.
type Event struct {
	EventType      string
	AggregateType  string
	AggregateID    string
	ExternalLoanID id.ExternalLoanID
	Payload        map[string]any
	OccurredAt     time.Time
}

// Bus publishes domain events. Implementations must be safe for concurrent
// use; emission failures are logged, never allowed to fail the business
// operation that produced the event.
type Bus interface {
	Emit(ctx context.Context, event Event) error
}
