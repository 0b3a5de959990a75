package events

import (
	"context"
	"sync"
	"time"
)

// MemoryBus records emitted events in memory. It backs single-process
// deployments and tests; production wires the Kafka bus instead.
type MemoryBus struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Emit(_ context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

// Events returns a copy of everything emitted so far.
func (b *MemoryBus) Events() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// ByType returns emitted events matching the given type, in emission order.
func (b *MemoryBus) ByType(eventType string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Event
	for _, e := range b.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
