package mapping

import (
	"losbridge/internal/domain"
	"losbridge/internal/los"
	dErrors "losbridge/pkg/domain-errors"
)

// Engine walks a mapping table in both directions. It is stateless and safe
// for concurrent use once constructed.
type Engine struct {
	registry *Registry
	mappings []FieldMapping
}

// NewEngine validates the table and builds an engine. Duplicate platform
// paths or external field IDs are a configuration bug and fail construction.
func NewEngine(registry *Registry, mappings []FieldMapping) (*Engine, error) {
	seenPath := make(map[string]bool, len(mappings))
	seenField := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		if seenPath[m.PlatformPath] {
			return nil, dErrors.New(dErrors.CodeMapping, "duplicate platform path: "+m.PlatformPath)
		}
		if seenField[m.ExternalFieldID] {
			return nil, dErrors.New(dErrors.CodeMapping, "duplicate external field id: "+m.ExternalFieldID)
		}
		seenPath[m.PlatformPath] = true
		seenField[m.ExternalFieldID] = true
	}
	return &Engine{registry: registry, mappings: mappings}, nil
}

// ToExternal converts a platform snapshot to external field updates. Absent
// platform values skip their entry; emission follows table order so updates
// are deterministic.
func (e *Engine) ToExternal(snapshot *domain.Snapshot) []los.FieldValue {
	var fields []los.FieldValue
	for _, m := range e.mappings {
		value, ok := m.Get(snapshot)
		if !ok {
			continue
		}
		fields = append(fields, los.FieldValue{
			ID:    m.ExternalFieldID,
			Value: e.registry.Apply(m.Transform, ToExternal, value),
		})
	}
	return fields
}

// ToPlatform converts an external field-value map to a platform snapshot.
// Only bidirectional entries participate; absent external fields skip.
func (e *Engine) ToPlatform(fields map[string]any) *domain.Snapshot {
	snapshot := &domain.Snapshot{}
	for _, m := range e.mappings {
		if !m.Bidirectional || m.Set == nil {
			continue
		}
		value, ok := fields[m.ExternalFieldID]
		if !ok || value == nil {
			continue
		}
		m.Set(snapshot, e.registry.Apply(m.Transform, ToPlatform, value))
	}
	return snapshot
}

// Mappings exposes the table for callers that need to reason about entries
// (the sync engine reports which field IDs a push touched).
func (e *Engine) Mappings() []FieldMapping {
	return e.mappings
}
