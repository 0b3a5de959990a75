package audit

import "time"

// Entry is emitted from domain logic to capture key actions against the
// external system. Keep it transport-agnostic so stores and sinks can fan out.
type Entry struct {
	Timestamp     time.Time
	EventType     string
	ResourceType  string
	ResourceID    string
	Action        string
	PreviousState map[string]any
	NewState      map[string]any
}

// Event types recorded by the bridge.
const (
	EventLoanLinked        = "external_loan_linked"
	EventLoanSynced        = "external_loan_synced"
	EventSyncFailed        = "external_sync_failed"
	EventMilestoneAdvanced = "milestone_advanced"
	EventConditionAdded    = "condition_added"
	EventConditionCleared  = "condition_cleared"
)
