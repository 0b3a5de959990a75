// Package webhook absorbs asynchronous notifications from the external
// system: it verifies them at the HTTP edge, deduplicates deliveries, and
// reconciles the local link state against the change they describe.
package webhook

import (
	id "losbridge/pkg/domain"
)

// Event types the external system delivers.
const (
	EventMilestoneChanged = "loan.milestone.changed"
	EventFieldChanged     = "loan.field.changed"
	EventConditionChanged = "loan.condition.changed"
)

// Payload is the wire shape of a delivery. Data varies by event type; a
// milestone change carries previousMilestone/newMilestone/changedBy.
type Payload struct {
	EventType      string            `json:"eventType"`
	ExternalLoanID id.ExternalLoanID `json:"externalLoanId"`
	Data           map[string]any    `json:"data"`
}
