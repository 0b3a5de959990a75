// Package los defines the client surface against the external Loan
// Origination System and its wire-level types. The LOS exposes a flat
// field-ID namespace; everything structured lives on the platform side and
// crosses this boundary as (fieldId, value) pairs.
package los

import (
	"context"
	"time"

	"losbridge/internal/domain"
	id "losbridge/pkg/domain"
)

// FieldValue is one entry in the external flat field namespace.
type FieldValue struct {
	ID    string `json:"fieldId"`
	Value any    `json:"value"`
}

// Loan is the external loan record as returned by the LOS.
type Loan struct {
	ID               id.ExternalLoanID  `json:"loanGuid"`
	Number           string             `json:"loanNumber"`
	Folder           string             `json:"loanFolder"`
	Status           string             `json:"status"`
	Milestone        domain.Milestone   `json:"currentMilestone"`
	MilestoneHistory []domain.Milestone `json:"milestoneHistory"`
	Fields           map[string]any     `json:"fields"`
	Conditions       []Condition        `json:"conditions"`
	Documents        []string           `json:"documents"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// Condition mirrors an external stipulation record.
type Condition struct {
	ID          string    `json:"conditionId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PriorTo     string    `json:"priorTo"`
	Cleared     bool      `json:"cleared"`
	ClearedBy   string    `json:"clearedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MilestoneUpdate is the payload for a milestone change.
type MilestoneUpdate struct {
	Milestone       domain.Milestone `json:"milestone"`
	Comment         string           `json:"comment,omitempty"`
	SystemGenerated bool             `json:"systemGenerated"`
}

// SearchFilter narrows a loan pipeline search to loans whose field matches a
// value exactly. Used for tracking-field reverse lookup.
type SearchFilter struct {
	FieldID string `json:"fieldId"`
	Value   string `json:"value"`
}

// ConditionRequest creates a stipulation on a loan.
type ConditionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	PriorTo     string `json:"priorTo"`
}

// ClearConditionRequest marks a stipulation satisfied.
type ClearConditionRequest struct {
	ClearedBy string `json:"clearedBy"`
	Comment   string `json:"comment,omitempty"`
}

// Client is the operation surface this bridge needs from the LOS. Every call
// is blocking I/O bounded by the caller's context; no method retries
// internally.
type Client interface {
	CreateLoan(ctx context.Context, folder string, fields []FieldValue) (*Loan, error)
	GetLoan(ctx context.Context, loanID id.ExternalLoanID) (*Loan, error)
	UpdateLoan(ctx context.Context, loanID id.ExternalLoanID, fields []FieldValue) error
	SearchLoans(ctx context.Context, filter SearchFilter) ([]*Loan, error)
	UpdateMilestone(ctx context.Context, loanID id.ExternalLoanID, update MilestoneUpdate) error
	AddCondition(ctx context.Context, loanID id.ExternalLoanID, req ConditionRequest) (*Condition, error)
	ClearCondition(ctx context.Context, loanID id.ExternalLoanID, conditionID string, req ClearConditionRequest) error
}
