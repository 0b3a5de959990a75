// Package condition creates and clears external stipulations. It is a thin
// pass-through: the external system is the system of record and nothing is
// stored locally beyond the audit trail.
package condition

import (
	"context"
	"log/slog"

	"losbridge/internal/audit"
	"losbridge/internal/los"

	id "losbridge/pkg/domain"
	dErrors "losbridge/pkg/domain-errors"
)

// Internal condition categories, keyed by when the stipulation must be
// satisfied.
const (
	CategoryPTD = "PTD" // prior to documents
	CategoryPTC = "PTC" // prior to closing
	CategoryPTF = "PTF" // prior to funding
	CategoryPOC = "POC" // post-closing
)

var priorToLabels = map[string]string{
	CategoryPTD: "Prior to Documents",
	CategoryPTC: "Prior to Closing",
	CategoryPTF: "Prior to Funding",
	CategoryPOC: "Post-Closing",
}

// PriorToLabel resolves an internal category to the external "prior-to"
// label. Unrecognized categories fall back to the PTD label.
func PriorToLabel(category string) string {
	if label, ok := priorToLabels[category]; ok {
		return label
	}
	return priorToLabels[CategoryPTD]
}

// Request describes a stipulation to create.
type Request struct {
	Title       string
	Description string
	Category    string
}

// Manager wraps the external condition operations.
type Manager struct {
	client  los.Client
	logger  *slog.Logger
	auditor *audit.Publisher
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithAuditor(auditor *audit.Publisher) Option {
	return func(m *Manager) { m.auditor = auditor }
}

func NewManager(client los.Client, opts ...Option) *Manager {
	m := &Manager{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add creates a stipulation on the external loan.
func (m *Manager) Add(ctx context.Context, loanID id.ExternalLoanID, req Request) (*los.Condition, error) {
	if req.Title == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "condition title is required")
	}

	created, err := m.client.AddCondition(ctx, loanID, los.ConditionRequest{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		PriorTo:     PriorToLabel(req.Category),
	})
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeExternalCall, "add condition", err)
	}

	m.logger.InfoContext(ctx, "condition added",
		"external_loan_id", loanID,
		"condition_id", created.ID,
		"category", req.Category)
	m.logAudit(ctx, loanID, audit.EventConditionAdded, "add", map[string]any{
		"conditionId": created.ID,
		"title":       created.Title,
		"category":    req.Category,
		"priorTo":     created.PriorTo,
	})

	return created, nil
}

// Clear marks a stipulation satisfied.
func (m *Manager) Clear(ctx context.Context, loanID id.ExternalLoanID, conditionID, clearedBy, comment string) error {
	err := m.client.ClearCondition(ctx, loanID, conditionID, los.ClearConditionRequest{
		ClearedBy: clearedBy,
		Comment:   comment,
	})
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return err
		}
		return dErrors.Wrap(dErrors.CodeExternalCall, "clear condition", err)
	}

	m.logger.InfoContext(ctx, "condition cleared",
		"external_loan_id", loanID,
		"condition_id", conditionID,
		"cleared_by", clearedBy)
	m.logAudit(ctx, loanID, audit.EventConditionCleared, "clear", map[string]any{
		"conditionId": conditionID,
		"clearedBy":   clearedBy,
	})

	return nil
}

func (m *Manager) logAudit(ctx context.Context, loanID id.ExternalLoanID, eventType, action string, state map[string]any) {
	if m.auditor == nil {
		return
	}
	err := m.auditor.Log(ctx, audit.Entry{
		EventType:    eventType,
		ResourceType: "external_loan",
		ResourceID:   loanID.String(),
		Action:       action,
		NewState:     state,
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "write audit entry", "error", err,
			"external_loan_id", loanID)
	}
}
