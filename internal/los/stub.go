package los

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"losbridge/internal/domain"
	id "losbridge/pkg/domain"
	dErrors "losbridge/pkg/domain-errors"
)

// StubClient simulates the LOS in memory. It backs local development and
// tests when no credentials are configured; responses mimic the real API
// closely enough to exercise the full sync and milestone paths.
type StubClient struct {
	mu      sync.Mutex
	loans   map[id.ExternalLoanID]*Loan
	counter int
}

func NewStubClient() *StubClient {
	return &StubClient{
		loans:   make(map[id.ExternalLoanID]*Loan),
		counter: 1000,
	}
}

func (c *StubClient) CreateLoan(_ context.Context, folder string, fields []FieldValue) (*Loan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	loan := &Loan{
		ID:               id.ExternalLoanID(uuid.NewString()),
		Number:           fmt.Sprintf("DSCR-2024-%04d", c.counter),
		Folder:           folder,
		Status:           "Active",
		Milestone:        domain.MilestoneStarted,
		MilestoneHistory: []domain.Milestone{domain.MilestoneStarted},
		Fields:           make(map[string]any, len(fields)),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	c.counter++
	applyFields(loan, fields, now)

	c.loans[loan.ID] = loan
	return cloneLoan(loan), nil
}

func (c *StubClient) GetLoan(_ context.Context, loanID id.ExternalLoanID) (*Loan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	loan, ok := c.loans[loanID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "loan not found: "+loanID.String())
	}
	return cloneLoan(loan), nil
}

func (c *StubClient) UpdateLoan(_ context.Context, loanID id.ExternalLoanID, fields []FieldValue) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	loan, ok := c.loans[loanID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "loan not found: "+loanID.String())
	}
	applyFields(loan, fields, time.Now().UTC())
	return nil
}

func (c *StubClient) SearchLoans(_ context.Context, filter SearchFilter) ([]*Loan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matches []*Loan
	for _, loan := range c.loans {
		if value, ok := loan.Fields[filter.FieldID]; ok && fmt.Sprint(value) == filter.Value {
			matches = append(matches, cloneLoan(loan))
		}
	}
	return matches, nil
}

func (c *StubClient) UpdateMilestone(_ context.Context, loanID id.ExternalLoanID, update MilestoneUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	loan, ok := c.loans[loanID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "loan not found: "+loanID.String())
	}
	loan.Milestone = update.Milestone
	loan.MilestoneHistory = append(loan.MilestoneHistory, update.Milestone)
	loan.UpdatedAt = time.Now().UTC()
	return nil
}

func (c *StubClient) AddCondition(_ context.Context, loanID id.ExternalLoanID, req ConditionRequest) (*Condition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	loan, ok := c.loans[loanID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "loan not found: "+loanID.String())
	}
	condition := Condition{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		PriorTo:     req.PriorTo,
		CreatedAt:   time.Now().UTC(),
	}
	loan.Conditions = append(loan.Conditions, condition)
	return &condition, nil
}

func (c *StubClient) ClearCondition(_ context.Context, loanID id.ExternalLoanID, conditionID string, req ClearConditionRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	loan, ok := c.loans[loanID]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "loan not found: "+loanID.String())
	}
	for i := range loan.Conditions {
		if loan.Conditions[i].ID == conditionID {
			loan.Conditions[i].Cleared = true
			loan.Conditions[i].ClearedBy = req.ClearedBy
			return nil
		}
	}
	return dErrors.New(dErrors.CodeNotFound, "condition not found: "+conditionID)
}

// AddDocument records a received document type on a loan. The real LOS
// ingests documents through its own channels; the stub exposes this so
// document-received rules can be exercised.
func (c *StubClient) AddDocument(loanID id.ExternalLoanID, docType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loan, ok := c.loans[loanID]; ok {
		loan.Documents = append(loan.Documents, docType)
	}
}

func applyFields(loan *Loan, fields []FieldValue, now time.Time) {
	for _, field := range fields {
		loan.Fields[field.ID] = field.Value
	}
	loan.UpdatedAt = now
}

func cloneLoan(loan *Loan) *Loan {
	out := *loan
	out.Fields = make(map[string]any, len(loan.Fields))
	for k, v := range loan.Fields {
		out.Fields[k] = v
	}
	out.MilestoneHistory = append([]domain.Milestone(nil), loan.MilestoneHistory...)
	out.Conditions = append([]Condition(nil), loan.Conditions...)
	out.Documents = append([]string(nil), loan.Documents...)
	return &out
}
