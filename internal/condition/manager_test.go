package condition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losbridge/internal/audit"
	"losbridge/internal/los"
	id "losbridge/pkg/domain"
	dErrors "losbridge/pkg/domain-errors"
)

func TestPriorToLabel(t *testing.T) {
	assert.Equal(t, "Prior to Documents", PriorToLabel(CategoryPTD))
	assert.Equal(t, "Prior to Closing", PriorToLabel(CategoryPTC))
	assert.Equal(t, "Prior to Funding", PriorToLabel(CategoryPTF))
	assert.Equal(t, "Post-Closing", PriorToLabel(CategoryPOC))
	// Unrecognized categories default to the PTD label.
	assert.Equal(t, "Prior to Documents", PriorToLabel("SOMETHING_ELSE"))
	assert.Equal(t, "Prior to Documents", PriorToLabel(""))
}

func TestAddAndClearCondition(t *testing.T) {
	ctx := context.Background()
	stub := los.NewStubClient()
	loan, err := stub.CreateLoan(ctx, "Pipeline", nil)
	require.NoError(t, err)

	auditor := audit.NewPublisher(audit.NewInMemoryStore())
	mgr := NewManager(stub, WithAuditor(auditor))

	created, err := mgr.Add(ctx, loan.ID, Request{
		Title:       "Provide lease agreement",
		Description: "Current signed lease for the subject property",
		Category:    CategoryPTC,
	})
	require.NoError(t, err)
	assert.Equal(t, "Prior to Closing", created.PriorTo)
	assert.False(t, created.Cleared)

	require.NoError(t, mgr.Clear(ctx, loan.ID, created.ID, "underwriter@example.com", "received"))

	refreshed, err := stub.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, refreshed.Conditions, 1)
	assert.True(t, refreshed.Conditions[0].Cleared)
	assert.Equal(t, "underwriter@example.com", refreshed.Conditions[0].ClearedBy)

	entries, err := auditor.List(ctx, "external_loan", loan.ID.String())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.EventConditionAdded, entries[0].EventType)
	assert.Equal(t, audit.EventConditionCleared, entries[1].EventType)
}

func TestAddConditionRequiresTitle(t *testing.T) {
	mgr := NewManager(los.NewStubClient())

	_, err := mgr.Add(context.Background(), id.ExternalLoanID("any"), Request{Category: CategoryPTD})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
}

func TestClearUnknownCondition(t *testing.T) {
	ctx := context.Background()
	stub := los.NewStubClient()
	loan, err := stub.CreateLoan(ctx, "Pipeline", nil)
	require.NoError(t, err)

	mgr := NewManager(stub)
	err = mgr.Clear(ctx, loan.ID, "missing", "someone", "")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}
