package mapping

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losbridge/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(NewRegistry(), DefaultMappings())
	require.NoError(t, err)
	return engine
}

func fullSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Application: &domain.Application{
			Status:       "PROCESSING",
			LoanPurpose:  "PURCHASE",
			LoanAmount:   domain.USD(25000000),
			InterestRate: decimal.RequireFromString("7.125"),
			TermMonths:   360,
			ClosingDate:  time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC),
		},
		Borrower: &domain.Borrower{
			FirstName: "Dana",
			LastName:  "Whitfield",
			Email:     "dana@example.com",
			Phone:     "5125550199",
			SSN:       "123-45-6789",
		},
		Property: &domain.Property{
			StreetAddress: "101  Main   St",
			City:          "Austin",
			State:         "TX",
			PostalCode:    "78701",
			PropertyType:  "SFR",
			MonthlyRent:   domain.USD(315000),
		},
		Metrics: &domain.Metrics{
			DSCR: decimal.RequireFromString("1.2543"),
		},
	}
}

func TestToExternal(t *testing.T) {
	engine := newTestEngine(t)
	fields := engine.ToExternal(fullSnapshot())

	byID := make(map[string]any, len(fields))
	for _, f := range fields {
		byID[f.ID] = f.Value
	}

	assert.Equal(t, "Dana", byID["4000"])
	assert.Equal(t, "(512) 555-0199", byID["66"])
	assert.Equal(t, "101 Main St", byID["11"])
	assert.Equal(t, "SingleFamily", byID["1041"])
	assert.Equal(t, 250000.00, byID["1109"])
	assert.Equal(t, 3150.00, byID["CX.MONTHLY_RENT"])
	assert.Equal(t, "2024-09-30", byID["763"])
	assert.Equal(t, "PROCESSING", byID["CX.PLATFORM_STATUS"])

	// Absent sections are skipped, not errored.
	assert.NotContains(t, byID, "CX.LOCK_RATE")
	assert.NotContains(t, byID, "CX.PLATFORM_APP_ID")
}

func TestToExternalSkipsMissingValues(t *testing.T) {
	engine := newTestEngine(t)
	fields := engine.ToExternal(&domain.Snapshot{
		Application: &domain.Application{Status: "DRAFT"},
	})

	require.Len(t, fields, 1)
	assert.Equal(t, "CX.PLATFORM_STATUS", fields[0].ID)
}

func TestRoundTripReproducesPlatformValues(t *testing.T) {
	engine := newTestEngine(t)
	original := fullSnapshot()

	fields := engine.ToExternal(original)
	external := make(map[string]any, len(fields))
	for _, f := range fields {
		external[f.ID] = f.Value
	}

	back := engine.ToPlatform(external)

	require.NotNil(t, back.Application)
	assert.Equal(t, int64(25000000), back.Application.LoanAmount.Cents)
	assert.True(t, original.Application.InterestRate.Equal(back.Application.InterestRate))
	assert.Equal(t, original.Application.ClosingDate, back.Application.ClosingDate)

	require.NotNil(t, back.Borrower)
	assert.Equal(t, "Dana", back.Borrower.FirstName)
	assert.Equal(t, "5125550199", back.Borrower.Phone)
	// SSN is push-only: it never syncs back.
	assert.Empty(t, back.Borrower.SSN)

	require.NotNil(t, back.Property)
	assert.Equal(t, "SFR", back.Property.PropertyType)
	assert.Equal(t, int64(315000), back.Property.MonthlyRent.Cents)

	require.NotNil(t, back.Metrics)
	assert.True(t, decimal.RequireFromString("1.2543").Equal(back.Metrics.DSCR))
}

func TestToPlatformIgnoresUnknownFields(t *testing.T) {
	engine := newTestEngine(t)
	snapshot := engine.ToPlatform(map[string]any{
		"4000":          "Dana",
		"NOT.A.FIELD":   "ignored",
		"CX.FLOOD_ZONE": "AE", // one-way entry, must not sync back
	})

	require.NotNil(t, snapshot.Borrower)
	assert.Equal(t, "Dana", snapshot.Borrower.FirstName)
	assert.Nil(t, snapshot.Vendor)
}

func TestNewEngineRejectsDuplicates(t *testing.T) {
	table := []FieldMapping{
		{PlatformPath: "a.b", ExternalFieldID: "1", Get: func(*domain.Snapshot) (any, bool) { return nil, false }},
		{PlatformPath: "a.b", ExternalFieldID: "2", Get: func(*domain.Snapshot) (any, bool) { return nil, false }},
	}
	_, err := NewEngine(NewRegistry(), table)
	assert.Error(t, err)
}
