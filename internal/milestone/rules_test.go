package milestone

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"losbridge/internal/condition"
	"losbridge/internal/domain"
	"losbridge/internal/los"
)

func TestCompareOperators(t *testing.T) {
	cases := []struct {
		name     string
		actual   any
		op       Operator
		expected any
		want     bool
	}{
		{"eq numeric", 660, OpEq, 660.0, true},
		{"eq numeric string", "660", OpEq, 660, true},
		{"eq string", "AE", OpEq, "AE", true},
		{"ne", "AE", OpNe, "X", true},
		{"gt true", 700, OpGt, 660, true},
		{"gt false", 660, OpGt, 660, false},
		{"gte boundary", 660, OpGte, 660, true},
		{"lt", 1.05, OpLt, "1.2", true},
		{"lte boundary", "1.2", OpLte, 1.2, true},
		{"not_empty present", "x", OpNotEmpty, nil, true},
		{"not_empty blank", "  ", OpNotEmpty, nil, false},
		{"not_empty nil", nil, OpNotEmpty, nil, false},
		{"numeric op on non-numeric is false", "pending", OpGte, 1, false},
		{"numeric op on nil is false", nil, OpLt, 100, false},
		{"unknown operator is false", 1, Operator("between"), 2, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, compare(tc.actual, tc.op, tc.expected))
		})
	}
}

func TestRuleEligibility(t *testing.T) {
	rule := Rule{
		TargetMilestone: domain.MilestonePreApproved,
		Prerequisites:   []domain.Milestone{domain.MilestoneApplication},
		AutoAdvance:     true,
	}

	t.Run("does not fire outside prerequisites", func(t *testing.T) {
		loan := &los.Loan{
			Milestone:        domain.MilestoneStarted,
			MilestoneHistory: []domain.Milestone{domain.MilestoneStarted},
		}
		assert.False(t, rule.Eligible(loan))
	})

	t.Run("fires from a prerequisite milestone", func(t *testing.T) {
		loan := &los.Loan{
			Milestone:        domain.MilestoneApplication,
			MilestoneHistory: []domain.Milestone{domain.MilestoneStarted, domain.MilestoneApplication},
		}
		assert.True(t, rule.Eligible(loan))
	})

	t.Run("does not re-fire after manual regression", func(t *testing.T) {
		loan := &los.Loan{
			Milestone: domain.MilestoneApplication,
			MilestoneHistory: []domain.Milestone{
				domain.MilestoneStarted, domain.MilestoneApplication,
				domain.MilestonePreApproved, domain.MilestoneApplication,
			},
		}
		assert.False(t, rule.Eligible(loan))
	})
}

func TestConditionKinds(t *testing.T) {
	loan := &los.Loan{
		Milestone: domain.MilestoneProcessing,
		Fields: map[string]any{
			"4000":            "Dana",
			"CX.CREDIT_SCORE": 720,
			"CX.EMPTY":        "",
		},
		Conditions: []los.Condition{
			{ID: "c1", Category: condition.CategoryPTD, Cleared: true},
			{ID: "c2", Category: condition.CategoryPTC, Cleared: false},
		},
		Documents: []string{"purchase_contract", "Appraisal"},
	}

	t.Run("field populated", func(t *testing.T) {
		assert.True(t, Condition{Kind: KindFieldPopulated, FieldIDs: []string{"4000"}}.holds(loan))
		assert.False(t, Condition{Kind: KindFieldPopulated, FieldIDs: []string{"4000", "CX.EMPTY"}}.holds(loan))
		assert.False(t, Condition{Kind: KindFieldPopulated, FieldIDs: []string{"CX.MISSING"}}.holds(loan))
	})

	t.Run("field value", func(t *testing.T) {
		assert.True(t, Condition{Kind: KindFieldValue, FieldID: "CX.CREDIT_SCORE", Operator: OpGte, Expected: 660}.holds(loan))
		assert.False(t, Condition{Kind: KindFieldValue, FieldID: "CX.CREDIT_SCORE", Operator: OpLt, Expected: 700}.holds(loan))
	})

	t.Run("conditions cleared", func(t *testing.T) {
		assert.True(t, Condition{Kind: KindConditionsCleared, Category: condition.CategoryPTD}.holds(loan))
		assert.False(t, Condition{Kind: KindConditionsCleared, Category: condition.CategoryPTC}.holds(loan))
		// A category with no stipulations at all is trivially clear.
		assert.True(t, Condition{Kind: KindConditionsCleared, Category: condition.CategoryPTF}.holds(loan))
	})

	t.Run("document received is case-insensitive", func(t *testing.T) {
		assert.True(t, Condition{Kind: KindDocumentReceived, DocumentTypes: []string{"appraisal"}}.holds(loan))
		assert.False(t, Condition{Kind: KindDocumentReceived, DocumentTypes: []string{"appraisal", "title_commitment"}}.holds(loan))
	})

	t.Run("conditions are ANDed", func(t *testing.T) {
		rule := Rule{
			TargetMilestone: domain.MilestoneSubmitted,
			Prerequisites:   []domain.Milestone{domain.MilestoneProcessing},
			Conditions: []Condition{
				{Kind: KindFieldPopulated, FieldIDs: []string{"4000"}},
				{Kind: KindConditionsCleared, Category: condition.CategoryPTC},
			},
		}
		assert.False(t, rule.ConditionsMet(loan))
	})
}
