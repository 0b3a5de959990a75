package milestone

import (
	"losbridge/internal/condition"
	"losbridge/internal/domain"
	"losbridge/internal/mapping"
)

// DefaultRules is the advancement table for the DSCR product. Rules fire in
// order; manual-review stages carry AutoAdvance=false so evaluation surfaces
// them without acting.
func DefaultRules() []Rule {
	return []Rule{
		{
			TargetMilestone: domain.MilestoneApplication,
			Prerequisites:   []domain.Milestone{domain.MilestoneStarted},
			Conditions: []Condition{
				{Kind: KindFieldPopulated, FieldIDs: []string{"4000", "4002", "1109"}},
			},
			AutoAdvance:   true,
			Notifications: []string{"PROCESSOR"},
		},
		{
			TargetMilestone: domain.MilestonePreApproved,
			Prerequisites:   []domain.Milestone{domain.MilestoneApplication},
			Conditions: []Condition{
				{Kind: KindFieldValue, FieldID: "CX.CREDIT_SCORE", Operator: OpGte, Expected: 660},
				{Kind: KindFieldValue, FieldID: "CX.DSCR", Operator: OpGte, Expected: "1.0"},
			},
			AutoAdvance:   true,
			Notifications: []string{"LOAN_OFFICER", "PROCESSOR"},
		},
		{
			TargetMilestone: domain.MilestoneProcessing,
			Prerequisites:   []domain.Milestone{domain.MilestonePreApproved},
			Conditions: []Condition{
				{Kind: KindFieldPopulated, FieldIDs: []string{"CX.AVM_VALUE"}},
				{Kind: KindDocumentReceived, DocumentTypes: []string{"purchase_contract"}},
			},
			AutoAdvance:   true,
			Notifications: []string{"PROCESSOR"},
		},
		{
			TargetMilestone: domain.MilestoneSubmitted,
			Prerequisites:   []domain.Milestone{domain.MilestoneProcessing},
			Conditions: []Condition{
				{Kind: KindConditionsCleared, Category: condition.CategoryPTD},
				{Kind: KindDocumentReceived, DocumentTypes: []string{"appraisal", "title_commitment"}},
			},
			AutoAdvance:   false,
			Notifications: []string{"UNDERWRITER"},
		},
		{
			TargetMilestone: domain.MilestoneClearToClose,
			Prerequisites:   []domain.Milestone{domain.MilestoneDocsBack},
			Conditions: []Condition{
				{Kind: KindConditionsCleared, Category: condition.CategoryPTC},
				{Kind: KindFieldValue, FieldID: mapping.TrackingFieldSource, Operator: OpNotEmpty},
			},
			AutoAdvance:   true,
			Notifications: []string{"CLOSER", "LOAN_OFFICER"},
		},
	}
}
