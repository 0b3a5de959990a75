// Package milestone evaluates declarative advancement rules against external
// loan state and performs the advancement call. Rule evaluation is pure; all
// I/O lives in the engine.
package milestone

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"losbridge/internal/domain"
	"losbridge/internal/los"
)

// Operator compares an external field value against an expected value.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpNotEmpty Operator = "not_empty"
)

// ConditionKind selects which aspect of the loan a condition inspects.
type ConditionKind string

const (
	KindFieldPopulated    ConditionKind = "field_populated"
	KindFieldValue        ConditionKind = "field_value"
	KindConditionsCleared ConditionKind = "conditions_cleared"
	KindDocumentReceived  ConditionKind = "document_received"
)

// Condition is one ANDed clause of a rule. Exactly the fields relevant to its
// kind are set.
type Condition struct {
	Kind ConditionKind

	// field_populated: every listed field must carry a non-empty value.
	FieldIDs []string

	// field_value: one field compared against Expected.
	FieldID  string
	Operator Operator
	Expected any

	// conditions_cleared: the category must have zero open stipulations.
	Category string

	// document_received: every listed document type must be present.
	DocumentTypes []string
}

// Rule is one declarative advancement rule. Rules are immutable and evaluated
// in table order; the first auto-advance rule whose conditions all hold wins.
type Rule struct {
	TargetMilestone domain.Milestone
	Prerequisites   []domain.Milestone
	Conditions      []Condition
	AutoAdvance     bool
	Notifications   []string
}

// Eligible reports whether the rule may fire at all: the loan's current
// milestone must be a prerequisite and the target must not already appear in
// milestone history. The history check prevents re-firing after a manual
// regression.
func (r Rule) Eligible(loan *los.Loan) bool {
	found := false
	for _, p := range r.Prerequisites {
		if p == loan.Milestone {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	for _, m := range loan.MilestoneHistory {
		if m == r.TargetMilestone {
			return false
		}
	}
	return true
}

// ConditionsMet evaluates all clauses. Clauses are ANDed; the first false one
// short-circuits.
func (r Rule) ConditionsMet(loan *los.Loan) bool {
	for _, c := range r.Conditions {
		if !c.holds(loan) {
			return false
		}
	}
	return true
}

func (c Condition) holds(loan *los.Loan) bool {
	switch c.Kind {
	case KindFieldPopulated:
		for _, fieldID := range c.FieldIDs {
			if !populated(loan.Fields[fieldID]) {
				return false
			}
		}
		return true
	case KindFieldValue:
		return compare(loan.Fields[c.FieldID], c.Operator, c.Expected)
	case KindConditionsCleared:
		for _, cond := range loan.Conditions {
			if cond.Category == c.Category && !cond.Cleared {
				return false
			}
		}
		return true
	case KindDocumentReceived:
		for _, docType := range c.DocumentTypes {
			if !hasDocument(loan.Documents, docType) {
				return false
			}
		}
		return true
	}
	return false
}

func populated(value any) bool {
	if value == nil {
		return false
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

func hasDocument(documents []string, docType string) bool {
	for _, d := range documents {
		if strings.EqualFold(d, docType) {
			return true
		}
	}
	return false
}

// compare applies the operator. Numeric operators on non-numeric values are a
// fixed false, never an error.
func compare(actual any, op Operator, expected any) bool {
	switch op {
	case OpNotEmpty:
		return populated(actual)
	case OpEq, OpNe:
		equal := looseEqual(actual, expected)
		if op == OpEq {
			return equal
		}
		return !equal
	case OpGt, OpGte, OpLt, OpLte:
		a, okA := asDecimal(actual)
		b, okB := asDecimal(expected)
		if !okA || !okB {
			return false
		}
		cmp := a.Cmp(b)
		switch op {
		case OpGt:
			return cmp > 0
		case OpGte:
			return cmp >= 0
		case OpLt:
			return cmp < 0
		case OpLte:
			return cmp <= 0
		}
	}
	return false
}

// looseEqual compares numerically when both sides are numeric, otherwise by
// string form, so "660" from the wire equals 660 in a rule.
func looseEqual(actual, expected any) bool {
	if a, ok := asDecimal(actual); ok {
		if b, ok := asDecimal(expected); ok {
			return a.Equal(b)
		}
	}
	return stringify(actual) == stringify(expected)
}

func asDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Decimal{}, false
		}
		return d, true
	}
	return decimal.Decimal{}, false
}

func stringify(value any) string {
	if value == nil {
		return ""
	}
	if d, ok := asDecimal(value); ok {
		return d.String()
	}
	return fmt.Sprint(value)
}
