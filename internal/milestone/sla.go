package milestone

import (
	"time"

	"losbridge/internal/domain"
)

// SLAStatus classifies how long a loan has sat in its current milestone.
type SLAStatus string

const (
	SLAOnTrack  SLAStatus = "ON_TRACK"
	SLAAtRisk   SLAStatus = "AT_RISK"
	SLABreached SLAStatus = "BREACHED"
)

// defaultSLA applies to milestones without an explicit allowance.
const defaultSLA = 48 * time.Hour

// milestoneSLA is the processing-time allowance per milestone. Terminal
// milestones carry none.
var milestoneSLA = map[domain.Milestone]time.Duration{
	domain.MilestoneStarted:      24 * time.Hour,
	domain.MilestoneApplication:  48 * time.Hour,
	domain.MilestonePreApproved:  24 * time.Hour,
	domain.MilestoneProcessing:   72 * time.Hour,
	domain.MilestoneSubmitted:    48 * time.Hour,
	domain.MilestoneCondApproved: 24 * time.Hour,
	domain.MilestoneApproved:     24 * time.Hour,
	domain.MilestoneDocsOut:      48 * time.Hour,
	domain.MilestoneDocsBack:     24 * time.Hour,
	domain.MilestoneClearToClose: 24 * time.Hour,
	domain.MilestoneClosing:      48 * time.Hour,
}

// EvaluateSLA classifies the time spent in a milestone: BREACHED past the
// allowance, AT_RISK past 75% of it, ON_TRACK otherwise. A zero enteredAt
// (milestone age unknown) is ON_TRACK.
func EvaluateSLA(m domain.Milestone, enteredAt time.Time, now time.Time) SLAStatus {
	if enteredAt.IsZero() {
		return SLAOnTrack
	}
	allowance, ok := milestoneSLA[m]
	if !ok {
		allowance = defaultSLA
	}
	elapsed := now.Sub(enteredAt)
	switch {
	case elapsed > allowance:
		return SLABreached
	case elapsed > allowance*3/4:
		return SLAAtRisk
	default:
		return SLAOnTrack
	}
}
