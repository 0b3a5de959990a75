package domain

// Milestone is a named stage in the external system's processing workflow.
// The external system owns the vocabulary; these constants mirror it.
type Milestone string

const (
	MilestoneStarted      Milestone = "Started"
	MilestoneApplication  Milestone = "Application"
	MilestonePreApproved  Milestone = "Pre-Approved"
	MilestoneProcessing   Milestone = "Processing"
	MilestoneSubmitted    Milestone = "Submitted"
	MilestoneCondApproved Milestone = "Cond. Approval"
	MilestoneApproved     Milestone = "Approved"
	MilestoneDocsOut      Milestone = "Docs Out"
	MilestoneDocsBack     Milestone = "Docs Back"
	MilestoneClearToClose Milestone = "Clear to Close"
	MilestoneClosing      Milestone = "Closing"
	MilestoneFunded       Milestone = "Funded"
	MilestoneCompletion   Milestone = "Completion"

	MilestoneDenied    Milestone = "Denied"
	MilestoneWithdrawn Milestone = "Withdrawn"
)

// validTransitions is the directed progression the external workflow allows.
// Denied/Withdrawn are terminal and reachable from any active stage.
var validTransitions = map[Milestone][]Milestone{
	MilestoneStarted:      {MilestoneApplication},
	MilestoneApplication:  {MilestonePreApproved, MilestoneDenied},
	MilestonePreApproved:  {MilestoneProcessing, MilestoneDenied},
	MilestoneProcessing:   {MilestoneSubmitted, MilestoneDenied},
	MilestoneSubmitted:    {MilestoneCondApproved, MilestoneDenied},
	MilestoneCondApproved: {MilestoneApproved, MilestoneDenied},
	MilestoneApproved:     {MilestoneDocsOut},
	MilestoneDocsOut:      {MilestoneDocsBack},
	MilestoneDocsBack:     {MilestoneClearToClose},
	MilestoneClearToClose: {MilestoneClosing},
	MilestoneClosing:      {MilestoneFunded},
	MilestoneFunded:       {MilestoneCompletion},
}

// CanTransition reports whether the workflow allows moving from one milestone
// directly to another. Withdrawal is allowed from any non-terminal stage.
func CanTransition(from, to Milestone) bool {
	if to == MilestoneWithdrawn {
		return from != MilestoneFunded && from != MilestoneCompletion &&
			from != MilestoneDenied && from != MilestoneWithdrawn
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
