// Package link owns the Application↔External-Loan association: the record
// itself, its stores, and the lifecycle manager that creates and idempotently
// reuses it.
package link

import (
	"time"

	"losbridge/internal/domain"
	id "losbridge/pkg/domain"
)

// SyncStatus reflects the outcome of the most recent push to the external
// system.
type SyncStatus string

const (
	SyncStatusSynced SyncStatus = "SYNCED"
	SyncStatusFailed SyncStatus = "FAILED"
)

// Link is the persisted association between a platform application and its
// external loan record. Created once, mutated many times, never deleted.
// ExternalLoanID is assigned once and immutable after creation.
type Link struct {
	ApplicationID        id.ApplicationID
	ExternalLoanID       id.ExternalLoanID
	ExternalLoanNumber   string
	ExternalFolder       string
	CurrentMilestone     domain.Milestone
	SyncStatus           SyncStatus
	SyncRetryCount       int
	SyncErrorMessage     string
	LastSyncToExternal   *time.Time
	LastSyncFromExternal *time.Time
	MilestoneUpdatedAt   *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Update is a partial mutation applied to a link. Nil fields are untouched,
// which lets each writer own only its columns: the sync engine owns the sync
// bookkeeping, the milestone engine and webhook reconciler own the milestone.
type Update struct {
	CurrentMilestone     *domain.Milestone
	SyncStatus           *SyncStatus
	SyncRetryCount       *int
	SyncErrorMessage     *string
	LastSyncToExternal   *time.Time
	LastSyncFromExternal *time.Time
	MilestoneUpdatedAt   *time.Time
}
