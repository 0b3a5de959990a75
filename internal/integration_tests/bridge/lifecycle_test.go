package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losbridge/internal/audit"
	"losbridge/internal/domain"
	"losbridge/internal/events"
	"losbridge/internal/link"
	"losbridge/internal/los"
	"losbridge/internal/mapping"
	syncsvc "losbridge/internal/sync"
	"losbridge/internal/webhook"
	id "losbridge/pkg/domain"
	dErrors "losbridge/pkg/domain-errors"
)

// unreliableClient fails UpdateLoan a fixed number of times before letting
// calls through to the stub.
type unreliableClient struct {
	*los.StubClient
	failuresLeft int
}

func (c *unreliableClient) UpdateLoan(ctx context.Context, loanID id.ExternalLoanID, fields []los.FieldValue) error {
	if c.failuresLeft > 0 {
		c.failuresLeft--
		return dErrors.New(dErrors.CodeExternalCall, "connection reset by peer")
	}
	return c.StubClient.UpdateLoan(ctx, loanID, fields)
}

// TestLoanLifecycle walks one application through the whole bridge: link
// creation, a failed push with its bookkeeping, the successful retry, and an
// externally driven milestone change arriving over the webhook.
func TestLoanLifecycle(t *testing.T) {
	ctx := context.Background()

	client := &unreliableClient{StubClient: los.NewStubClient()}
	store := link.NewInMemoryStore()
	bus := events.NewMemoryBus()
	auditor := audit.NewPublisher(audit.NewInMemoryStore())
	engine, err := mapping.NewEngine(mapping.NewRegistry(), mapping.DefaultMappings())
	require.NoError(t, err)

	linkSvc := link.NewService(store, client, engine, "Pipeline",
		link.WithEventBus(bus), link.WithAuditor(auditor))
	syncSvc := syncsvc.NewService(store, client, engine,
		syncsvc.WithEventBus(bus), syncsvc.WithAuditor(auditor))
	reconciler := webhook.NewReconciler(store, bus)

	appID := id.NewApplicationID()
	snapshot := &domain.Snapshot{
		Application: &domain.Application{ID: appID, Status: "approved", LoanAmount: domain.USD(25_000_000)},
		Borrower:    &domain.Borrower{FirstName: "Dana", LastName: "Reyes"},
	}

	// Link the application. Creation counts as the first successful push.
	created, err := linkSvc.CreateOrGet(ctx, snapshot)
	require.NoError(t, err)
	assert.Equal(t, link.SyncStatusSynced, created.SyncStatus)
	assert.Equal(t, 0, created.SyncRetryCount)
	assert.Equal(t, domain.MilestoneStarted, created.CurrentMilestone)

	// First push hits a transport failure and is bookkept on the link.
	client.failuresLeft = 1
	_, err = syncSvc.ToExternal(ctx, &domain.Snapshot{
		Application: &domain.Application{ID: appID},
		Metrics:     &domain.Metrics{NetIncome: domain.USD(1_850_000)},
	})
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeExternalCall))

	failed, err := store.FindByApplicationID(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, link.SyncStatusFailed, failed.SyncStatus)
	assert.Equal(t, 1, failed.SyncRetryCount)
	assert.Equal(t, "connection reset by peer", failed.SyncErrorMessage)
	require.Len(t, bus.ByType(events.TypeSyncFailed), 1)

	// The retry succeeds and clears the failure bookkeeping.
	result, err := syncSvc.ToExternal(ctx, &domain.Snapshot{
		Application: &domain.Application{ID: appID},
		Metrics:     &domain.Metrics{NetIncome: domain.USD(1_850_000)},
	})
	require.NoError(t, err)
	assert.Contains(t, result.FieldIDs, "CX.NOI")

	recovered, err := store.FindByApplicationID(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, link.SyncStatusSynced, recovered.SyncStatus)
	assert.Equal(t, 0, recovered.SyncRetryCount)
	assert.Empty(t, recovered.SyncErrorMessage)

	// The external system advances the loan and notifies us.
	err = reconciler.Handle(ctx, webhook.Payload{
		EventType:      webhook.EventMilestoneChanged,
		ExternalLoanID: created.ExternalLoanID,
		Data:           map[string]any{"newMilestone": "Processing", "changedBy": "underwriter"},
	})
	require.NoError(t, err)

	final, err := store.FindByApplicationID(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, domain.MilestoneProcessing, final.CurrentMilestone)
	require.NotNil(t, final.MilestoneUpdatedAt)

	changes := bus.ByType(events.TypeMilestoneChanged)
	require.Len(t, changes, 1)
	assert.Equal(t, "Processing", changes[0].Payload["newMilestone"])
	assert.Equal(t, events.SourceWebhook, changes[0].Payload["source"])
}
