package webhook

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losbridge/internal/domain"
	"losbridge/internal/events"
	"losbridge/internal/link"
	id "losbridge/pkg/domain"
)

func newReconcilerFixture(t *testing.T) (*Reconciler, *link.InMemoryStore, *events.MemoryBus, *link.Link) {
	t.Helper()
	links := link.NewInMemoryStore()
	lnk := &link.Link{
		ApplicationID:    id.NewApplicationID(),
		ExternalLoanID:   id.ExternalLoanID("loan-1"),
		CurrentMilestone: domain.MilestoneStarted,
		SyncStatus:       link.SyncStatusSynced,
	}
	require.NoError(t, links.Create(context.Background(), lnk))

	bus := events.NewMemoryBus()
	return NewReconciler(links, bus), links, bus, lnk
}

func TestMilestoneChangedUpdatesLink(t *testing.T) {
	ctx := context.Background()
	r, links, bus, lnk := newReconcilerFixture(t)

	err := r.Handle(ctx, Payload{
		EventType:      EventMilestoneChanged,
		ExternalLoanID: lnk.ExternalLoanID,
		Data: map[string]any{
			"previousMilestone": "Started",
			"newMilestone":      "Processing",
			"changedBy":         "underwriter@los.example",
		},
	})
	require.NoError(t, err)

	updated, err := links.FindByApplicationID(ctx, lnk.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, domain.MilestoneProcessing, updated.CurrentMilestone)
	assert.NotNil(t, updated.MilestoneUpdatedAt)

	changed := bus.ByType(events.TypeMilestoneChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, events.SourceWebhook, changed[0].Payload["source"])
	assert.Equal(t, "Processing", changed[0].Payload["newMilestone"])
	assert.Equal(t, "underwriter@los.example", changed[0].Payload["changedBy"])
	assert.Equal(t, lnk.ApplicationID.String(), changed[0].AggregateID)
}

func TestMilestoneChangedFillsPreviousFromLink(t *testing.T) {
	r, _, bus, lnk := newReconcilerFixture(t)

	err := r.Handle(context.Background(), Payload{
		EventType:      EventMilestoneChanged,
		ExternalLoanID: lnk.ExternalLoanID,
		Data:           map[string]any{"newMilestone": "Application"},
	})
	require.NoError(t, err)

	changed := bus.ByType(events.TypeMilestoneChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, "Started", changed[0].Payload["previousMilestone"])
}

func TestUnknownLoanIsDroppedSilently(t *testing.T) {
	r, _, bus, _ := newReconcilerFixture(t)

	err := r.Handle(context.Background(), Payload{
		EventType:      EventMilestoneChanged,
		ExternalLoanID: id.ExternalLoanID("never-seen"),
		Data:           map[string]any{"newMilestone": "Processing"},
	})
	require.NoError(t, err)
	assert.Empty(t, bus.Events())
}

func TestFieldChangedIsAcknowledgedWithoutSideEffects(t *testing.T) {
	ctx := context.Background()
	r, links, bus, lnk := newReconcilerFixture(t)

	err := r.Handle(ctx, Payload{
		EventType:      EventFieldChanged,
		ExternalLoanID: lnk.ExternalLoanID,
		Data:           map[string]any{"fieldId": "1109", "newValue": 300000.00},
	})
	require.NoError(t, err)
	assert.Empty(t, bus.Events())

	unchanged, err := links.FindByApplicationID(ctx, lnk.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, domain.MilestoneStarted, unchanged.CurrentMilestone)
}

func TestConditionChangedReEmitsData(t *testing.T) {
	r, _, bus, lnk := newReconcilerFixture(t)

	err := r.Handle(context.Background(), Payload{
		EventType:      EventConditionChanged,
		ExternalLoanID: lnk.ExternalLoanID,
		Data: map[string]any{
			"conditionId": "c-17",
			"cleared":     true,
		},
	})
	require.NoError(t, err)

	emitted := bus.ByType(events.TypeConditionChanged)
	require.Len(t, emitted, 1)
	assert.Equal(t, "c-17", emitted[0].Payload["conditionId"])
	assert.Equal(t, true, emitted[0].Payload["cleared"])
	assert.Equal(t, events.SourceWebhook, emitted[0].Payload["source"])
}

func TestUnrecognizedEventTypeIsNoOp(t *testing.T) {
	r, _, bus, lnk := newReconcilerFixture(t)

	err := r.Handle(context.Background(), Payload{
		EventType:      "loan.document.uploaded",
		ExternalLoanID: lnk.ExternalLoanID,
	})
	require.NoError(t, err)
	assert.Empty(t, bus.Events())
}
