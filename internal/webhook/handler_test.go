package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losbridge/internal/domain"
	"losbridge/internal/events"
	"losbridge/internal/link"
	id "losbridge/pkg/domain"
)

const testSecret = "webhook-test-secret"

// brownoutStore fails Update a configured number of times, then delegates.
type brownoutStore struct {
	*link.InMemoryStore
	failures int
}

func (s *brownoutStore) Update(ctx context.Context, appID id.ApplicationID, update link.Update) (*link.Link, error) {
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("store unavailable")
	}
	return s.InMemoryStore.Update(ctx, appID, update)
}

func newHandlerFixture(t *testing.T) (*Handler, *events.MemoryBus, *link.Link) {
	t.Helper()
	handler, bus, lnk := newHandlerFixtureWithStore(t, link.NewInMemoryStore())
	return handler, bus, lnk
}

func newHandlerFixtureWithStore(t *testing.T, links link.Store) (*Handler, *events.MemoryBus, *link.Link) {
	t.Helper()
	lnk := &link.Link{
		ApplicationID:    id.NewApplicationID(),
		ExternalLoanID:   id.ExternalLoanID("loan-1"),
		CurrentMilestone: domain.MilestoneStarted,
		SyncStatus:       link.SyncStatusSynced,
	}
	require.NoError(t, links.Create(context.Background(), lnk))

	bus := events.NewMemoryBus()
	handler := NewHandler(NewVerifier(testSecret), NewMemoryDeliveryStore(), NewReconciler(links, bus))
	return handler, bus, lnk
}

func deliver(t *testing.T, handler *Handler, payload Payload, sign func([]byte) string, deliveryID string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/los", bytes.NewReader(body))
	if sign != nil {
		req.Header.Set(HeaderSignature, sign(body))
	}
	if deliveryID != "" {
		req.Header.Set(HeaderDelivery, deliveryID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandlerAcceptsSignedDelivery(t *testing.T) {
	handler, bus, lnk := newHandlerFixture(t)
	verifier := NewVerifier(testSecret)

	rec := deliver(t, handler, Payload{
		EventType:      EventMilestoneChanged,
		ExternalLoanID: lnk.ExternalLoanID,
		Data:           map[string]any{"newMilestone": "Processing"},
	}, verifier.Sign, "d-1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, bus.ByType(events.TypeMilestoneChanged), 1)
}

func TestHandlerRejectsBadSignature(t *testing.T) {
	handler, bus, lnk := newHandlerFixture(t)

	rec := deliver(t, handler, Payload{
		EventType:      EventMilestoneChanged,
		ExternalLoanID: lnk.ExternalLoanID,
		Data:           map[string]any{"newMilestone": "Processing"},
	}, func([]byte) string { return "deadbeef" }, "d-1")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, bus.Events())
}

func TestHandlerRejectsMissingSignature(t *testing.T) {
	handler, _, lnk := newHandlerFixture(t)

	rec := deliver(t, handler, Payload{
		EventType:      EventMilestoneChanged,
		ExternalLoanID: lnk.ExternalLoanID,
	}, nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerSkipsDuplicateDelivery(t *testing.T) {
	handler, bus, lnk := newHandlerFixture(t)
	verifier := NewVerifier(testSecret)

	payload := Payload{
		EventType:      EventMilestoneChanged,
		ExternalLoanID: lnk.ExternalLoanID,
		Data:           map[string]any{"newMilestone": "Processing"},
	}

	first := deliver(t, handler, payload, verifier.Sign, "d-42")
	second := deliver(t, handler, payload, verifier.Sign, "d-42")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Len(t, bus.ByType(events.TypeMilestoneChanged), 1, "redelivery must not reprocess")
}

func TestHandlerRetriesFailedDeliveryOnRedelivery(t *testing.T) {
	store := &brownoutStore{InMemoryStore: link.NewInMemoryStore(), failures: 1}
	handler, bus, lnk := newHandlerFixtureWithStore(t, store)
	verifier := NewVerifier(testSecret)

	payload := Payload{
		EventType:      EventMilestoneChanged,
		ExternalLoanID: lnk.ExternalLoanID,
		Data:           map[string]any{"newMilestone": "Processing"},
	}

	first := deliver(t, handler, payload, verifier.Sign, "d-77")
	assert.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Empty(t, bus.ByType(events.TypeMilestoneChanged))

	second := deliver(t, handler, payload, verifier.Sign, "d-77")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, `{"status": "ok"}`, second.Body.String(),
		"failed delivery must not be skipped as a duplicate")

	updated, err := store.FindByExternalID(context.Background(), lnk.ExternalLoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.MilestoneProcessing, updated.CurrentMilestone)
	assert.Len(t, bus.ByType(events.TypeMilestoneChanged), 1)
}

func TestHandlerRejectsMalformedPayload(t *testing.T) {
	handler, _, _ := newHandlerFixture(t)
	verifier := NewVerifier(testSecret)

	body := []byte(`{"eventType": ""}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/los", bytes.NewReader(body))
	req.Header.Set(HeaderSignature, verifier.Sign(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifierRoundTrip(t *testing.T) {
	v := NewVerifier("secret")
	body := []byte(`{"eventType":"loan.milestone.changed"}`)

	assert.True(t, v.Verify(body, v.Sign(body)))
	assert.False(t, v.Verify([]byte("tampered"), v.Sign(body)))
	assert.False(t, NewVerifier("").Verify(body, v.Sign(body)))
}

func TestMemoryDeliveryStore(t *testing.T) {
	store := NewMemoryDeliveryStore()
	ctx := context.Background()

	first, err := store.MarkProcessed(ctx, "d-1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkProcessed(ctx, "d-1")
	require.NoError(t, err)
	assert.False(t, again)

	other, err := store.MarkProcessed(ctx, "d-2")
	require.NoError(t, err)
	assert.True(t, other)

	require.NoError(t, store.Release(ctx, "d-1"))
	retried, err := store.MarkProcessed(ctx, "d-1")
	require.NoError(t, err)
	assert.True(t, retried)
}
