package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"losbridge/internal/audit"
	"losbridge/internal/condition"
	"losbridge/internal/events"
	"losbridge/internal/link"
	"losbridge/internal/los"
	"losbridge/internal/mapping"
	"losbridge/internal/milestone"
	syncsvc "losbridge/internal/sync"
	"losbridge/internal/webhook"
	id "losbridge/pkg/domain"
)

const testWebhookSecret = "transport-test-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	router http.Handler
	client *los.StubClient
	store  link.Store
	bus    *events.MemoryBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client := los.NewStubClient()
	store := link.NewInMemoryStore()
	bus := events.NewMemoryBus()
	auditor := audit.NewPublisher(audit.NewInMemoryStore())

	engine, err := mapping.NewEngine(mapping.NewRegistry(), mapping.DefaultMappings())
	require.NoError(t, err)

	linkSvc := link.NewService(store, client, engine, "Pipeline",
		link.WithEventBus(bus), link.WithAuditor(auditor))
	syncSvc := syncsvc.NewService(store, client, engine,
		syncsvc.WithEventBus(bus), syncsvc.WithAuditor(auditor))
	milestoneEng := milestone.NewEngine(milestone.DefaultRules(), store, client,
		milestone.WithEventBus(bus), milestone.WithAuditor(auditor))
	conditionMgr := condition.NewManager(client, condition.WithAuditor(auditor))

	webhookHandler := webhook.NewHandler(
		webhook.NewVerifier(testWebhookSecret),
		webhook.NewMemoryDeliveryStore(),
		webhook.NewReconciler(store, bus),
	)

	api := NewHandler(linkSvc, store, syncSvc, milestoneEng, conditionMgr, nil)
	return &fixture{
		router: NewRouter(api, webhookHandler, testLogger()),
		client: client,
		store:  store,
		bus:    bus,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) linkApplication(t *testing.T, appID id.ApplicationID) linkResponse {
	t.Helper()

	loanAmount := int64(25_000_000)
	rec := f.do(t, http.MethodPost, "/applications/"+appID.String()+"/link", SnapshotPayload{
		Application: &ApplicationPayload{Status: "approved", LoanAmount: &loanAmount},
		Borrower:    &BorrowerPayload{FirstName: "Dana", LastName: "Reyes"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp linkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateLinkReturnsLink(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()

	resp := f.linkApplication(t, appID)

	assert.Equal(t, appID.String(), resp.ApplicationID)
	assert.NotEmpty(t, resp.ExternalLoanID)
	assert.Equal(t, "DSCR-2024-1000", resp.ExternalLoanNumber)
	assert.Equal(t, "SYNCED", resp.SyncStatus)
}

func TestCreateLinkIsIdempotent(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()

	first := f.linkApplication(t, appID)
	second := f.linkApplication(t, appID)

	assert.Equal(t, first.ExternalLoanID, second.ExternalLoanID)
}

func TestGetLinkNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/applications/"+id.NewApplicationID().String()+"/link", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetLinkInvalidID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/applications/not-a-uuid/link", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPushUpdatesExternalLoan(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()
	created := f.linkApplication(t, appID)

	rec := f.do(t, http.MethodPost, "/applications/"+appID.String()+"/sync", SnapshotPayload{
		Metrics: &MetricsPayload{DSCR: "1.25"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp pushResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.FieldIDs, "CX.DSCR")

	loan, err := f.client.GetLoan(context.Background(), id.ExternalLoanID(created.ExternalLoanID))
	require.NoError(t, err)
	assert.Equal(t, "1.25", fmt.Sprint(loan.Fields["CX.DSCR"]))
}

func TestPushUnlinkedApplication(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/applications/"+id.NewApplicationID().String()+"/sync", SnapshotPayload{
		Metrics: &MetricsPayload{DSCR: "1.25"},
	})

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestPushRejectsBadDecimal(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()
	f.linkApplication(t, appID)

	rec := f.do(t, http.MethodPost, "/applications/"+appID.String()+"/sync", SnapshotPayload{
		Metrics: &MetricsPayload{DSCR: "not-a-number"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPullReturnsSnapshot(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()
	created := f.linkApplication(t, appID)

	rec := f.do(t, http.MethodGet, "/loans/"+created.ExternalLoanID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SnapshotPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Borrower)
	assert.Equal(t, "Dana", resp.Borrower.FirstName)
	require.NotNil(t, resp.Application)
	require.NotNil(t, resp.Application.LoanAmount)
	assert.Equal(t, int64(25_000_000), *resp.Application.LoanAmount)
}

func TestPullUnknownLoan(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/loans/no-such-loan", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvaluateMilestoneMatch(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()
	f.linkApplication(t, appID)

	rec := f.do(t, http.MethodPost, "/applications/"+appID.String()+"/milestone/evaluate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Matched)
	assert.Equal(t, "Application", resp.TargetMilestone)
}

func TestEvaluateMilestoneNoMatch(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()

	rec := f.do(t, http.MethodPost, "/applications/"+appID.String()+"/link", SnapshotPayload{
		Application: &ApplicationPayload{Status: "draft"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/applications/"+appID.String()+"/milestone/evaluate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp evaluateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Matched)
	assert.Empty(t, resp.TargetMilestone)
}

func TestAdvanceMilestone(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()
	created := f.linkApplication(t, appID)

	rec := f.do(t, http.MethodPost, "/applications/"+appID.String()+"/milestone/advance", advanceRequest{
		Milestone: "Application",
		Reason:    "intake complete",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	loan, err := f.client.GetLoan(context.Background(), id.ExternalLoanID(created.ExternalLoanID))
	require.NoError(t, err)
	assert.Equal(t, "Application", string(loan.Milestone))
}

func TestAdvanceMilestoneRejectsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()
	f.linkApplication(t, appID)

	rec := f.do(t, http.MethodPost, "/applications/"+appID.String()+"/milestone/advance", advanceRequest{
		Milestone: "Funded",
		Reason:    "skipping ahead",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdvanceMilestoneRequiresMilestone(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()
	f.linkApplication(t, appID)

	rec := f.do(t, http.MethodPost, "/applications/"+appID.String()+"/milestone/advance", advanceRequest{
		Reason: "no target",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddAndClearCondition(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()
	created := f.linkApplication(t, appID)

	rec := f.do(t, http.MethodPost, "/loans/"+created.ExternalLoanID+"/conditions", addConditionRequest{
		Title:    "2023 tax returns",
		Category: "PTD",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var cond los.Condition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cond))
	assert.Equal(t, "Prior to Documents", cond.PriorTo)

	rec = f.do(t, http.MethodPost, "/loans/"+created.ExternalLoanID+"/conditions/"+cond.ID+"/clear", clearConditionRequest{
		ClearedBy: "processor@example.com",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestAddConditionRequiresTitle(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()
	created := f.linkApplication(t, appID)

	rec := f.do(t, http.MethodPost, "/loans/"+created.ExternalLoanID+"/conditions", addConditionRequest{
		Category: "PTC",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDEchoed(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestWebhookEndToEnd(t *testing.T) {
	f := newFixture(t)
	appID := id.NewApplicationID()
	created := f.linkApplication(t, appID)

	body, err := json.Marshal(webhook.Payload{
		EventType:      webhook.EventMilestoneChanged,
		ExternalLoanID: id.ExternalLoanID(created.ExternalLoanID),
		Data:           map[string]any{"newMilestone": "Application"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/los", bytes.NewReader(body))
	req.Header.Set(webhook.HeaderSignature, webhook.NewVerifier(testWebhookSecret).Sign(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	lnk, err := f.store.FindByApplicationID(context.Background(), appID)
	require.NoError(t, err)
	assert.Equal(t, "Application", string(lnk.CurrentMilestone))

	linkRec := f.do(t, http.MethodGet, "/applications/"+appID.String()+"/link", nil)
	require.Equal(t, http.StatusOK, linkRec.Code)
	var resp linkResponse
	require.NoError(t, json.Unmarshal(linkRec.Body.Bytes(), &resp))
	assert.Equal(t, "ON_TRACK", resp.SLAStatus)
}
