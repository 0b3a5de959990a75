// Package httptransport exposes the bridge operations over HTTP. Handlers
// decode, delegate, and translate errors; all behavior lives in the services.
package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"losbridge/internal/condition"
	"losbridge/internal/domain"
	"losbridge/internal/link"
	"losbridge/internal/milestone"
	syncsvc "losbridge/internal/sync"
	id "losbridge/pkg/domain"
	dErrors "losbridge/pkg/domain-errors"
	"losbridge/pkg/platform/httputil"
)

// Handler serves the application-facing bridge API.
type Handler struct {
	links      *link.Service
	linkStore  link.Store
	syncer     *syncsvc.Service
	milestones *milestone.Engine
	conditions *condition.Manager
	logger     *slog.Logger
}

// NewHandler wires the bridge services into an HTTP handler.
func NewHandler(
	links *link.Service,
	linkStore link.Store,
	syncer *syncsvc.Service,
	milestones *milestone.Engine,
	conditions *condition.Manager,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		links:      links,
		linkStore:  linkStore,
		syncer:     syncer,
		milestones: milestones,
		conditions: conditions,
		logger:     logger,
	}
}

// Register mounts the bridge routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/applications/{applicationID}", func(r chi.Router) {
		r.Post("/link", h.createLink)
		r.Get("/link", h.getLink)
		r.Post("/sync", h.push)
		r.Post("/milestone/evaluate", h.evaluateMilestone)
		r.Post("/milestone/advance", h.advanceMilestone)
	})
	r.Route("/loans/{externalLoanID}", func(r chi.Router) {
		r.Get("/", h.pull)
		r.Post("/conditions", h.addCondition)
		r.Post("/conditions/{conditionID}/clear", h.clearCondition)
	})
}

type linkResponse struct {
	ApplicationID        string     `json:"applicationId"`
	ExternalLoanID       string     `json:"externalLoanId"`
	ExternalLoanNumber   string     `json:"externalLoanNumber"`
	ExternalFolder       string     `json:"externalFolder"`
	CurrentMilestone     string     `json:"currentMilestone,omitempty"`
	SyncStatus           string     `json:"syncStatus"`
	SyncRetryCount       int        `json:"syncRetryCount"`
	SyncErrorMessage     string     `json:"syncErrorMessage,omitempty"`
	LastSyncToExternal   *time.Time `json:"lastSyncToExternal,omitempty"`
	LastSyncFromExternal *time.Time `json:"lastSyncFromExternal,omitempty"`
	MilestoneUpdatedAt   *time.Time `json:"milestoneUpdatedAt,omitempty"`
	SLAStatus            string     `json:"slaStatus,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

func newLinkResponse(l *link.Link) linkResponse {
	var slaStatus string
	if l.MilestoneUpdatedAt != nil {
		slaStatus = string(milestone.EvaluateSLA(l.CurrentMilestone, *l.MilestoneUpdatedAt, time.Now()))
	}
	return linkResponse{
		ApplicationID:        l.ApplicationID.String(),
		ExternalLoanID:       l.ExternalLoanID.String(),
		ExternalLoanNumber:   l.ExternalLoanNumber,
		ExternalFolder:       l.ExternalFolder,
		CurrentMilestone:     string(l.CurrentMilestone),
		SyncStatus:           string(l.SyncStatus),
		SyncRetryCount:       l.SyncRetryCount,
		SyncErrorMessage:     l.SyncErrorMessage,
		LastSyncToExternal:   l.LastSyncToExternal,
		LastSyncFromExternal: l.LastSyncFromExternal,
		MilestoneUpdatedAt:   l.MilestoneUpdatedAt,
		SLAStatus:            slaStatus,
		CreatedAt:            l.CreatedAt,
		UpdatedAt:            l.UpdatedAt,
	}
}

func (h *Handler) createLink(w http.ResponseWriter, r *http.Request) {
	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var payload SnapshotPayload
	if err := decodeJSON(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	snapshot, err := payload.ToDomain()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if snapshot.Application == nil {
		snapshot.Application = &domain.Application{}
	}
	snapshot.Application.ID = appID

	lnk, err := h.links.CreateOrGet(r.Context(), snapshot)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newLinkResponse(lnk))
}

func (h *Handler) getLink(w http.ResponseWriter, r *http.Request) {
	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	lnk, err := h.linkStore.FindByApplicationID(r.Context(), appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newLinkResponse(lnk))
}

type pushResponse struct {
	FieldIDs []string   `json:"fieldIds"`
	SyncedAt *time.Time `json:"syncedAt,omitempty"`
}

func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var payload SnapshotPayload
	if err := decodeJSON(r, &payload); err != nil {
		httputil.WriteError(w, err)
		return
	}
	snapshot, err := payload.ToDomain()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if snapshot.Application == nil {
		snapshot.Application = &domain.Application{}
	}
	snapshot.Application.ID = appID

	result, err := h.syncer.ToExternal(r.Context(), snapshot)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := pushResponse{FieldIDs: result.FieldIDs}
	if !result.SyncedAt.IsZero() {
		resp.SyncedAt = &result.SyncedAt
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathExternalLoanID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	snapshot, err := h.syncer.FromExternal(r.Context(), loanID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SnapshotPayloadFromDomain(snapshot))
}

type evaluateResponse struct {
	Matched         bool     `json:"matched"`
	TargetMilestone string   `json:"targetMilestone,omitempty"`
	Notifications   []string `json:"notifications,omitempty"`
}

func (h *Handler) evaluateMilestone(w http.ResponseWriter, r *http.Request) {
	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rule, err := h.milestones.EvaluateAdvancement(r.Context(), appID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := evaluateResponse{Matched: rule != nil}
	if rule != nil {
		resp.TargetMilestone = string(rule.TargetMilestone)
		resp.Notifications = rule.Notifications
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type advanceRequest struct {
	Milestone string `json:"milestone"`
	Reason    string `json:"reason"`
}

func (h *Handler) advanceMilestone(w http.ResponseWriter, r *http.Request) {
	appID, err := pathApplicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req advanceRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Milestone == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "milestone is required"))
		return
	}

	if err := h.milestones.Advance(r.Context(), appID, domain.Milestone(req.Milestone), req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "advanced", "milestone": req.Milestone})
}

type addConditionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (h *Handler) addCondition(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathExternalLoanID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req addConditionRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.conditions.Add(r.Context(), loanID, condition.Request{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

type clearConditionRequest struct {
	ClearedBy string `json:"clearedBy"`
	Comment   string `json:"comment"`
}

func (h *Handler) clearCondition(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathExternalLoanID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	conditionID := chi.URLParam(r, "conditionID")

	var req clearConditionRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.conditions.Clear(r.Context(), loanID, conditionID, req.ClearedBy, req.Comment); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func pathApplicationID(r *http.Request) (id.ApplicationID, error) {
	return id.ParseApplicationID(chi.URLParam(r, "applicationID"))
}

func pathExternalLoanID(r *http.Request) (id.ExternalLoanID, error) {
	return id.ParseExternalLoanID(chi.URLParam(r, "externalLoanID"))
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid request body")
	}
	return nil
}
