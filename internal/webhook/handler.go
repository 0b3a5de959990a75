package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"losbridge/internal/webhook/metrics"
	"losbridge/pkg/platform/httputil"
	"losbridge/pkg/requestcontext"
)

// Signature and delivery headers set by the external system.
const (
	HeaderSignature = "X-LOS-Signature"
	HeaderDelivery  = "X-LOS-Delivery"
)

const maxBodyBytes = 1 << 20

// Handler is the HTTP edge for deliveries: verify, dedupe, dispatch.
type Handler struct {
	verifier   *Verifier
	deliveries DeliveryStore
	reconciler *Reconciler
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type HandlerOption func(*Handler)

func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

func WithHandlerMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

func NewHandler(verifier *Verifier, deliveries DeliveryStore, reconciler *Reconciler, opts ...HandlerOption) *Handler {
	h := &Handler{
		verifier:   verifier,
		deliveries: deliveries,
		reconciler: reconciler,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP handles POST deliveries. Responses are intentionally terse: the
// external system only needs a 2xx to stop redelivering.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	defer r.Body.Close()

	if !h.verifier.Verify(body, r.Header.Get(HeaderSignature)) {
		h.logger.WarnContext(r.Context(), "webhook signature rejected",
			"remote_addr", r.RemoteAddr)
		if h.metrics != nil {
			h.metrics.InvalidSignature.Inc()
		}
		httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_signature"})
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_json"})
		return
	}
	if payload.EventType == "" || payload.ExternalLoanID.IsZero() {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "missing_fields"})
		return
	}

	ctx := r.Context()
	deliveryID := r.Header.Get(HeaderDelivery)
	if deliveryID != "" {
		ctx = requestcontext.WithDeliveryID(ctx, deliveryID)
		first, err := h.deliveries.MarkProcessed(ctx, deliveryID)
		if err != nil {
			h.logger.ErrorContext(ctx, "delivery dedupe check failed", "error", err,
				"delivery_id", deliveryID)
			httputil.WriteError(w, err)
			return
		}
		if !first {
			if h.metrics != nil {
				h.metrics.DuplicateDelivery.Inc()
			}
			httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
			return
		}
	}

	if err := h.reconciler.Handle(ctx, payload); err != nil {
		h.logger.ErrorContext(ctx, "webhook reconciliation failed", "error", err,
			"event_type", payload.EventType,
			"external_loan_id", payload.ExternalLoanID)
		// Give the delivery ID back so the redelivery triggered by our
		// error response is processed rather than skipped as a duplicate.
		if deliveryID != "" {
			if relErr := h.deliveries.Release(ctx, deliveryID); relErr != nil {
				h.logger.ErrorContext(ctx, "release failed delivery", "error", relErr,
					"delivery_id", deliveryID)
			}
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
