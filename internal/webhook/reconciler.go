package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"losbridge/internal/domain"
	"losbridge/internal/events"
	"losbridge/internal/link"
	"losbridge/internal/webhook/metrics"
	"losbridge/pkg/requestcontext"
)

// Reconciler applies external change notifications to local link state.
// Deliveries for loans this platform does not track are dropped without
// error; webhooks are push notifications the platform cannot reject.
type Reconciler struct {
	links   link.Store
	bus     events.Bus
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type ReconcilerOption func(*Reconciler)

func WithLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) ReconcilerOption {
	return func(r *Reconciler) { r.metrics = m }
}

func NewReconciler(links link.Store, bus events.Bus, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		links:  links,
		bus:    bus,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle dispatches one verified delivery. It returns an error only for
// internal failures; unmatched loans and unrecognized event types are no-ops.
func (r *Reconciler) Handle(ctx context.Context, payload Payload) error {
	lnk, err := r.links.FindByExternalID(ctx, payload.ExternalLoanID)
	if err != nil {
		if errors.Is(err, link.ErrNotFound) {
			r.logger.DebugContext(ctx, "webhook for untracked loan dropped",
				"event_type", payload.EventType,
				"external_loan_id", payload.ExternalLoanID)
			if r.metrics != nil {
				r.metrics.UnknownLoan.Inc()
			}
			return nil
		}
		return fmt.Errorf("find link: %w", err)
	}

	if r.metrics != nil {
		r.metrics.Received.WithLabelValues(payload.EventType).Inc()
	}

	switch payload.EventType {
	case EventMilestoneChanged:
		return r.handleMilestoneChanged(ctx, lnk, payload)
	case EventFieldChanged:
		// Selective field back-sync is intentionally not implemented yet.
		// Acknowledge and count so the gap stays visible in dashboards
		// instead of silently dropping the delivery.
		r.logger.InfoContext(ctx, "field change delivery acknowledged without back-sync",
			"external_loan_id", payload.ExternalLoanID,
			"application_id", lnk.ApplicationID)
		if r.metrics != nil {
			r.metrics.FieldChangeIgnored.Inc()
		}
		return nil
	case EventConditionChanged:
		return r.handleConditionChanged(ctx, lnk, payload)
	default:
		r.logger.WarnContext(ctx, "unrecognized webhook event type",
			"event_type", payload.EventType,
			"external_loan_id", payload.ExternalLoanID)
		return nil
	}
}

func (r *Reconciler) handleMilestoneChanged(ctx context.Context, lnk *link.Link, payload Payload) error {
	newMilestone := domain.Milestone(stringField(payload.Data, "newMilestone"))
	if newMilestone == "" {
		r.logger.WarnContext(ctx, "milestone change without newMilestone dropped",
			"external_loan_id", payload.ExternalLoanID)
		return nil
	}
	previous := stringField(payload.Data, "previousMilestone")
	if previous == "" {
		previous = string(lnk.CurrentMilestone)
	}

	now := requestcontext.Now(ctx)
	if _, err := r.links.Update(ctx, lnk.ApplicationID, link.Update{
		CurrentMilestone:   &newMilestone,
		MilestoneUpdatedAt: &now,
	}); err != nil {
		return fmt.Errorf("update link milestone: %w", err)
	}

	r.logger.InfoContext(ctx, "milestone updated from webhook",
		"application_id", lnk.ApplicationID,
		"external_loan_id", lnk.ExternalLoanID,
		"previous_milestone", previous,
		"new_milestone", newMilestone,
		"changed_by", stringField(payload.Data, "changedBy"),
		"delivery_id", requestcontext.DeliveryID(ctx))

	return r.emit(ctx, lnk, events.TypeMilestoneChanged, map[string]any{
		"previousMilestone": previous,
		"newMilestone":      string(newMilestone),
		"changedBy":         stringField(payload.Data, "changedBy"),
		"source":            events.SourceWebhook,
	})
}

func (r *Reconciler) handleConditionChanged(ctx context.Context, lnk *link.Link, payload Payload) error {
	// No local condition state to reconcile; downstream consumers own the
	// reaction. Re-emit the raw data tagged with the webhook source.
	data := make(map[string]any, len(payload.Data)+1)
	for k, v := range payload.Data {
		data[k] = v
	}
	data["source"] = events.SourceWebhook
	return r.emit(ctx, lnk, events.TypeConditionChanged, data)
}

func (r *Reconciler) emit(ctx context.Context, lnk *link.Link, eventType string, payload map[string]any) error {
	if r.bus == nil {
		return nil
	}
	err := r.bus.Emit(ctx, events.Event{
		EventType:      eventType,
		AggregateType:  "application",
		AggregateID:    lnk.ApplicationID.String(),
		ExternalLoanID: lnk.ExternalLoanID,
		Payload:        payload,
		OccurredAt:     time.Now(),
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "emit webhook event", "error", err,
			"event_type", eventType,
			"application_id", lnk.ApplicationID)
	}
	return nil
}

func stringField(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}
