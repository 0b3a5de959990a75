// Package sync pushes platform changes to the external loan record and pulls
// the external record back into platform shape. Pushes are partial: only the
// snapshot sections the caller populated cross the wire.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"losbridge/internal/audit"
	"losbridge/internal/domain"
	"losbridge/internal/events"
	"losbridge/internal/link"
	"losbridge/internal/los"
	"losbridge/internal/mapping"
	"losbridge/internal/platform/telemetry"
	"losbridge/internal/sync/metrics"
	"losbridge/pkg/requestcontext"

	id "losbridge/pkg/domain"
	dErrors "losbridge/pkg/domain-errors"
)

// Service is the sync engine. It never creates links; an unlinked application
// is a precondition failure the caller resolves through the link lifecycle
// manager first.
type Service struct {
	links   link.Store
	client  los.Client
	engine  *mapping.Engine
	logger  *slog.Logger
	bus     events.Bus
	auditor *audit.Publisher
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEventBus(bus events.Bus) Option {
	return func(s *Service) { s.bus = bus }
}

func WithAuditor(auditor *audit.Publisher) Option {
	return func(s *Service) { s.auditor = auditor }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(links link.Store, client los.Client, engine *mapping.Engine, opts ...Option) *Service {
	s := &Service{
		links:  links,
		client: client,
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PushResult reports what a push actually sent.
type PushResult struct {
	FieldIDs []string
	SyncedAt time.Time
}

// ToExternal pushes the populated sections of the snapshot to the linked
// external loan. A snapshot that maps to zero field updates is a no-op and
// makes no external call. Failure is bookkept on the link (status, retry
// count, message) and re-raised to the caller.
func (s *Service) ToExternal(ctx context.Context, snapshot *domain.Snapshot) (*PushResult, error) {
	if snapshot == nil || snapshot.Application == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "application is required")
	}
	appID := snapshot.Application.ID

	lnk, err := s.links.FindByApplicationID(ctx, appID)
	if err != nil {
		if errors.Is(err, link.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotConfigured, "application is not linked to an external loan")
		}
		return nil, fmt.Errorf("find link: %w", err)
	}

	fields := s.engine.ToExternal(snapshot)
	if len(fields) == 0 {
		s.logger.DebugContext(ctx, "push skipped, no mapped values",
			"application_id", appID)
		if s.metrics != nil {
			s.metrics.IncrementPushSkipped()
		}
		return &PushResult{}, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "sync.push",
		attribute.String("application_id", appID.String()),
		attribute.String("external_loan_id", lnk.ExternalLoanID.String()),
		attribute.Int("field_count", len(fields)))
	defer span.End()

	start := time.Now()
	pushErr := s.client.UpdateLoan(ctx, lnk.ExternalLoanID, fields)
	if s.metrics != nil {
		s.metrics.ObservePush(start, len(fields), pushErr)
	}
	if pushErr != nil {
		telemetry.RecordError(span, pushErr)
		s.recordFailure(ctx, lnk, pushErr)
		return nil, dErrors.Wrap(dErrors.CodeExternalCall, "push to external loan", pushErr)
	}

	fieldIDs := make([]string, len(fields))
	for i, f := range fields {
		fieldIDs[i] = f.ID
	}
	syncedAt := requestcontext.Now(ctx)
	s.recordSuccess(ctx, lnk, fieldIDs, syncedAt)

	return &PushResult{FieldIDs: fieldIDs, SyncedAt: syncedAt}, nil
}

// FromExternal pulls the external loan and maps it back into platform shape.
// When a link exists for the loan its bookkeeping (pull timestamp, current
// milestone) is refreshed; the converted snapshot is returned either way, so
// reconciliation works for loans this platform never linked.
func (s *Service) FromExternal(ctx context.Context, loanID id.ExternalLoanID) (*domain.Snapshot, error) {
	loan, err := s.client.GetLoan(ctx, loanID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(dErrors.CodeExternalCall, "fetch external loan", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementPull()
	}

	snapshot := s.engine.ToPlatform(loan.Fields)

	lnk, err := s.links.FindByExternalID(ctx, loanID)
	if err != nil {
		if !errors.Is(err, link.ErrNotFound) {
			s.logger.ErrorContext(ctx, "find link for pull", "error", err,
				"external_loan_id", loanID)
		}
		return snapshot, nil
	}

	now := requestcontext.Now(ctx)
	update := link.Update{LastSyncFromExternal: &now}
	if loan.Milestone != "" && loan.Milestone != lnk.CurrentMilestone {
		update.CurrentMilestone = &loan.Milestone
		update.MilestoneUpdatedAt = &now
	}
	if _, err := s.links.Update(ctx, lnk.ApplicationID, update); err != nil {
		s.logger.ErrorContext(ctx, "record pull on link", "error", err,
			"application_id", lnk.ApplicationID)
	}

	return snapshot, nil
}

func (s *Service) recordSuccess(ctx context.Context, lnk *link.Link, fieldIDs []string, syncedAt time.Time) {
	status := link.SyncStatusSynced
	retries := 0
	message := ""
	_, err := s.links.Update(ctx, lnk.ApplicationID, link.Update{
		SyncStatus:         &status,
		SyncRetryCount:     &retries,
		SyncErrorMessage:   &message,
		LastSyncToExternal: &syncedAt,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "record push success on link", "error", err,
			"application_id", lnk.ApplicationID)
	}

	s.logger.InfoContext(ctx, "pushed to external loan",
		"application_id", lnk.ApplicationID,
		"external_loan_id", lnk.ExternalLoanID,
		"field_count", len(fieldIDs))

	if s.auditor != nil {
		auditErr := s.auditor.Log(ctx, audit.Entry{
			EventType:    audit.EventLoanSynced,
			ResourceType: "application",
			ResourceID:   lnk.ApplicationID.String(),
			Action:       "push",
			NewState: map[string]any{
				"externalLoanId": lnk.ExternalLoanID.String(),
				"fieldIds":       fieldIDs,
			},
		})
		if auditErr != nil {
			s.logger.ErrorContext(ctx, "write audit entry", "error", auditErr,
				"application_id", lnk.ApplicationID)
		}
	}
}

func (s *Service) recordFailure(ctx context.Context, lnk *link.Link, pushErr error) {
	status := link.SyncStatusFailed
	retries := lnk.SyncRetryCount + 1
	message := pushErr.Error()
	_, err := s.links.Update(ctx, lnk.ApplicationID, link.Update{
		SyncStatus:       &status,
		SyncRetryCount:   &retries,
		SyncErrorMessage: &message,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "record push failure on link", "error", err,
			"application_id", lnk.ApplicationID)
	}

	s.logger.ErrorContext(ctx, "push to external loan failed",
		"error", pushErr,
		"application_id", lnk.ApplicationID,
		"external_loan_id", lnk.ExternalLoanID,
		"retry_count", retries)

	if s.bus != nil {
		emitErr := s.bus.Emit(ctx, events.Event{
			EventType:      events.TypeSyncFailed,
			AggregateType:  "application",
			AggregateID:    lnk.ApplicationID.String(),
			ExternalLoanID: lnk.ExternalLoanID,
			Payload: map[string]any{
				"error":      pushErr.Error(),
				"retryCount": retries,
			},
			OccurredAt: time.Now(),
		})
		if emitErr != nil {
			s.logger.ErrorContext(ctx, "emit sync failed event", "error", emitErr,
				"application_id", lnk.ApplicationID)
		}
	}

	if s.auditor != nil {
		auditErr := s.auditor.Log(ctx, audit.Entry{
			EventType:    audit.EventSyncFailed,
			ResourceType: "application",
			ResourceID:   lnk.ApplicationID.String(),
			Action:       "push",
			NewState: map[string]any{
				"error":      pushErr.Error(),
				"retryCount": retries,
			},
		})
		if auditErr != nil {
			s.logger.ErrorContext(ctx, "write audit entry", "error", auditErr,
				"application_id", lnk.ApplicationID)
		}
	}
}
