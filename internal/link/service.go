package link

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
	"losbridge/internal/los"
	"losbridge/internal/mapping"
	"losbridge/internal/platform/telemetry"
	"losbridge/pkg/requestcontext"

	dErrors "losbridge/pkg/domain-errors"
)

// TrackingSource is written to the external tracking fields so operators can
// tell bridge-managed loans apart from manually created ones.
const TrackingSource = "platform"

// Service is the link lifecycle manager. CreateOrGet is the only way a link
// comes into existence; it is idempotent and recovers loans that were created
// externally but never recorded locally.
type Service struct {
	store   Store
	client  los.Client
	engine  *mapping.Engine
	folder  string
	logger  *slog.Logger
	bus     events.Bus
	auditor *audit.Publisher
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

func NewService(store Store, client los.Client, engine *mapping.Engine, folder string, opts ...Option) *Service {
	s := &Service{
		store:  store,
		client: client,
		engine: engine,
		folder: folder,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrGet returns the link for the snapshot's application, creating the
// external loan if no link exists yet. Calling it twice never creates two
// loans: an existing link short-circuits, an orphaned external loan is
// re-attached through its tracking field, and a lost store race defers to the
// winner's row.
func (s *Service) CreateOrGet(ctx context.Context, snapshot *domain.Snapshot) (*Link, error) {
	if snapshot == nil || snapshot.Application == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "application is required")
	}
	appID := snapshot.Application.ID

	existing, err := s.store.FindByApplicationID(ctx, appID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find link: %w", err)
	}

	ctx, span := telemetry.StartSpan(ctx, "link.create_or_get",
		attribute.String("application_id", appID.String()))
	defer span.End()

	loan, recovered, err := s.findOrCreateLoan(ctx, snapshot)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	now := requestcontext.Now(ctx)
	created := &Link{
		ApplicationID:      appID,
		ExternalLoanID:     loan.ID,
		ExternalLoanNumber: loan.Number,
		ExternalFolder:     loan.Folder,
		CurrentMilestone:   loan.Milestone,
		SyncStatus:         SyncStatusSynced,
		LastSyncToExternal: &now,
	}
	if err := s.store.Create(ctx, created); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Lost the race. The winner's loan is authoritative; ours becomes
			// an orphan the next CreateOrGet would re-attach, so log it.
			s.logger.WarnContext(ctx, "concurrent link creation, deferring to existing link",
				"application_id", appID, "external_loan_id", loan.ID)
			return s.store.FindByApplicationID(ctx, appID)
		}
		return nil, fmt.Errorf("create link: %w", err)
	}

	s.logger.InfoContext(ctx, "application linked to external loan",
		"application_id", appID,
		"external_loan_id", loan.ID,
		"external_loan_number", loan.Number,
		"recovered", recovered)
	s.emitLinked(ctx, created, recovered)
	s.logAudit(ctx, created, recovered)

	return created, nil
}

func (s *Service) findOrCreateLoan(ctx context.Context, snapshot *domain.Snapshot) (*los.Loan, bool, error) {
	appID := snapshot.Application.ID

	// An external loan carrying our tracking field without a local link is an
	// orphan from a previously interrupted create. Adopt it instead of
	// creating a duplicate.
	orphans, err := s.client.SearchLoans(ctx, los.SearchFilter{
		FieldID: mapping.TrackingFieldAppID,
		Value:   appID.String(),
	})
	if err != nil {
		return nil, false, dErrors.Wrap(dErrors.CodeExternalCall, "search loans by tracking field", err)
	}
	if len(orphans) > 0 {
		return orphans[0], true, nil
	}

	loan, err := s.client.CreateLoan(ctx, s.folder, s.engine.ToExternal(snapshot))
	if err != nil {
		return nil, false, dErrors.Wrap(dErrors.CodeExternalCall, "create external loan", err)
	}

	// Tracking fields go on in a second write so the loan is searchable by
	// application ID even if we crash before the link row lands.
	tracking := s.engine.ToExternal(&domain.Snapshot{Tracking: &domain.Tracking{
		ApplicationID: appID.String(),
		Source:        TrackingSource,
		LinkedAt:      requestcontext.Now(ctx),
	}})
	if err := s.client.UpdateLoan(ctx, loan.ID, tracking); err != nil {
		return nil, false, dErrors.Wrap(dErrors.CodeExternalCall, "write tracking fields", err)
	}

	return loan, false, nil
}

func (s *Service) emitLinked(ctx context.Context, link *Link, recovered bool) {
	if s.bus == nil {
		return
	}
	err := s.bus.Emit(ctx, events.Event{
		EventType:      events.TypeLoanLinked,
		AggregateType:  "application",
		AggregateID:    link.ApplicationID.String(),
		ExternalLoanID: link.ExternalLoanID,
		Payload: map[string]any{
			"externalLoanNumber": link.ExternalLoanNumber,
			"externalFolder":     link.ExternalFolder,
			"recovered":          recovered,
		},
		OccurredAt: time.Now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "emit loan linked event", "error", err,
			"application_id", link.ApplicationID)
	}
}

func (s *Service) logAudit(ctx context.Context, link *Link, recovered bool) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Log(ctx, audit.Entry{
		EventType:    audit.EventLoanLinked,
		ResourceType: "application",
		ResourceID:   link.ApplicationID.String(),
		Action:       "link",
		NewState: map[string]any{
			"externalLoanId":     link.ExternalLoanID.String(),
			"externalLoanNumber": link.ExternalLoanNumber,
			"recovered":          recovered,
		},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "write audit entry", "error", err,
			"application_id", link.ApplicationID)
	}
}
