package milestone

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
	"losbridge/internal/platform/telemetry"
	"losbridge/pkg/requestcontext"

	id "losbridge/pkg/domain"
	dErrors "losbridge/pkg/domain-errors"
)

// Engine drives milestone advancement. One evaluation yields at most one
// advancement; a scheduler or repeated calls drive multi-step progression.
type Engine struct {
	rules   []Rule
	links   link.Store
	client  los.Client
	logger  *slog.Logger
	bus     events.Bus
	auditor *audit.Publisher
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithEventBus(bus events.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

func WithAuditor(auditor *audit.Publisher) Option {
	return func(e *Engine) { e.auditor = auditor }
}

func NewEngine(rules []Rule, links link.Store, client los.Client, opts ...Option) *Engine {
	e := &Engine{
		rules:  rules,
		links:  links,
		client: client,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateAdvancement returns the first rule, in table order, that is
// eligible for the application's loan, has all conditions met, and carries
// AutoAdvance. A nil rule means nothing fires right now.
func (e *Engine) EvaluateAdvancement(ctx context.Context, appID id.ApplicationID) (*Rule, error) {
	lnk, err := e.findLink(ctx, appID)
	if err != nil {
		return nil, err
	}

	loan, err := e.client.GetLoan(ctx, lnk.ExternalLoanID)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeExternalCall, "fetch external loan", err)
	}

	for i := range e.rules {
		rule := e.rules[i]
		if !rule.Eligible(loan) || !rule.ConditionsMet(loan) {
			continue
		}
		if !rule.AutoAdvance {
			e.logger.InfoContext(ctx, "advancement rule matched but requires manual review",
				"application_id", appID,
				"target_milestone", rule.TargetMilestone)
			continue
		}
		return &rule, nil
	}
	return nil, nil
}

// Advance moves the external loan to the given milestone with a
// system-generated comment embedding the reason, then updates the link and
// emits a platform-sourced milestone event plus an audit entry.
func (e *Engine) Advance(ctx context.Context, appID id.ApplicationID, target domain.Milestone, reason string) error {
	lnk, err := e.findLink(ctx, appID)
	if err != nil {
		return err
	}
	previous := lnk.CurrentMilestone
	if !domain.CanTransition(previous, target) {
		return dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("milestone transition %q -> %q is not allowed", previous, target))
	}

	ctx, span := telemetry.StartSpan(ctx, "milestone.advance",
		attribute.String("application_id", appID.String()),
		attribute.String("target_milestone", string(target)))
	defer span.End()

	err = e.client.UpdateMilestone(ctx, lnk.ExternalLoanID, los.MilestoneUpdate{
		Milestone:       target,
		Comment:         "Advanced by platform: " + reason,
		SystemGenerated: true,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return dErrors.Wrap(dErrors.CodeExternalCall, "update external milestone", err)
	}

	now := requestcontext.Now(ctx)
	if _, err := e.links.Update(ctx, appID, link.Update{
		CurrentMilestone:   &target,
		MilestoneUpdatedAt: &now,
	}); err != nil {
		e.logger.ErrorContext(ctx, "record milestone on link", "error", err,
			"application_id", appID)
	}

	e.logger.InfoContext(ctx, "milestone advanced",
		"application_id", appID,
		"external_loan_id", lnk.ExternalLoanID,
		"previous_milestone", previous,
		"new_milestone", target,
		"reason", reason)

	if e.bus != nil {
		emitErr := e.bus.Emit(ctx, events.Event{
			EventType:      events.TypeMilestoneChanged,
			AggregateType:  "application",
			AggregateID:    appID.String(),
			ExternalLoanID: lnk.ExternalLoanID,
			Payload: map[string]any{
				"previousMilestone": string(previous),
				"newMilestone":      string(target),
				"reason":            reason,
				"source":            events.SourcePlatform,
			},
			OccurredAt: time.Now(),
		})
		if emitErr != nil {
			e.logger.ErrorContext(ctx, "emit milestone changed event", "error", emitErr,
				"application_id", appID)
		}
	}

	if e.auditor != nil {
		auditErr := e.auditor.Log(ctx, audit.Entry{
			EventType:     audit.EventMilestoneAdvanced,
			ResourceType:  "application",
			ResourceID:    appID.String(),
			Action:        "advance",
			PreviousState: map[string]any{"milestone": string(previous)},
			NewState:      map[string]any{"milestone": string(target), "reason": reason},
		})
		if auditErr != nil {
			e.logger.ErrorContext(ctx, "write audit entry", "error", auditErr,
				"application_id", appID)
		}
	}

	return nil
}

func (e *Engine) findLink(ctx context.Context, appID id.ApplicationID) (*link.Link, error) {
	lnk, err := e.links.FindByApplicationID(ctx, appID)
	if err != nil {
		if errors.Is(err, link.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotConfigured, "application is not linked to an external loan")
		}
		return nil, fmt.Errorf("find link: %w", err)
	}
	return lnk, nil
}
