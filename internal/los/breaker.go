package los

import (
	"context"
	"log/slog"

	id "losbridge/pkg/domain"
	dErrors "losbridge/pkg/domain-errors"
	"losbridge/pkg/platform/circuit"
)

// BreakerClient guards a Client with a circuit breaker. Transport-level
// failures trip the breaker; while it is open, calls fail fast instead of
// stacking timeouts, with one probe per cooldown window. Not-found and
// validation responses count as successes: the dependency answered.
type BreakerClient struct {
	inner   Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewBreakerClient wraps a client with circuit protection.
func NewBreakerClient(inner Client, logger *slog.Logger, opts ...circuit.Option) *BreakerClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakerClient{
		inner:   inner,
		breaker: circuit.New("los", opts...),
		logger:  logger,
	}
}

func (c *BreakerClient) CreateLoan(ctx context.Context, folder string, fields []FieldValue) (*Loan, error) {
	var loan *Loan
	err := c.call(ctx, "create loan", func() error {
		var callErr error
		loan, callErr = c.inner.CreateLoan(ctx, folder, fields)
		return callErr
	})
	return loan, err
}

func (c *BreakerClient) GetLoan(ctx context.Context, loanID id.ExternalLoanID) (*Loan, error) {
	var loan *Loan
	err := c.call(ctx, "get loan", func() error {
		var callErr error
		loan, callErr = c.inner.GetLoan(ctx, loanID)
		return callErr
	})
	return loan, err
}

func (c *BreakerClient) UpdateLoan(ctx context.Context, loanID id.ExternalLoanID, fields []FieldValue) error {
	return c.call(ctx, "update loan", func() error {
		return c.inner.UpdateLoan(ctx, loanID, fields)
	})
}

func (c *BreakerClient) SearchLoans(ctx context.Context, filter SearchFilter) ([]*Loan, error) {
	var loans []*Loan
	err := c.call(ctx, "search loans", func() error {
		var callErr error
		loans, callErr = c.inner.SearchLoans(ctx, filter)
		return callErr
	})
	return loans, err
}

func (c *BreakerClient) UpdateMilestone(ctx context.Context, loanID id.ExternalLoanID, update MilestoneUpdate) error {
	return c.call(ctx, "update milestone", func() error {
		return c.inner.UpdateMilestone(ctx, loanID, update)
	})
}

func (c *BreakerClient) AddCondition(ctx context.Context, loanID id.ExternalLoanID, req ConditionRequest) (*Condition, error) {
	var created *Condition
	err := c.call(ctx, "add condition", func() error {
		var callErr error
		created, callErr = c.inner.AddCondition(ctx, loanID, req)
		return callErr
	})
	return created, err
}

func (c *BreakerClient) ClearCondition(ctx context.Context, loanID id.ExternalLoanID, conditionID string, req ClearConditionRequest) error {
	return c.call(ctx, "clear condition", func() error {
		return c.inner.ClearCondition(ctx, loanID, conditionID, req)
	})
}

func (c *BreakerClient) call(ctx context.Context, op string, fn func() error) error {
	if !c.breaker.Allow() {
		return dErrors.New(dErrors.CodeExternalCall, "external system unavailable: "+op)
	}

	err := fn()
	if err != nil && dErrors.Is(err, dErrors.CodeExternalCall) {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "external circuit opened", "operation", op)
		}
		return err
	}

	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "external circuit closed", "operation", op)
	}
	return err
}
