package link

import (
	"context"

	id "losbridge/pkg/domain"
	dErrors "losbridge/pkg/domain-errors"
)

var (
	// ErrNotFound keeps store-level 404s consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "link not found")

	// ErrDuplicate surfaces a uniqueness violation on create. The lifecycle
	// manager treats it as "somebody else won the race" and re-reads.
	ErrDuplicate = dErrors.New(dErrors.CodeInvalidInput, "link already exists")
)

// Store persists links. Implementations must enforce uniqueness on both
// ApplicationID and ExternalLoanID so concurrent creators fail fast on the
// second write instead of silently overwriting.
type Store interface {
	Create(ctx context.Context, link *Link) error
	FindByApplicationID(ctx context.Context, appID id.ApplicationID) (*Link, error)
	FindByExternalID(ctx context.Context, loanID id.ExternalLoanID) (*Link, error)
	Update(ctx context.Context, appID id.ApplicationID, update Update) (*Link, error)
}
