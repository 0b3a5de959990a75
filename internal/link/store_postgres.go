package link

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"losbridge/internal/domain"
	id "losbridge/pkg/domain"
)

// Schema creates the link table. Uniqueness on both keys is what turns a
// concurrent double-create into ErrDuplicate instead of two divergent rows.
const Schema = `
CREATE TABLE IF NOT EXISTS external_loan_links (
	application_id          UUID PRIMARY KEY,
	external_loan_id        TEXT NOT NULL UNIQUE,
	external_loan_number    TEXT NOT NULL DEFAULT '',
	external_folder         TEXT NOT NULL DEFAULT '',
	current_milestone       TEXT NOT NULL DEFAULT '',
	sync_status             TEXT NOT NULL,
	sync_retry_count        INT NOT NULL DEFAULT 0,
	sync_error_message      TEXT NOT NULL DEFAULT '',
	last_sync_to_external   TIMESTAMPTZ,
	last_sync_from_external TIMESTAMPTZ,
	milestone_updated_at    TIMESTAMPTZ,
	created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// PostgresStore persists links in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, link *Link) error {
	now := time.Now()
	createdAt := link.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO external_loan_links (
			application_id, external_loan_id, external_loan_number, external_folder,
			current_milestone, sync_status, sync_retry_count, sync_error_message,
			last_sync_to_external, last_sync_from_external, milestone_updated_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		link.ApplicationID.String(), link.ExternalLoanID.String(),
		link.ExternalLoanNumber, link.ExternalFolder,
		string(link.CurrentMilestone), string(link.SyncStatus),
		link.SyncRetryCount, link.SyncErrorMessage,
		link.LastSyncToExternal, link.LastSyncFromExternal, link.MilestoneUpdatedAt,
		createdAt, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByApplicationID(ctx context.Context, appID id.ApplicationID) (*Link, error) {
	return s.findOne(ctx, `application_id = $1`, appID.String())
}

func (s *PostgresStore) FindByExternalID(ctx context.Context, loanID id.ExternalLoanID) (*Link, error) {
	return s.findOne(ctx, `external_loan_id = $1`, loanID.String())
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*Link, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT application_id, external_loan_id, external_loan_number, external_folder,
			current_milestone, sync_status, sync_retry_count, sync_error_message,
			last_sync_to_external, last_sync_from_external, milestone_updated_at,
			created_at, updated_at
		FROM external_loan_links
		WHERE `+where,
		arg,
	)
	return scanLink(row)
}

func (s *PostgresStore) Update(ctx context.Context, appID id.ApplicationID, update Update) (*Link, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE external_loan_links SET
			current_milestone       = COALESCE($2, current_milestone),
			sync_status             = COALESCE($3, sync_status),
			sync_retry_count        = COALESCE($4, sync_retry_count),
			sync_error_message      = COALESCE($5, sync_error_message),
			last_sync_to_external   = COALESCE($6, last_sync_to_external),
			last_sync_from_external = COALESCE($7, last_sync_from_external),
			milestone_updated_at    = COALESCE($8, milestone_updated_at),
			updated_at              = now()
		WHERE application_id = $1
		RETURNING application_id, external_loan_id, external_loan_number, external_folder,
			current_milestone, sync_status, sync_retry_count, sync_error_message,
			last_sync_to_external, last_sync_from_external, milestone_updated_at,
			created_at, updated_at`,
		appID.String(),
		milestonePtr(update.CurrentMilestone), statusPtr(update.SyncStatus),
		update.SyncRetryCount, update.SyncErrorMessage,
		update.LastSyncToExternal, update.LastSyncFromExternal, update.MilestoneUpdatedAt,
	)
	return scanLink(row)
}

func scanLink(row *sql.Row) (*Link, error) {
	var (
		link       Link
		appID      string
		externalID string
		milestone  string
		status     string
	)
	err := row.Scan(&appID, &externalID, &link.ExternalLoanNumber, &link.ExternalFolder,
		&milestone, &status, &link.SyncRetryCount, &link.SyncErrorMessage,
		&link.LastSyncToExternal, &link.LastSyncFromExternal, &link.MilestoneUpdatedAt,
		&link.CreatedAt, &link.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan link: %w", err)
	}

	if link.ApplicationID, err = id.ParseApplicationID(appID); err != nil {
		return nil, fmt.Errorf("scan link application id: %w", err)
	}
	if link.ExternalLoanID, err = id.ParseExternalLoanID(externalID); err != nil {
		return nil, fmt.Errorf("scan link external loan id: %w", err)
	}
	link.CurrentMilestone = domain.Milestone(milestone)
	link.SyncStatus = SyncStatus(status)
	return &link, nil
}

func milestonePtr(m *domain.Milestone) *string {
	if m == nil {
		return nil
	}
	s := string(*m)
	return &s
}

func statusPtr(s *SyncStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
