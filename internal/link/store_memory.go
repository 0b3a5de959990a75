package link

import (
	"context"
	"sync"
	"time"

	id "losbridge/pkg/domain"
)

// InMemoryStore keeps links in process memory. It enforces the same
// uniqueness guarantees as the postgres store so the lifecycle manager's race
// handling is exercised identically in tests.
type InMemoryStore struct {
	mu         sync.RWMutex
	byApp      map[string]*Link
	byExternal map[string]*Link
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byApp:      make(map[string]*Link),
		byExternal: make(map[string]*Link),
	}
}

func (s *InMemoryStore) Create(_ context.Context, link *Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appKey := link.ApplicationID.String()
	extKey := link.ExternalLoanID.String()
	if _, exists := s.byApp[appKey]; exists {
		return ErrDuplicate
	}
	if _, exists := s.byExternal[extKey]; exists {
		return ErrDuplicate
	}

	stored := *link
	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.byApp[appKey] = &stored
	s.byExternal[extKey] = &stored
	return nil
}

func (s *InMemoryStore) FindByApplicationID(_ context.Context, appID id.ApplicationID) (*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if link, ok := s.byApp[appID.String()]; ok {
		copied := *link
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) FindByExternalID(_ context.Context, loanID id.ExternalLoanID) (*Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if link, ok := s.byExternal[loanID.String()]; ok {
		copied := *link
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, appID id.ApplicationID, update Update) (*Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.byApp[appID.String()]
	if !ok {
		return nil, ErrNotFound
	}

	applyUpdate(link, update)
	link.UpdatedAt = time.Now()

	copied := *link
	return &copied, nil
}

func applyUpdate(link *Link, update Update) {
	if update.CurrentMilestone != nil {
		link.CurrentMilestone = *update.CurrentMilestone
	}
	if update.SyncStatus != nil {
		link.SyncStatus = *update.SyncStatus
	}
	if update.SyncRetryCount != nil {
		link.SyncRetryCount = *update.SyncRetryCount
	}
	if update.SyncErrorMessage != nil {
		link.SyncErrorMessage = *update.SyncErrorMessage
	}
	if update.LastSyncToExternal != nil {
		link.LastSyncToExternal = update.LastSyncToExternal
	}
	if update.LastSyncFromExternal != nil {
		link.LastSyncFromExternal = update.LastSyncFromExternal
	}
	if update.MilestoneUpdatedAt != nil {
		link.MilestoneUpdatedAt = update.MilestoneUpdatedAt
	}
}
