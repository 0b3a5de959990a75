package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeliveryStore remembers which delivery IDs have been processed. The
// external system redelivers on timeout, so the handler records each ID
// before dispatching and skips repeats. A delivery that fails to process is
// released again; redelivery must retry it, not skip it.
type DeliveryStore interface {
	// MarkProcessed records the delivery and reports whether this was the
	// first time it was seen.
	MarkProcessed(ctx context.Context, deliveryID string) (bool, error)
	// Release forgets a recorded delivery so a redelivery is processed.
	Release(ctx context.Context, deliveryID string) error
}

// MemoryDeliveryStore keeps seen IDs in process memory. Suitable for a
// single instance; multi-instance deployments use the Redis store.
type MemoryDeliveryStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeliveryStore() *MemoryDeliveryStore {
	return &MemoryDeliveryStore{seen: make(map[string]struct{})}
}

func (s *MemoryDeliveryStore) MarkProcessed(_ context.Context, deliveryID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[deliveryID]; ok {
		return false, nil
	}
	s.seen[deliveryID] = struct{}{}
	return true, nil
}

func (s *MemoryDeliveryStore) Release(_ context.Context, deliveryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, deliveryID)
	return nil
}

const deliveryKeyPrefix = "webhook:delivery:"

// RedisDeliveryStore shares seen IDs across instances via SETNX with a TTL.
type RedisDeliveryStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeliveryStore(client *redis.Client, ttl time.Duration) *RedisDeliveryStore {
	return &RedisDeliveryStore{client: client, ttl: ttl}
}

func (s *RedisDeliveryStore) MarkProcessed(ctx context.Context, deliveryID string) (bool, error) {
	return s.client.SetNX(ctx, deliveryKeyPrefix+deliveryID, "1", s.ttl).Result()
}

func (s *RedisDeliveryStore) Release(ctx context.Context, deliveryID string) error {
	return s.client.Del(ctx, deliveryKeyPrefix+deliveryID).Err()
}
