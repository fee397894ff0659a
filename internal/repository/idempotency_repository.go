package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
)

// IdempotencyRepository keeps Idempotency-Key reservations in Redis.
type IdempotencyRepository struct {
	client *redis.Client
	prefix string
}

// NewIdempotencyRepository constructs the repository.
func NewIdempotencyRepository(client *redis.Client, prefix string) *IdempotencyRepository {
	return &IdempotencyRepository{client: client, prefix: prefix}
}

// Reserve claims key for a new request. When the key is already held the stored
// record is returned with reserved=false.
func (r *IdempotencyRepository) Reserve(ctx context.Context, key, fingerprint string, ttl time.Duration) (*models.IdempotencyRecord, bool, error) {
	pending, err := json.Marshal(models.IdempotencyRecord{State: models.IdempotencyPending, Fingerprint: fingerprint})
	if err != nil {
		return nil, false, fmt.Errorf("marshal idempotency record: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.prefix+key, pending, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if ok {
		return nil, true, nil
	}

	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET; try once more.
			return r.Reserve(ctx, key, fingerprint, ttl)
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	var existing models.IdempotencyRecord
	if err := json.Unmarshal(raw, &existing); err != nil {
		return nil, false, fmt.Errorf("unmarshal idempotency record: %w", err)
	}
	return &existing, false, nil
}

// Complete stores the final response under key.
func (r *IdempotencyRepository) Complete(ctx context.Context, key string, record models.IdempotencyRecord, ttl time.Duration) error {
	record.State = models.IdempotencyCompleted
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Release drops a reservation so the client may retry.
func (r *IdempotencyRepository) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}
