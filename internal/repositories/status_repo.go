package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prudhvinik1/parlourpunch/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	statusKeyPrefix = "attendance:status:"
	statusIndexKey  = "attendance:status:ids"
)

// RedisStatusRepository materializes the latest status per employee. Entries
// carry the receipt time of the event they came from so an older event can
// never overwrite a newer one.
type RedisStatusRepository struct {
	client *redis.Client
}

func NewRedisStatusRepository(client *redis.Client) *RedisStatusRepository {
	return &RedisStatusRepository{client: client}
}

func (r *RedisStatusRepository) SetIfNewer(ctx context.Context, status models.EmployeeStatus) error {
	key := statusKey(status.EmployeeID)

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var existing models.EmployeeStatus
			if jsonErr := json.Unmarshal([]byte(current), &existing); jsonErr == nil &&
				existing.LastUpdated.After(status.LastUpdated) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, statusIndexKey, status.EmployeeID)
			return nil
		})
		return err
	}

	// Another writer touching the key aborts the transaction; retry a few times.
	for i := 0; i < 3; i++ {
		err = r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	return nil
}

// GetAll returns the latest status of every employee seen so far.
func (r *RedisStatusRepository) GetAll(ctx context.Context) (map[string]models.EmployeeStatus, error) {
	ids, err := r.client.SMembers(ctx, statusIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get status index: %w", err)
	}

	statuses := make(map[string]models.EmployeeStatus, len(ids))
	if len(ids) == 0 {
		return statuses, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = statusKey(id)
	}

	// MGet retrieves every entry in one round trip
	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk status: %w", err)
	}

	for _, result := range results {
		data, ok := result.(string)
		if !ok {
			continue
		}
		var status models.EmployeeStatus
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			continue
		}
		statuses[status.EmployeeID] = status
	}

	return statuses, nil
}

// Rebuild discards the view and recomputes it from a log page.
func (r *RedisStatusRepository) Rebuild(ctx context.Context, events []*models.AttendanceEvent) error {
	ids, err := r.client.SMembers(ctx, statusIndexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get status index: %w", err)
	}

	if len(ids) > 0 {
		keys := make([]string, 0, len(ids)+1)
		for _, id := range ids {
			keys = append(keys, statusKey(id))
		}
		keys = append(keys, statusIndexKey)
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to clear status view: %w", err)
		}
	}

	for _, status := range LatestPerEmployee(events) {
		if err := r.SetIfNewer(ctx, status); err != nil {
			return err
		}
	}
	return nil
}

// LatestPerEmployee derives the newest status per employee from a log page,
// choosing by receipt time rather than position in the slice.
func LatestPerEmployee(events []*models.AttendanceEvent) map[string]models.EmployeeStatus {
	latest := make(map[string]models.EmployeeStatus)
	for _, event := range events {
		current, ok := latest[event.EmployeeID]
		if ok && !event.CreatedAt.After(current.LastUpdated) {
			continue
		}
		latest[event.EmployeeID] = models.EmployeeStatusFor(event)
	}
	return latest
}

// Helper: build Redis key for an employee status
func statusKey(employeeID string) string {
	return statusKeyPrefix + employeeID
}
