package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/prudhvinik1/parlourpunch/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(id, employeeID string, in bool, createdAt time.Time) *models.AttendanceEvent {
	sub := models.NewPunchSubmission(employeeID, "Name "+employeeID, in, createdAt)
	return &models.AttendanceEvent{
		ID:           id,
		EmployeeID:   employeeID,
		EmployeeName: sub.EmployeeName,
		Action:       models.PunchAction(sub.Action),
		Status:       models.PunchStatus(sub.Status),
		Timestamp:    createdAt,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

func TestLatestPerEmployee_PicksNewestReceiptRegardlessOfPosition(t *testing.T) {
	// ARRANGE: the older E1 event comes first in the page
	events := []*models.AttendanceEvent{
		event("a", "E1", true, testEpoch),
		event("b", "E2", true, testEpoch.Add(time.Minute)),
		event("c", "E1", false, testEpoch.Add(2*time.Minute)),
	}

	// ACT
	latest := LatestPerEmployee(events)

	// ASSERT
	require.Len(t, latest, 2)
	assert.False(t, latest["E1"].CurrentlyIn)
	assert.Equal(t, "c", latest["E1"].LastEventID)
	assert.True(t, latest["E2"].CurrentlyIn)
}

func TestLatestPerEmployee_TieKeepsFirstSeen(t *testing.T) {
	events := []*models.AttendanceEvent{
		event("newer-in-page", "E1", true, testEpoch),
		event("older-in-page", "E1", false, testEpoch),
	}

	latest := LatestPerEmployee(events)
	assert.Equal(t, "newer-in-page", latest["E1"].LastEventID)
}

// getTestRedis connects to a local Redis, skipping when none is running.
func getTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not available: %v", err)
	}

	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestRedisStatusRepository_SetIfNewer(t *testing.T) {
	repo := NewRedisStatusRepository(getTestRedis(t))
	ctx := context.Background()

	newer := models.EmployeeStatusFor(event("b", "E1", false, testEpoch.Add(time.Minute)))
	older := models.EmployeeStatusFor(event("a", "E1", true, testEpoch))

	require.NoError(t, repo.SetIfNewer(ctx, newer))
	require.NoError(t, repo.SetIfNewer(ctx, older))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Contains(t, all, "E1")
	assert.Equal(t, "b", all["E1"].LastEventID, "older event must not overwrite")
	assert.False(t, all["E1"].CurrentlyIn)
}

func TestRedisStatusRepository_Rebuild(t *testing.T) {
	repo := NewRedisStatusRepository(getTestRedis(t))
	ctx := context.Background()

	stale := models.EmployeeStatusFor(event("x", "E9", true, testEpoch.Add(time.Hour)))
	require.NoError(t, repo.SetIfNewer(ctx, stale))

	err := repo.Rebuild(ctx, []*models.AttendanceEvent{
		event("c", "E1", false, testEpoch.Add(2*time.Minute)),
		event("a", "E1", true, testEpoch),
		event("b", "E2", true, testEpoch.Add(time.Minute)),
	})
	require.NoError(t, err)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.NotContains(t, all, "E9")
	assert.Equal(t, "c", all["E1"].LastEventID)
	assert.True(t, all["E2"].CurrentlyIn)
}
