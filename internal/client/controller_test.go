package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prudhvinik1/parlourpunch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []models.PunchSubmission
	err  error
	// seen is what the cache held at the moment of sending.
	seen  []EntryState
	cache *Cache
}

func (s *fakeSender) SendPunch(_ context.Context, submission models.PunchSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		state, _ := s.cache.Get(submission.EmployeeID)
		s.seen = append(s.seen, state)
	}
	s.sent = append(s.sent, submission)
	return s.err
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func seededCache(t *testing.T, store LocalStore) *Cache {
	t.Helper()
	backend := &fakeBackend{
		employees: []*models.Employee{employee("E1", "Ann")},
		logs:      []*models.AttendanceEvent{logEntry("1", "E1", true, t0)},
	}
	cache := newTestCache(backend, store)
	require.NoError(t, cache.Seed(context.Background()))
	return cache
}

func TestController_TogglePunch_Success(t *testing.T) {
	// ARRANGE: Ann is currently in
	cache := seededCache(t, NewMemoryLocalStore())
	sender := &fakeSender{cache: cache}
	notices := &noticeRecorder{}
	controller := NewController(cache, sender, notices)
	controller.now = func() time.Time { return t0.Add(time.Hour) }

	// ACT
	next, err := controller.TogglePunch(context.Background(), "E1", "Ann")

	// ASSERT: a punch out was sent after the optimistic write
	require.NoError(t, err)
	assert.False(t, next)

	require.Len(t, sender.sent, 1)
	sub := sender.sent[0]
	assert.Equal(t, "Punch Out", sub.Action)
	assert.Equal(t, "out", sub.Status)
	assert.Equal(t, "2024-01-01T10:00:00Z", sub.Timestamp)
	assert.False(t, sender.seen[0].CurrentlyIn, "cache updated before sending")

	state, _ := cache.Get("E1")
	assert.False(t, state.CurrentlyIn)

	require.Len(t, notices.notices, 1)
	assert.Equal(t, Notice{Kind: NoticeSuccess, Title: "Punch Out Successful", Description: "Ann has punched out"}, notices.notices[0])
}

func TestController_TogglePunch_RollsBackOnSendFailure(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLocalStore()
	cache := seededCache(t, store)
	before, _ := cache.Get("E1")

	sender := &fakeSender{cache: cache, err: ErrNotConnected}
	notices := &noticeRecorder{}
	controller := NewController(cache, sender, notices)

	next, err := controller.TogglePunch(ctx, "E1", "Ann")

	require.ErrorIs(t, err, ErrNotConnected)
	assert.True(t, next, "state stays as it was")
	assert.False(t, sender.seen[0].CurrentlyIn, "optimistic state was applied first")

	after, _ := cache.Get("E1")
	assert.Equal(t, before, after, "exact prior entry restored")

	persisted, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, persisted["E1"])

	require.Len(t, notices.notices, 1)
	assert.Equal(t, NoticeFailure, notices.notices[0].Kind)
	assert.Equal(t, "Punch Out Failed", notices.notices[0].Title)
	assert.Equal(t, "Failed to punch out", notices.notices[0].Description)
}

func TestController_TogglePunch_UnknownEmployeeRollbackRemovesEntry(t *testing.T) {
	cache := seededCache(t, NewMemoryLocalStore())
	controller := NewController(cache, &fakeSender{err: errors.New("write: broken pipe")}, &noticeRecorder{})

	_, err := controller.TogglePunch(context.Background(), "E9", "Nina")

	require.Error(t, err)
	_, ok := cache.Get("E9")
	assert.False(t, ok)
}

func TestController_TogglePunch_AlternatesActions(t *testing.T) {
	cache := seededCache(t, NewMemoryLocalStore())
	sender := &fakeSender{}
	controller := NewController(cache, sender, &noticeRecorder{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := controller.TogglePunch(ctx, "E1", "Ann")
		require.NoError(t, err)
	}

	require.Len(t, sender.sent, 3)
	assert.Equal(t, "Punch Out", sender.sent[0].Action)
	assert.Equal(t, "Punch In", sender.sent[1].Action)
	assert.Equal(t, "Punch Out", sender.sent[2].Action)
}
