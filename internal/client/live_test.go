package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prudhvinik1/parlourpunch/internal/handlers"
	"github.com/prudhvinik1/parlourpunch/internal/models"
	"github.com/prudhvinik1/parlourpunch/internal/observability"
	"github.com/prudhvinik1/parlourpunch/internal/realtime"
	"github.com/prudhvinik1/parlourpunch/internal/repositories"
	"github.com/prudhvinik1/parlourpunch/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	url     string
	hub     *realtime.Hub
	service *services.AttendanceService
	repo    *repositories.MemoryAttendanceRepository
	token   string

	// liveClosed turns live upgrades away with 503 while set.
	liveClosed atomic.Bool
	liveDials  atomic.Int32
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := repositories.NewMemoryAttendanceRepository()
	auth := services.NewAuthService("client-secret", time.Hour)
	svc := services.NewAttendanceService(repo, nil, services.AttendanceServiceOptions{Logger: quietLogger})
	hub := realtime.NewHub(realtime.NewLocalBroker(), svc, auth, realtime.HubOptions{Logger: quietLogger})
	svc.SetPublisher(hub)
	require.NoError(t, hub.Start(context.Background()))

	router := handlers.NewRouter(handlers.RouterDeps{
		Attendance: svc,
		Employees:  repositories.NewMemoryEmployeeRepository(repositories.DevEmployees()...),
		Verifier:   auth,
		Live:       hub,
	})
	srv := &testServer{hub: hub, service: svc, repo: repo}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			if srv.liveClosed.Load() {
				http.Error(w, "live channel closed", http.StatusServiceUnavailable)
				return
			}
			srv.liveDials.Add(1)
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	token, _, err := auth.IssueToken(models.Identity{UserID: "kiosk", Email: "kiosk@parlour.test", Role: models.RoleAdmin})
	require.NoError(t, err)

	srv.url = server.URL
	srv.token = token
	return srv
}

// countingBackend counts log fetches so reconnect reconciliation is visible.
type countingBackend struct {
	Backend
	logFetches atomic.Int32
}

func (b *countingBackend) ListRecentLogs(ctx context.Context, limit int) ([]*models.AttendanceEvent, error) {
	b.logFetches.Add(1)
	return b.Backend.ListRecentLogs(ctx, limit)
}

func startClient(t *testing.T, srv *testServer) (*Cache, *LiveConn, *countingBackend, *noticeRecorder) {
	t.Helper()
	backend := &countingBackend{Backend: NewAPIClient(srv.url, srv.token)}
	cache := newTestCache(backend, NewMemoryLocalStore())
	require.NoError(t, cache.Seed(context.Background()))

	notices := &noticeRecorder{}
	live := NewLiveConn(srv.url, srv.token, cache, LiveOptions{Logger: quietLogger, Notifier: notices})
	live.Start(context.Background())
	t.Cleanup(live.Stop)

	require.Eventually(t, live.Connected, 3*time.Second, 10*time.Millisecond)
	return cache, live, backend, notices
}

func TestLiveConn_TogglePunchRoundTrip(t *testing.T) {
	// ARRANGE
	srv := startTestServer(t)
	cache, live, _, notices := startClient(t, srv)
	controller := NewController(cache, live, notices)

	// ACT
	next, err := controller.TogglePunch(context.Background(), "E1", "Ann")
	require.NoError(t, err)
	require.True(t, next)

	// ASSERT: the confirmed event reaches the feed and the status broadcast
	// replaces the optimistic entry
	require.Eventually(t, func() bool {
		state, _ := cache.Get("E1")
		return len(cache.Feed()) == 1 && state.LastUpdated.Equal(t0.Add(time.Hour))
	}, 3*time.Second, 10*time.Millisecond)

	state, _ := cache.Get("E1")
	assert.True(t, state.CurrentlyIn)
	assert.Equal(t, "E1", cache.Feed()[0].EmployeeID)

	events, err := srv.repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ActionPunchIn, events[0].Action)
}

func TestLiveConn_AppliesOtherClientsPunches(t *testing.T) {
	srv := startTestServer(t)
	cache, live, _, notices := startClient(t, srv)

	// An error reply proves the server has handled every earlier frame,
	// the subscriptions included.
	frame, err := realtime.EncodeFrame("sync", map[string]string{})
	require.NoError(t, err)
	require.NoError(t, live.write(frame))
	require.Eventually(t, func() bool {
		notices.mu.Lock()
		defer notices.mu.Unlock()
		return len(notices.notices) == 1
	}, 3*time.Second, 10*time.Millisecond)

	_, err = srv.service.Record(context.Background(), observability.SourceREST, nil,
		models.NewPunchSubmission("E3", "Chitra", true, time.Now()))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		state, _ := cache.Get("E3")
		return state.CurrentlyIn
	}, 3*time.Second, 10*time.Millisecond)
}

func TestLiveConn_ServerErrorIsNotified(t *testing.T) {
	srv := startTestServer(t)
	_, live, _, notices := startClient(t, srv)

	bad := models.NewPunchSubmission("E1", "Ann", true, time.Now())
	bad.Action = "Punch Out"
	require.NoError(t, live.SendPunch(context.Background(), bad))

	require.Eventually(t, func() bool {
		notices.mu.Lock()
		defer notices.mu.Unlock()
		return len(notices.notices) == 1
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, NoticeFailure, notices.notices[0].Kind)
	assert.Equal(t, realtime.MessageInvalidData, notices.notices[0].Description)
}

func TestLiveConn_ReconnectsAndReconciles(t *testing.T) {
	srv := startTestServer(t)
	cache, live, backend, _ := startClient(t, srv)
	fetchesBefore := backend.logFetches.Load()
	require.Equal(t, int32(1), srv.liveDials.Load())

	// Cut the client off and keep it off until a punch lands that it
	// never sees live.
	srv.liveClosed.Store(true)
	srv.hub.Close()
	require.Eventually(t, func() bool { return !live.Connected() }, 3*time.Second, 10*time.Millisecond)
	_, err := srv.repo.Append(context.Background(), models.NewPunchSubmission("E2", "Bela", true, time.Now()))
	require.NoError(t, err)
	state, _ := cache.Get("E2")
	require.False(t, state.CurrentlyIn)

	srv.liveClosed.Store(false)
	require.Eventually(t, func() bool {
		return live.Connected() && srv.liveDials.Load() == 2
	}, 10*time.Second, 20*time.Millisecond)

	// Connected is only reported once the reconnect reconcile has run.
	assert.Greater(t, backend.logFetches.Load(), fetchesBefore)
	state, _ = cache.Get("E2")
	assert.True(t, state.CurrentlyIn)
}

func TestLiveConn_RejectedCredentialsStopRetrying(t *testing.T) {
	srv := startTestServer(t)
	cache := newTestCache(&fakeBackend{}, NewMemoryLocalStore())
	live := NewLiveConn(srv.url, "not-a-token", cache, LiveOptions{Logger: quietLogger})

	live.Start(context.Background())
	select {
	case <-live.done:
	case <-time.After(3 * time.Second):
		t.Fatal("live connection kept retrying with rejected credentials")
	}
	assert.False(t, live.Connected())
	live.Stop()
}

func TestLiveConn_SendPunchWhileDisconnected(t *testing.T) {
	cache := newTestCache(&fakeBackend{}, NewMemoryLocalStore())
	live := NewLiveConn("http://127.0.0.1:1", "token", cache, LiveOptions{Logger: quietLogger})

	err := live.SendPunch(context.Background(), models.NewPunchSubmission("E1", "Ann", true, time.Now()))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestLiveURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:5000/ws", LiveURL("http://localhost:5000"))
	assert.Equal(t, "wss://parlour.example/ws", LiveURL("https://parlour.example/"))
}
