package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prudhvinik1/parlourpunch/internal/models"
	"github.com/prudhvinik1/parlourpunch/internal/repositories"
	"github.com/prudhvinik1/parlourpunch/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router http.Handler
	auth   *services.AuthService
	repo   *repositories.MemoryAttendanceRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	repo := repositories.NewMemoryAttendanceRepository().WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	auth := services.NewAuthService("handler-secret", time.Hour)
	svc := services.NewAttendanceService(repo, nil, services.AttendanceServiceOptions{
		Logger: log.New(io.Discard, "", 0),
	})

	router := NewRouter(RouterDeps{
		Attendance: svc,
		Employees:  repositories.NewMemoryEmployeeRepository(repositories.DevEmployees()...),
		Verifier:   auth,
	})
	return &testEnv{router: router, auth: auth, repo: repo}
}

func (e *testEnv) token(t *testing.T, role models.Role) string {
	t.Helper()
	token, _, err := e.auth.IssueToken(models.Identity{UserID: "u-1", Email: "u1@parlour.test", Role: role})
	require.NoError(t, err)
	return token
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func do[T any](t *testing.T, e *testEnv, method, path, token string, body any) (int, envelope[T]) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var out envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestListLogs_NewestFirstWithLimit(t *testing.T) {
	// ARRANGE: three punches
	e := newTestEnv(t)
	admin := e.token(t, models.RoleAdmin)
	for _, id := range []string{"E1", "E2", "E3"} {
		code, _ := do[models.AttendanceEvent](t, e, http.MethodPost, "/api/attendance/log", admin,
			models.NewPunchSubmission(id, "Name "+id, true, time.Now()))
		require.Equal(t, http.StatusCreated, code)
	}

	// ACT
	code, body := do[[]models.AttendanceEvent](t, e, http.MethodGet, "/api/attendance/logs?limit=2", admin, nil)

	// ASSERT
	require.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "E3", body.Data[0].EmployeeID)
	assert.Equal(t, "E2", body.Data[1].EmployeeID)
}

func TestListLogs_InvalidLimitUsesDefault(t *testing.T) {
	e := newTestEnv(t)
	admin := e.token(t, models.RoleSuperAdmin)
	_, err := e.repo.Append(t.Context(), models.NewPunchSubmission("E1", "Ann", true, time.Now()))
	require.NoError(t, err)

	code, body := do[[]models.AttendanceEvent](t, e, http.MethodGet, "/api/attendance/logs?limit=abc", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body.Data, 1)
}

func TestCreateLog(t *testing.T) {
	e := newTestEnv(t)
	admin := e.token(t, models.RoleAdmin)

	t.Run("created with server timestamp", func(t *testing.T) {
		sub := models.NewPunchSubmission("E1", "Ann", true, time.Now())
		sub.Timestamp = ""

		code, body := do[models.AttendanceEvent](t, e, http.MethodPost, "/api/attendance/log", admin, sub)

		require.Equal(t, http.StatusCreated, code)
		assert.Equal(t, "Attendance log created successfully", body.Message)
		assert.NotEmpty(t, body.Data.ID)
		assert.False(t, body.Data.Timestamp.IsZero())
		assert.Equal(t, models.StatusIn, body.Data.Status)
	})

	t.Run("validation failure", func(t *testing.T) {
		sub := models.NewPunchSubmission("", "Ann", true, time.Now())
		sub.Action = "Clock In"

		code, body := do[any](t, e, http.MethodPost, "/api/attendance/log", admin, sub)

		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, body.Success)
		assert.Equal(t, "Invalid attendance data: action, employeeId", body.Message)
	})

	t.Run("storage failure", func(t *testing.T) {
		e.repo.SetUnavailable(io.ErrUnexpectedEOF)
		defer e.repo.SetUnavailable(nil)

		code, body := do[any](t, e, http.MethodPost, "/api/attendance/log", admin,
			models.NewPunchSubmission("E1", "Ann", false, time.Now()))

		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, "Failed to create attendance log", body.Message)
	})
}

func TestAttendanceRoutes_RequireRole(t *testing.T) {
	e := newTestEnv(t)

	code, _ := do[any](t, e, http.MethodGet, "/api/attendance/logs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = do[any](t, e, http.MethodPost, "/api/attendance/log", e.token(t, "Stylist"),
		models.NewPunchSubmission("E1", "Ann", true, time.Now()))
	assert.Equal(t, http.StatusForbidden, code)

	events, err := e.repo.ListRecent(t.Context(), 0)
	require.NoError(t, err)
	assert.Empty(t, events, "rejected caller must not write")
}

func TestCurrentStatus(t *testing.T) {
	e := newTestEnv(t)
	admin := e.token(t, models.RoleAdmin)
	for _, in := range []bool{true, false, true} {
		_, err := e.repo.Append(t.Context(), models.NewPunchSubmission("E2", "Bela", in, time.Now()))
		require.NoError(t, err)
	}
	_, err := e.repo.Append(t.Context(), models.NewPunchSubmission("E1", "Ann", false, time.Now()))
	require.NoError(t, err)

	code, body := do[[]models.EmployeeStatus](t, e, http.MethodGet, "/api/attendance/status", admin, nil)

	require.Equal(t, http.StatusOK, code)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "E1", body.Data[0].EmployeeID)
	assert.False(t, body.Data[0].CurrentlyIn)
	assert.True(t, body.Data[1].CurrentlyIn)
}

func TestEmployees(t *testing.T) {
	e := newTestEnv(t)
	admin := e.token(t, models.RoleAdmin)

	code, list := do[[]models.Employee](t, e, http.MethodGet, "/api/employees", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, list.Data, 4)

	code, one := do[models.Employee](t, e, http.MethodGet, "/api/employees/E3", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Chitra", one.Data.Name)

	code, _ = do[any](t, e, http.MethodGet, "/api/employees/E404", admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndNotFound(t *testing.T) {
	e := newTestEnv(t)

	code, body := do[any](t, e, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Parlour Management API is running", body.Message)

	code, body = do[any](t, e, http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "API endpoint not found", body.Message)
}
