package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prudhvinik1/parlourpunch/internal/middleware"
	"github.com/prudhvinik1/parlourpunch/internal/models"
	"github.com/prudhvinik1/parlourpunch/internal/observability"
	"github.com/prudhvinik1/parlourpunch/internal/repositories"
)

// AttendanceService is the subset of services.AttendanceService the handlers use.
type AttendanceService interface {
	Record(ctx context.Context, source string, actor *models.Identity, submission models.PunchSubmission) (*models.AttendanceEvent, error)
	ListRecent(ctx context.Context, limit int) ([]*models.AttendanceEvent, error)
	CurrentStatus(ctx context.Context) (map[string]models.EmployeeStatus, error)
}

type AttendanceHandler struct {
	service AttendanceService
	now     func() time.Time
}

func NewAttendanceHandler(service AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: service, now: time.Now}
}

// ListLogs serves GET /api/attendance/logs?limit=N, newest first.
func (h *AttendanceHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	logs, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to retrieve attendance logs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, middleware.Response{
		Success: true,
		Message: "Attendance logs retrieved successfully",
		Data:    logs,
	})
}

// CreateLog serves POST /api/attendance/log. The timestamp defaults to the
// server clock when omitted.
func (h *AttendanceHandler) CreateLog(w http.ResponseWriter, r *http.Request) {
	var submission models.PunchSubmission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Unable to parse request body")
		return
	}
	if strings.TrimSpace(submission.Timestamp) == "" {
		submission.Timestamp = h.now().UTC().Format(time.RFC3339Nano)
	}

	actor, _ := middleware.IdentityFromContext(r.Context())
	event, err := h.service.Record(r.Context(), observability.SourceREST, actor, submission)
	if err != nil {
		var vErr *repositories.ValidationError
		if errors.As(err, &vErr) {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid attendance data: "+strings.Join(vErr.Fields, ", "))
			return
		}
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create attendance log")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, middleware.Response{
		Success: true,
		Message: "Attendance log created successfully",
		Data:    event,
	})
}

// CurrentStatus serves GET /api/attendance/status.
func (h *AttendanceHandler) CurrentStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.CurrentStatus(r.Context())
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to retrieve attendance status")
		return
	}

	out := make([]models.EmployeeStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })

	middleware.WriteJSON(w, http.StatusOK, middleware.Response{
		Success: true,
		Message: "Attendance status retrieved successfully",
		Data:    out,
	})
}
