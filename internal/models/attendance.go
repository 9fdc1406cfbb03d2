package models

import (
	"encoding/json"
	"time"
)

// TimestampLayout is how punch timestamps go out on the wire: UTC with
// millisecond precision, the form browser clients submit.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type PunchAction string

const (
	ActionPunchIn  PunchAction = "Punch In"
	ActionPunchOut PunchAction = "Punch Out"
)

type PunchStatus string

const (
	StatusIn  PunchStatus = "in"
	StatusOut PunchStatus = "out"
)

// AttendanceEvent is one persisted punch. Rows are never updated once written,
// so UpdatedAt always equals CreatedAt.
type AttendanceEvent struct {
	ID           string      `json:"id"`
	EmployeeID   string      `json:"employeeId"`
	EmployeeName string      `json:"employeeName"`
	Action       PunchAction `json:"action"`
	Status       PunchStatus `json:"status"`
	Timestamp    time.Time   `json:"timestamp"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// MarshalJSON writes Timestamp in TimestampLayout so a submitted
// millisecond timestamp is echoed back unchanged.
func (e AttendanceEvent) MarshalJSON() ([]byte, error) {
	type plain AttendanceEvent
	return json.Marshal(struct {
		plain
		Timestamp string `json:"timestamp"`
	}{
		plain:     plain(e),
		Timestamp: e.Timestamp.UTC().Format(TimestampLayout),
	})
}

// CurrentlyIn reports whether the event leaves the employee punched in.
func (e *AttendanceEvent) CurrentlyIn() bool {
	return e.Status == StatusIn
}

// PunchSubmission is the inbound payload shared by the REST and live paths.
type PunchSubmission struct {
	EmployeeID   string `json:"employeeId" validate:"required"`
	EmployeeName string `json:"employeeName" validate:"required"`
	Action       string `json:"action" validate:"required,oneof='Punch In' 'Punch Out'"`
	Status       string `json:"status" validate:"required,oneof=in out"`
	Timestamp    string `json:"timestamp" validate:"required"`
}

// NewPunchSubmission derives the action/status pair for the requested state.
func NewPunchSubmission(employeeID, employeeName string, punchIn bool, at time.Time) PunchSubmission {
	action, status := ActionPunchOut, StatusOut
	if punchIn {
		action, status = ActionPunchIn, StatusIn
	}
	return PunchSubmission{
		EmployeeID:   employeeID,
		EmployeeName: employeeName,
		Action:       string(action),
		Status:       string(status),
		Timestamp:    at.UTC().Format(time.RFC3339Nano),
	}
}
