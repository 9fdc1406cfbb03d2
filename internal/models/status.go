package models

import "time"

// StatusUpdate is the compact per-employee message published on the
// employee_<id> topic. Status is true while the employee is punched in.
type StatusUpdate struct {
	EmployeeID string `json:"employeeId"`
	Status     bool   `json:"status"`
}

// EmployeeStatus is the derived latest status of one employee.
type EmployeeStatus struct {
	EmployeeID   string    `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	CurrentlyIn  bool      `json:"currentlyIn"`
	LastEventID  string    `json:"lastEventId"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

func StatusUpdateFor(event *AttendanceEvent) StatusUpdate {
	return StatusUpdate{EmployeeID: event.EmployeeID, Status: event.CurrentlyIn()}
}

func EmployeeStatusFor(event *AttendanceEvent) EmployeeStatus {
	return EmployeeStatus{
		EmployeeID:   event.EmployeeID,
		EmployeeName: event.EmployeeName,
		CurrentlyIn:  event.CurrentlyIn(),
		LastEventID:  event.ID,
		LastUpdated:  event.CreatedAt,
	}
}
