// Package realtime implements the live attendance channel: WebSocket
// connections, topic subscriptions and broker-backed fan-out.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event names carried in the envelope.
const (
	EventAttendanceUpdate = "attendance_update"
	EventStatusUpdate     = "status_update"
	EventError            = "error"
	EventSubscribe        = "subscribe"
	EventUnsubscribe      = "unsubscribe"
)

// TopicAttendance is joined by every connection on connect.
const TopicAttendance = "attendance"

const employeeTopicPrefix = "employee_"

const (
	MessageInvalidData     = "Invalid attendance data"
	MessageProcessFailed   = "Failed to process attendance update"
	MessageUnknownEvent    = "Unknown event"
	MessageInvalidEnvelope = "Malformed message"
)

func EmployeeTopic(employeeID string) string {
	return employeeTopicPrefix + employeeID
}

func isEmployeeTopic(topic string) bool {
	return strings.HasPrefix(topic, employeeTopicPrefix)
}

// Envelope is the JSON frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type SubscribePayload struct {
	EmployeeID string `json:"employeeId"`
}

func EncodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s frame: %w", event, err)
	}
	return frame, nil
}
