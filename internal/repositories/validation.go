package repositories

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prudhvinik1/parlourpunch/internal/models"
)

const (
	DefaultListLimit = 50
	// MaxListLimit is the service's ceiling when none is configured.
	// Repositories honour whatever positive limit they are handed.
	MaxListLimit = 200
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validatedPunch is a submission that passed validation, with its timestamp parsed.
type validatedPunch struct {
	models.PunchSubmission
	at time.Time
}

// validateSubmission checks presence, enum membership, timestamp format and
// the action/status pairing. Whitespace-only values count as missing.
func validateSubmission(sub models.PunchSubmission) (*validatedPunch, error) {
	sub.EmployeeID = strings.TrimSpace(sub.EmployeeID)
	sub.EmployeeName = strings.TrimSpace(sub.EmployeeName)
	sub.Action = strings.TrimSpace(sub.Action)
	sub.Status = strings.TrimSpace(sub.Status)
	sub.Timestamp = strings.TrimSpace(sub.Timestamp)

	bad := map[string]struct{}{}
	if err := validate.Struct(sub); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, &ValidationError{Fields: []string{"payload"}}
		}
		for _, fe := range fieldErrs {
			bad[jsonFieldName(fe.Field())] = struct{}{}
		}
	}

	var at time.Time
	if _, missing := bad["timestamp"]; !missing {
		parsed, err := parseTimestamp(sub.Timestamp)
		if err != nil {
			bad["timestamp"] = struct{}{}
		}
		at = parsed
	}

	if len(bad) == 0 && !pairingMatches(sub.Action, sub.Status) {
		bad["action"] = struct{}{}
		bad["status"] = struct{}{}
	}

	if len(bad) > 0 {
		fields := make([]string, 0, len(bad))
		for f := range bad {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		return nil, &ValidationError{Fields: fields}
	}

	return &validatedPunch{PunchSubmission: sub, at: at}, nil
}

// Zoneless forms are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(raw string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// Punch In must be recorded as "in" and Punch Out as "out".
func pairingMatches(action, status string) bool {
	switch models.PunchAction(action) {
	case models.ActionPunchIn:
		return models.PunchStatus(status) == models.StatusIn
	case models.ActionPunchOut:
		return models.PunchStatus(status) == models.StatusOut
	}
	return false
}

func jsonFieldName(structField string) string {
	switch structField {
	case "EmployeeID":
		return "employeeId"
	case "EmployeeName":
		return "employeeName"
	case "Action":
		return "action"
	case "Status":
		return "status"
	case "Timestamp":
		return "timestamp"
	}
	return strings.ToLower(structField)
}

// NormalizeLimit applies the default page size to a non-positive limit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
