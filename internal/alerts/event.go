package alerts

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Severity ranks how urgently an alert should be treated.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

// String returns the severity label used in logs and messages.
func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "CRITICAL"
	case SeverityWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

// Event is a single fleet alert extracted from a webhook delivery.
type Event struct {
	EventID     string
	Type        string
	Severity    Severity
	VehicleID   string
	VehicleName string
	Description string
	OccurredAt  time.Time
	Details     map[string]string
}

// severityByType classifies known alert types. Types not listed here
// default to informational.
var severityByType = map[string]Severity{
	"engine_fault":      SeverityCritical,
	"panic_button":      SeverityCritical,
	"crash":             SeverityCritical,
	"severe_speeding":   SeverityCritical,
	"harsh_event":       SeverityWarning,
	"speeding":          SeverityWarning,
	"low_fuel":          SeverityWarning,
	"gateway_unplugged": SeverityWarning,
	"vehicle_fault":     SeverityWarning,
	"geofence_entry":    SeverityInfo,
	"geofence_exit":     SeverityInfo,
	"vehicle_idle":      SeverityInfo,
}

func severityFor(eventType string) Severity {
	if s, ok := severityByType[eventType]; ok {
		return s
	}
	return SeverityInfo
}

var typeSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeType folds an alert type label into the canonical key used
// by the route table and severity map: lowercase, word runs joined by
// single underscores.
func normalizeType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = typeSeparators.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ParseEvent decodes a Samsara alert webhook payload. The event id is
// required; everything else degrades to empty values so a sparse
// payload still produces a routable event.
func ParseEvent(raw []byte) (Event, error) {
	if !gjson.ValidBytes(raw) {
		return Event{}, errors.New("alerts: payload is not valid JSON")
	}
	body := gjson.ParseBytes(raw)

	id := body.Get("eventId").String()
	if id == "" {
		return Event{}, errors.New("alerts: payload has no eventId")
	}

	typ := body.Get("event.alertConditionId").String()
	if typ == "" {
		typ = body.Get("eventType").String()
	}

	evt := Event{
		EventID: id,
		Type:    normalizeType(typ),
		Details: map[string]string{},
	}
	evt.Severity = severityFor(evt.Type)

	if ts, err := time.Parse(time.RFC3339, body.Get("eventTime").String()); err == nil {
		evt.OccurredAt = ts
	}

	evt.VehicleID = body.Get("event.vehicle.id").String()
	evt.VehicleName = body.Get("event.vehicle.name").String()

	evt.Description = body.Get("event.details").String()
	if evt.Description == "" {
		evt.Description = body.Get("event.alertConditionDescription").String()
	}
	if evt.Description == "" {
		evt.Description = body.Get("event.summary").String()
	}

	body.Get("event").ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "vehicle", "details", "summary", "alertConditionId", "alertConditionDescription":
			return true
		}
		if value.IsObject() || value.IsArray() {
			return true
		}
		evt.Details[key.String()] = value.String()
		return true
	})

	return evt, nil
}
