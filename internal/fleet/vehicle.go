package fleet

import (
	"fmt"
	"strings"
	"time"
)

// Vehicle represents one vehicle from the fleet API. The base fields come
// from the vehicle listing; Odometer and Location are optional enrichments
// merged in by stats lookups and stay nil when no telemetry was available.
type Vehicle struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	VIN          string            `json:"vin,omitempty"`
	LicensePlate string            `json:"licensePlate,omitempty"`
	Make         string            `json:"make,omitempty"`
	Model        string            `json:"model,omitempty"`
	Year         string            `json:"year,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	ExternalIDs  map[string]string `json:"externalIds,omitempty"`

	Odometer *OdometerReading `json:"odometer,omitempty"`
	Location *GPSSample       `json:"location,omitempty"`
}

// DisplayName returns the best human-readable handle for the vehicle:
// name, then VIN, then the raw ID.
func (v *Vehicle) DisplayName() string {
	if v.Name != "" {
		return v.Name
	}
	if v.VIN != "" {
		return v.VIN
	}
	return v.ID
}

// Description returns a one-line make/model/year summary, skipping blanks.
func (v *Vehicle) Description() string {
	var parts []string
	if v.Year != "" {
		parts = append(parts, v.Year)
	}
	if v.Make != "" {
		parts = append(parts, v.Make)
	}
	if v.Model != "" {
		parts = append(parts, v.Model)
	}
	return strings.Join(parts, " ")
}

// SearchField selects which vehicle attribute a search query runs against.
type SearchField string

const (
	FieldAll   SearchField = "all"
	FieldName  SearchField = "name"
	FieldVIN   SearchField = "vin"
	FieldPlate SearchField = "plate"
)

// ParseSearchField maps user input to a SearchField. Empty input means all.
func ParseSearchField(s string) (SearchField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FieldAll, nil
	case "name":
		return FieldName, nil
	case "vin":
		return FieldVIN, nil
	case "plate", "license", "licenseplate":
		return FieldPlate, nil
	default:
		return FieldAll, fmt.Errorf("unknown search field %q (want name, vin, plate or all)", s)
	}
}

// MatchesField reports whether the vehicle matches a case-insensitive
// substring query against the chosen field.
func (v *Vehicle) MatchesField(query string, field SearchField) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}

	contains := func(s string) bool {
		return s != "" && strings.Contains(strings.ToLower(s), q)
	}

	switch field {
	case FieldName:
		return contains(v.Name)
	case FieldVIN:
		return contains(v.VIN)
	case FieldPlate:
		return contains(v.LicensePlate)
	default:
		return contains(v.Name) || contains(v.VIN) || contains(v.LicensePlate)
	}
}

// OdometerReading is the latest odometer sample for a vehicle.
type OdometerReading struct {
	VIN         string    `json:"vin,omitempty"`
	Miles       int64     `json:"miles"`
	LastUpdated time.Time `json:"last_updated"`
}
