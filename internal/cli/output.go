package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/atorrez/fleetwatch/internal/fleet"
	"github.com/atorrez/fleetwatch/internal/maintenance"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(s))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// OutputResult contains data to be output. Each command fills in the
// section it produced; the rest stay empty.
type OutputResult struct {
	CheckedAt time.Time                        `json:"checked_at"`
	Vehicles  []fleet.Vehicle                  `json:"vehicles,omitempty"`
	Vehicle   *fleet.Vehicle                   `json:"vehicle,omitempty"`
	Location  *fleet.GPSSample                 `json:"location,omitempty"`
	Requested []string                         `json:"requested,omitempty"`
	Odometers map[string]fleet.OdometerReading `json:"odometers,omitempty"`
	Records   []maintenance.Record             `json:"maintenance,omitempty"`
	Connected *bool                            `json:"connected,omitempty"`
	Count     int                              `json:"count,omitempty"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	switch {
	case result.Connected != nil:
		if *result.Connected {
			fmt.Fprintln(w, "Telemetry API: reachable")
		} else {
			fmt.Fprintln(w, "Telemetry API: UNREACHABLE")
		}

	case result.Location != nil:
		writeLocationText(w, result)

	case result.Vehicle != nil:
		writeVehicleText(w, result.Vehicle)

	case result.Odometers != nil:
		writeOdometersText(w, result)

	case result.Records != nil:
		writeRecordsText(w, result)

	default:
		writeVehiclesText(w, result, verbose)
	}
	return nil
}

func writeVehiclesText(w io.Writer, result *OutputResult, verbose bool) {
	if result.Count == 0 {
		fmt.Fprintln(w, "No vehicles found.")
		return
	}

	for i := range result.Vehicles {
		v := &result.Vehicles[i]
		line := v.DisplayName()
		if desc := v.Description(); desc != "" {
			line += " (" + desc + ")"
		}
		fmt.Fprintln(w, line)
		if verbose {
			fmt.Fprintf(w, "     ID: %s\n", v.ID)
			if v.VIN != "" {
				fmt.Fprintf(w, "     VIN: %s\n", v.VIN)
			}
			if v.LicensePlate != "" {
				fmt.Fprintf(w, "     Plate: %s\n", v.LicensePlate)
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d\n", result.Count)
}

func writeVehicleText(w io.Writer, v *fleet.Vehicle) {
	fmt.Fprintf(w, "Name: %s\n", v.DisplayName())
	if desc := v.Description(); desc != "" {
		fmt.Fprintf(w, "Description: %s\n", desc)
	}
	fmt.Fprintf(w, "ID: %s\n", v.ID)
	if v.VIN != "" {
		fmt.Fprintf(w, "VIN: %s\n", v.VIN)
	}
	if v.LicensePlate != "" {
		fmt.Fprintf(w, "Plate: %s\n", v.LicensePlate)
	}
	if v.Odometer != nil {
		fmt.Fprintf(w, "Odometer: %d mi", v.Odometer.Miles)
		if !v.Odometer.LastUpdated.IsZero() {
			fmt.Fprintf(w, " (as of %s)", v.Odometer.LastUpdated.Format(time.RFC3339))
		}
		fmt.Fprintln(w)
	}
	if v.Notes != "" {
		fmt.Fprintf(w, "Notes: %s\n", v.Notes)
	}
}

func writeLocationText(w io.Writer, result *OutputResult) {
	if result.Vehicle != nil {
		fmt.Fprintf(w, "Vehicle: %s\n", result.Vehicle.DisplayName())
	}
	gps := result.Location
	if gps.Address != "" {
		fmt.Fprintf(w, "Address: %s\n", gps.Address)
	}
	fmt.Fprintf(w, "Coordinates: %.5f, %.5f\n", gps.Latitude, gps.Longitude)
	if gps.SpeedMPH > 0 {
		fmt.Fprintf(w, "Speed: %.0f mph\n", gps.SpeedMPH)
	}
	if !gps.Time.IsZero() {
		fmt.Fprintf(w, "Fixed at: %s\n", gps.Time.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Maps: %s\n", gps.MapsURL())
}

func writeOdometersText(w io.Writer, result *OutputResult) {
	ids := result.Requested
	if len(ids) == 0 {
		for id := range result.Odometers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}

	for _, id := range ids {
		r, ok := result.Odometers[id]
		if !ok {
			fmt.Fprintf(w, "%s: no reading\n", id)
			continue
		}
		fmt.Fprintf(w, "%s: %d mi", id, r.Miles)
		if !r.LastUpdated.IsZero() {
			fmt.Fprintf(w, " (as of %s)", r.LastUpdated.Format(time.RFC3339))
		}
		fmt.Fprintln(w)
	}
}

func writeRecordsText(w io.Writer, result *OutputResult) {
	if len(result.Records) == 0 {
		fmt.Fprintln(w, "No maintenance records found.")
		return
	}

	for _, rec := range result.Records {
		fmt.Fprintf(w, "%s: %s", rec.Unit, rec.Service)
		if !rec.DueDate.IsZero() {
			fmt.Fprintf(w, " (due %s)", rec.DueDate.Format("2006-01-02"))
		}
		if rec.DueMiles > 0 {
			fmt.Fprintf(w, " (due at %d mi)", rec.DueMiles)
		}
		if rec.Notes != "" {
			fmt.Fprintf(w, " - %s", rec.Notes)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\nTotal: %d\n", result.Count)
}
