package bot

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/atorrez/fleetwatch/internal/fleet"
	"github.com/atorrez/fleetwatch/internal/maintenance"
	"github.com/atorrez/fleetwatch/internal/samsara"
)

const timeLayout = "Jan 02 15:04 MST"

const welcomeText = `👋 <b>Fleetwatch</b> keeps an eye on the trucks so you don't have to.

Ask me /where a truck is, check its /odometer, or pull the /maintenance schedule. Send /help for the full list.`

const helpText = `<b>Fleet</b>
/vehicles - browse the fleet list
/find &lt;query&gt; - search by name, VIN or plate (prefix with vin: or plate: to narrow)
/truck &lt;unit&gt; - full details for one truck
/where &lt;unit&gt; - last known location with a maps link
/odometer [units...] - mileage readings, whole fleet if no unit given

<b>Shop</b>
/maintenance [unit] - service items due soon, or everything for one unit
/docs &lt;unit&gt; - registration, insurance and permit files

<b>Chat</b>
/link &lt;unit&gt; - tie this group chat to a unit
/unlink - remove the tie

<b>Housekeeping</b>
/refresh - drop the vehicle cache and re-pull
/status - gateway and cache health

In a group chat linked to a unit, /where, /truck, /odometer, /maintenance and /docs default to that unit.`

// FormatVehicleCard renders the detail message for one vehicle.
func FormatVehicleCard(v fleet.Vehicle) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("🚛 <b>%s</b>\n", esc(v.DisplayName())))
	if desc := v.Description(); desc != "" {
		msg.WriteString(esc(desc))
		msg.WriteString("\n")
	}
	msg.WriteString("\n")

	if v.VIN != "" {
		msg.WriteString(fmt.Sprintf("🔢 VIN: <code>%s</code>\n", esc(v.VIN)))
	}
	if v.LicensePlate != "" {
		msg.WriteString(fmt.Sprintf("🏷 Plate: %s\n", esc(v.LicensePlate)))
	}
	if v.Odometer != nil {
		msg.WriteString(fmt.Sprintf("🛣 Odometer: %s mi", withCommas(v.Odometer.Miles)))
		if !v.Odometer.LastUpdated.IsZero() {
			msg.WriteString(fmt.Sprintf(" (as of %s)", v.Odometer.LastUpdated.Format(timeLayout)))
		}
		msg.WriteString("\n")
	}
	if v.Location != nil && v.Location.Valid() {
		msg.WriteString(fmt.Sprintf("📍 <a href=\"%s\">%.5f, %.5f</a>\n",
			v.Location.MapsURL(), v.Location.Latitude, v.Location.Longitude))
	}
	if v.Notes != "" {
		msg.WriteString(fmt.Sprintf("\n📝 %s\n", esc(v.Notes)))
	}

	return strings.TrimRight(msg.String(), "\n")
}

// FormatLocation renders a GPS fix with a link to open it in a map.
func FormatLocation(v fleet.Vehicle, gps fleet.GPSSample) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("📍 <b>%s</b>\n\n", esc(v.DisplayName())))
	if gps.Address != "" {
		msg.WriteString(esc(gps.Address))
		msg.WriteString("\n")
	}
	msg.WriteString(fmt.Sprintf("🧭 %.5f, %.5f\n", gps.Latitude, gps.Longitude))
	if gps.SpeedMPH > 0 {
		msg.WriteString(fmt.Sprintf("💨 %.0f mph\n", gps.SpeedMPH))
	}
	if !gps.Time.IsZero() {
		msg.WriteString(fmt.Sprintf("🕒 %s\n", gps.Time.Format(timeLayout)))
	}
	msg.WriteString(fmt.Sprintf("\n<a href=\"%s\">Open in Maps</a>", gps.MapsURL()))

	return msg.String()
}

// FormatSearchResults renders the /find hit list.
func FormatSearchResults(query string, vehicles []fleet.Vehicle) string {
	var msg strings.Builder

	word := "matches"
	if len(vehicles) == 1 {
		word = "match"
	}
	msg.WriteString(fmt.Sprintf("🔍 <b>%d %s for \"%s\"</b>\n\n", len(vehicles), word, esc(query)))

	for _, v := range vehicles {
		msg.WriteString(fmt.Sprintf("• <b>%s</b>", esc(v.DisplayName())))
		if desc := v.Description(); desc != "" {
			msg.WriteString(fmt.Sprintf(" · %s", esc(desc)))
		}
		if v.LicensePlate != "" {
			msg.WriteString(fmt.Sprintf(" [%s]", esc(v.LicensePlate)))
		}
		msg.WriteString("\n")
	}

	msg.WriteString("\nTap a button below for details.")
	return msg.String()
}

// FormatOdometerDigest renders mileage readings for a set of vehicles,
// sorted by name so the list reads like the fleet board.
func FormatOdometerDigest(vehicles []fleet.Vehicle, readings map[string]fleet.OdometerReading) string {
	sorted := append([]fleet.Vehicle(nil), vehicles...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].DisplayName() < sorted[j].DisplayName()
	})

	var msg strings.Builder
	msg.WriteString("🛣 <b>Odometer readings</b>\n\n")
	for _, v := range sorted {
		r, ok := readings[v.ID]
		if !ok {
			msg.WriteString(fmt.Sprintf("• %s: no reading\n", esc(v.DisplayName())))
			continue
		}
		msg.WriteString(fmt.Sprintf("• %s: <b>%s mi</b>", esc(v.DisplayName()), withCommas(r.Miles)))
		if !r.LastUpdated.IsZero() {
			msg.WriteString(fmt.Sprintf(" (%s)", r.LastUpdated.Format(timeLayout)))
		}
		msg.WriteString("\n")
	}
	return strings.TrimRight(msg.String(), "\n")
}

// FormatMaintenance renders service records grouped by unit.
func FormatMaintenance(scope string, records []maintenance.Record) string {
	if len(records) == 0 {
		return fmt.Sprintf("🔧 Nothing on the maintenance schedule (%s).", esc(scope))
	}

	byUnit := make(map[string][]maintenance.Record)
	for _, rec := range records {
		byUnit[rec.Unit] = append(byUnit[rec.Unit], rec)
	}
	units := make([]string, 0, len(byUnit))
	for unit := range byUnit {
		units = append(units, unit)
	}
	sort.Strings(units)

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("🔧 <b>Maintenance: %s</b>\n\n", esc(scope)))
	for _, unit := range units {
		msg.WriteString(fmt.Sprintf("🚛 <b>Unit %s</b>\n", esc(unit)))
		for _, rec := range byUnit[unit] {
			msg.WriteString(fmt.Sprintf("• %s", esc(rec.Service)))
			switch {
			case !rec.DueDate.IsZero():
				msg.WriteString(fmt.Sprintf(" (due %s)", rec.DueDate.Format("Jan 02")))
			case rec.DueMiles > 0:
				msg.WriteString(fmt.Sprintf(" (due at %s mi)", withCommas(rec.DueMiles)))
			}
			if rec.Notes != "" {
				msg.WriteString(fmt.Sprintf(" · %s", esc(rec.Notes)))
			}
			msg.WriteString("\n")
		}
		msg.WriteString("\n")
	}
	return strings.TrimRight(msg.String(), "\n")
}

// FormatStatus renders the /status health summary.
func FormatStatus(st samsara.Status, connected bool, uptime time.Duration) string {
	check := func(ok bool) string {
		if ok {
			return "✅"
		}
		return "❌"
	}

	var msg strings.Builder
	msg.WriteString("⚙️ <b>Fleetwatch status</b>\n\n")
	msg.WriteString(fmt.Sprintf("%s Telemetry API reachable\n", check(connected)))
	msg.WriteString(fmt.Sprintf("%s Shared session (%d active scope%s)\n",
		check(st.SessionActive), st.ActiveScopes, pluralize(st.ActiveScopes)))
	msg.WriteString(fmt.Sprintf("%s Background refresh\n", check(st.RefreshRunning)))
	if st.CachedVehicles > 0 {
		msg.WriteString(fmt.Sprintf("🗃 %d vehicle%s cached, %s old\n",
			st.CachedVehicles, pluralize(st.CachedVehicles), st.CacheAge.Round(time.Second)))
	} else {
		msg.WriteString("🗃 Vehicle cache empty\n")
	}
	msg.WriteString(fmt.Sprintf("⏱ Up %s", uptime.Round(time.Second)))
	return msg.String()
}

func esc(s string) string {
	return html.EscapeString(s)
}

func pluralize(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// withCommas renders 121408 as "121,408".
func withCommas(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if i > 0 && (len(s)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteByte(s[i])
	}
	if neg {
		return "-" + out.String()
	}
	return out.String()
}
