package alerts

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

func severityEmoji(s Severity) string {
	switch s {
	case SeverityCritical:
		return "🚨"
	case SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}

// TypeLabel renders a normalized alert type for humans:
// "engine_fault" becomes "Engine Fault".
func TypeLabel(eventType string) string {
	if eventType == "" {
		return "Alert"
	}
	words := strings.Split(eventType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// FormatEvent renders an alert as a Telegram HTML message. Payload
// fields came over the wire, so everything is escaped.
func FormatEvent(evt Event) string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("%s <b>%s</b>\n\n", severityEmoji(evt.Severity), html.EscapeString(TypeLabel(evt.Type))))

	if evt.VehicleName != "" {
		msg.WriteString(fmt.Sprintf("🚛 <b>%s</b>\n", html.EscapeString(evt.VehicleName)))
	}
	if evt.Description != "" {
		msg.WriteString(fmt.Sprintf("%s\n", html.EscapeString(evt.Description)))
	}
	if !evt.OccurredAt.IsZero() {
		msg.WriteString(fmt.Sprintf("🕒 %s\n", evt.OccurredAt.Format("Jan 02 15:04 MST")))
	}

	if len(evt.Details) > 0 {
		keys := make([]string, 0, len(evt.Details))
		for k := range evt.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		msg.WriteString("\n")
		for _, k := range keys {
			msg.WriteString(fmt.Sprintf("• %s: %s\n", html.EscapeString(k), html.EscapeString(evt.Details[k])))
		}
	}

	return msg.String()
}
