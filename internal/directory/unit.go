package directory

import "regexp"

var unitPattern = regexp.MustCompile(`(?i)\b(?:unit|truck|tr)\s*#?\s*(\d{2,6})\b`)

// ExtractUnit pulls a unit number out of free text such as a group
// title ("Dispatch - Truck 4021") or a chat message. It returns the
// empty string when no unit is named.
func ExtractUnit(text string) string {
	match := unitPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1]
}
