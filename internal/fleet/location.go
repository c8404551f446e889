package fleet

import (
	"fmt"
	"time"
)

// GPSSample is one position fix from the vehicle stats feed.
type GPSSample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Time      time.Time `json:"time"`
	Address   string    `json:"address,omitempty"`
	SpeedMPH  float64   `json:"speed_mph,omitempty"`
}

// Valid reports whether the sample carries a usable coordinate pair.
// A (0, 0) fix is treated as missing data, not a real position.
func (g *GPSSample) Valid() bool {
	if g == nil {
		return false
	}
	return g.Latitude != 0 || g.Longitude != 0
}

// MapsURL returns a Google Maps link for the sample's coordinates.
func (g *GPSSample) MapsURL() string {
	return fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", g.Latitude, g.Longitude)
}
