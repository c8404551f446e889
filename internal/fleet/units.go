package fleet

import "math"

// metersPerMile is the survey mile used by the fleet API's odometer values.
const metersPerMile = 1609.34

// MetersToMiles converts an odometer value in meters to whole miles,
// rounding to the nearest mile.
func MetersToMiles(meters float64) int64 {
	return int64(math.Round(meters / metersPerMile))
}
