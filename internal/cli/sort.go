package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atorrez/fleetwatch/internal/fleet"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByName SortOrder = "name"
	SortByID   SortOrder = "id"
)

func parseSort(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case SortByName, "":
		return SortByName, nil
	case SortByID:
		return SortByID, nil
	default:
		return "", fmt.Errorf("invalid sort: %s (must be 'name' or 'id')", s)
	}
}

// sortVehicles sorts a slice of vehicles based on the specified sort order
func sortVehicles(vehicles []fleet.Vehicle, sortOrder SortOrder) {
	switch sortOrder {
	case SortByID:
		sort.Slice(vehicles, func(i, j int) bool {
			if vehicles[i].ID != vehicles[j].ID {
				return vehicles[i].ID < vehicles[j].ID
			}
			return compareByName(&vehicles[i], &vehicles[j])
		})
	default:
		sort.Slice(vehicles, func(i, j int) bool {
			return compareByName(&vehicles[i], &vehicles[j])
		})
	}
}

// compareByName compares two vehicles by display name, case-insensitively.
// Returns true if vehicle a should come before vehicle b.
func compareByName(a, b *fleet.Vehicle) bool {
	an := strings.ToLower(a.DisplayName())
	bn := strings.ToLower(b.DisplayName())
	if an != bn {
		return an < bn
	}
	// Equal names fall back to ID for a stable order.
	return a.ID < b.ID
}
