package samsara

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/fleet"
)

type listResponse struct {
	Data       []fleet.Vehicle `json:"data"`
	Pagination pagination      `json:"pagination"`
}

type singleResponse struct {
	Data fleet.Vehicle `json:"data"`
}

type pagination struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

// GetVehicles returns the fleet's vehicle listing. With useCache set it
// serves the cached listing when still valid; otherwise it fetches all
// pages, stores any non-empty result, and returns it. A fetch that
// fails or comes back empty leaves the previous cache in place, so
// stale data beats no data.
func (c *Client) GetVehicles(ctx context.Context, useCache bool) []fleet.Vehicle {
	if useCache {
		if cached, ok := c.cachedVehicles(); ok {
			return cached
		}
	}

	vehicles := c.fetchAllVehicles(ctx)
	if len(vehicles) == 0 {
		c.log.Warn("vehicle fetch returned no data, keeping previous cache")
		return vehicles
	}

	c.storeCache(vehicles)
	c.log.Debug("vehicle cache refreshed", zap.Int("count", len(vehicles)))
	return vehicles
}

// fetchAllVehicles walks the paginated listing endpoint, following the
// continuation cursor until the API reports no further page. Any page
// failure stops the walk and returns the records gathered so far;
// partial results are not an error.
func (c *Client) fetchAllVehicles(ctx context.Context) []fleet.Vehicle {
	var all []fleet.Vehicle
	cursor := ""

	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageLimit))
		if c.vehicleType != "" {
			q.Set("vehicleTypes", c.vehicleType)
		}
		if cursor != "" {
			q.Set("after", cursor)
		}

		body, err := c.request(ctx, http.MethodGet, "/fleet/vehicles", q, nil, c.maxRetries)
		if err != nil {
			c.log.Warn("vehicle page fetch failed, returning accumulated pages",
				zap.Int("accumulated", len(all)), zap.Error(err))
			return all
		}

		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			c.log.Warn("vehicle page decode failed, returning accumulated pages",
				zap.Int("accumulated", len(all)), zap.Error(err))
			return all
		}

		all = append(all, page.Data...)
		if !page.Pagination.HasNextPage || page.Pagination.EndCursor == "" {
			return all
		}
		cursor = page.Pagination.EndCursor
	}
}

// GetVehicleByID finds one vehicle: first a scan of the valid cache,
// then a direct single-resource fetch, and as a last resort a full
// uncached refresh plus re-scan. A direct-fetch failure falls through
// to the refresh, so an upstream outage surfaces as a plain not-found.
func (c *Client) GetVehicleByID(ctx context.Context, id string) (fleet.Vehicle, bool) {
	if cached, ok := c.cachedVehicles(); ok {
		for _, v := range cached {
			if v.ID == id {
				return v, true
			}
		}
	}

	body, err := c.request(ctx, http.MethodGet, "/fleet/vehicles/"+url.PathEscape(id), nil, nil, c.maxRetries)
	if err == nil {
		var out singleResponse
		if jsonErr := json.Unmarshal(body, &out); jsonErr == nil && out.Data.ID != "" {
			return out.Data, true
		}
		c.log.Warn("single vehicle response not usable", zap.String("id", id))
	}

	for _, v := range c.GetVehicles(ctx, false) {
		if v.ID == id {
			return v, true
		}
	}

	c.log.Debug("vehicle not found", zap.String("id", id))
	return fleet.Vehicle{}, false
}

// SearchVehicles returns up to limit vehicles whose chosen field
// contains the query, case-insensitively, in cache order. The listing
// is always cache-sourced; an invalid cache is refreshed first.
func (c *Client) SearchVehicles(ctx context.Context, query string, field fleet.SearchField, limit int) []fleet.Vehicle {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var matches []fleet.Vehicle
	for _, v := range c.GetVehicles(ctx, true) {
		if v.MatchesField(query, field) {
			matches = append(matches, v)
			if len(matches) >= limit {
				break
			}
		}
	}
	return matches
}

// ClearCache unconditionally invalidates the vehicle cache; the next
// read fetches fresh data.
func (c *Client) ClearCache() {
	c.cacheMu.Lock()
	c.vehicles = nil
	c.cachedAt = time.Time{}
	c.cacheMu.Unlock()
	c.log.Debug("vehicle cache cleared")
}

// cachedVehicles returns the cached listing when the cache is valid:
// a timestamp exists, it is younger than the TTL, and the listing is
// non-empty.
func (c *Client) cachedVehicles() ([]fleet.Vehicle, bool) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if c.cachedAt.IsZero() || c.now().Sub(c.cachedAt) >= c.cacheTTL || len(c.vehicles) == 0 {
		return nil, false
	}
	return c.vehicles, true
}

// storeCache overwrites the cache wholesale. Concurrent refreshes are
// benign: the last completed fetch wins.
func (c *Client) storeCache(vehicles []fleet.Vehicle) {
	c.cacheMu.Lock()
	c.vehicles = vehicles
	c.cachedAt = c.now()
	c.cacheMu.Unlock()
}
