package samsara

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/fleet"
)

const (
	statTypeGPS      = "gps"
	statTypeOdometer = "obdOdometerMeters"

	// odometerBatchSize is the API's cap on vehicle ids per stats call.
	odometerBatchSize = 50
)

// vinPath pulls the VIN out of the nested external-identifier map on a
// stats-feed record. The key contains a literal dot, hence the escape.
const vinPath = `externalIds.samsara\.vin`

// GetVehicleLocation returns the most recent GPS sample for one
// vehicle, or not-found when the feed has no usable coordinate pair.
func (c *Client) GetVehicleLocation(ctx context.Context, id string) (fleet.GPSSample, bool) {
	body, err := c.statsFeed(ctx, statTypeGPS, []string{id})
	if err != nil {
		return fleet.GPSSample{}, false
	}

	for _, rec := range gjson.GetBytes(body, "data").Array() {
		if rec.Get("id").String() != id {
			continue
		}
		sample, ok := latestSample(rec.Get(statTypeGPS))
		if !ok {
			break
		}
		loc := fleet.GPSSample{
			Latitude:  sample.Get("latitude").Float(),
			Longitude: sample.Get("longitude").Float(),
			Address:   sample.Get("reverseGeo.formattedLocation").String(),
			SpeedMPH:  sample.Get("speedMilesPerHour").Float(),
		}
		if t, err := time.Parse(time.RFC3339, sample.Get("time").String()); err == nil {
			loc.Time = t
		}
		if loc.Valid() {
			return loc, true
		}
		break
	}

	c.log.Debug("no usable GPS sample", zap.String("id", id))
	return fleet.GPSSample{}, false
}

// GetOdometerStats fetches the latest odometer reading for each id,
// batching at most 50 ids per stats call. Vehicles with no parseable
// series are omitted from the result, and a failed batch only drops
// that batch's vehicles.
func (c *Client) GetOdometerStats(ctx context.Context, ids []string) map[string]fleet.OdometerReading {
	readings := make(map[string]fleet.OdometerReading, len(ids))

	for start := 0; start < len(ids); start += odometerBatchSize {
		batch := ids[start:min(start+odometerBatchSize, len(ids))]

		body, err := c.statsFeed(ctx, statTypeOdometer, batch)
		if err != nil {
			c.log.Warn("odometer batch failed", zap.Int("batch_size", len(batch)), zap.Error(err))
			continue
		}

		for _, rec := range gjson.GetBytes(body, "data").Array() {
			id := rec.Get("id").String()
			sample, ok := latestSample(rec.Get(statTypeOdometer))
			if !ok {
				continue
			}
			t, err := time.Parse(time.RFC3339, sample.Get("time").String())
			if err != nil {
				continue
			}
			readings[id] = fleet.OdometerReading{
				VIN:         rec.Get(vinPath).String(),
				Miles:       fleet.MetersToMiles(sample.Get("value").Float()),
				LastUpdated: t,
			}
		}
	}

	return readings
}

// GetVehicleWithStats returns the vehicle enriched with its latest
// odometer reading. The enrichment runs under its own deadline and is
// best-effort: on timeout or failure the base record comes back
// unmodified.
func (c *Client) GetVehicleWithStats(ctx context.Context, id string) (fleet.Vehicle, bool) {
	v, ok := c.GetVehicleByID(ctx, id)
	if !ok {
		return fleet.Vehicle{}, false
	}

	statsCtx, cancel := context.WithTimeout(ctx, c.enrichTimeout)
	defer cancel()

	if reading, ok := c.GetOdometerStats(statsCtx, []string{id})[id]; ok {
		v.Odometer = &reading
	} else {
		c.log.Debug("odometer enrichment unavailable", zap.String("id", id))
	}
	return v, true
}

// statsFeed performs one stats-feed request for the given metric type
// and vehicle ids.
func (c *Client) statsFeed(ctx context.Context, statType string, ids []string) ([]byte, error) {
	q := url.Values{}
	q.Set("types", statType)
	if len(ids) > 0 {
		q.Set("vehicleIds", strings.Join(ids, ","))
	}
	return c.request(ctx, http.MethodGet, "/fleet/vehicles/stats/feed", q, nil, c.maxRetries)
}

// latestSample picks the series entry with the newest parseable
// timestamp. Feeds usually arrive in chronological order, but that is
// not guaranteed.
func latestSample(series gjson.Result) (gjson.Result, bool) {
	var (
		best     gjson.Result
		bestTime time.Time
		found    bool
	)
	for _, sample := range series.Array() {
		t, err := time.Parse(time.RFC3339, sample.Get("time").String())
		if err != nil {
			continue
		}
		if !found || t.After(bestTime) {
			best = sample
			bestTime = t
			found = true
		}
	}
	return best, found
}
