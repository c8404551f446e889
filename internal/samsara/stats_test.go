package samsara

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atorrez/fleetwatch/internal/fleet"
)

func TestGetVehicleLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fleet/vehicles/stats/feed" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("types"); got != "gps" {
			t.Errorf("types = %q, want gps", got)
		}
		if got := r.URL.Query().Get("vehicleIds"); got != "42" {
			t.Errorf("vehicleIds = %q, want 42", got)
		}
		// Samples deliberately out of order; the newest must win.
		fmt.Fprint(w, `{
			"data": [{
				"id": "42",
				"name": "Truck 4042",
				"gps": [
					{"time": "2026-03-01T12:05:00Z", "latitude": 36.1716, "longitude": -115.1391,
					 "speedMilesPerHour": 61.5,
					 "reverseGeo": {"formattedLocation": "I-15 N, Las Vegas, NV"}},
					{"time": "2026-03-01T11:00:00Z", "latitude": 35.9, "longitude": -114.8}
				]
			}]
		}`)
	}))
	t.Cleanup(server.Close)

	c, _, _ := newTestClient(t, server.URL)
	release := c.Acquire()
	defer release()

	loc, ok := c.GetVehicleLocation(context.Background(), "42")
	if !ok {
		t.Fatal("GetVehicleLocation() not found, want a fix")
	}
	if loc.Latitude != 36.1716 || loc.Longitude != -115.1391 {
		t.Errorf("coordinates = (%v, %v), want the newest sample's", loc.Latitude, loc.Longitude)
	}
	if loc.Address != "I-15 N, Las Vegas, NV" {
		t.Errorf("address = %q, want reverse-geocoded address", loc.Address)
	}
	if want := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC); !loc.Time.Equal(want) {
		t.Errorf("time = %v, want %v", loc.Time, want)
	}
}

func TestGetVehicleLocationNotFound(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no matching vehicle", `{"data": [{"id": "7", "gps": [{"time": "2026-03-01T12:00:00Z", "latitude": 1, "longitude": 1}]}]}`},
		{"empty series", `{"data": [{"id": "42", "gps": []}]}`},
		{"zero-zero fix", `{"data": [{"id": "42", "gps": [{"time": "2026-03-01T12:00:00Z", "latitude": 0, "longitude": 0}]}]}`},
		{"garbage timestamps", `{"data": [{"id": "42", "gps": [{"time": "yesterday", "latitude": 1, "longitude": 1}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			t.Cleanup(server.Close)

			c, _, _ := newTestClient(t, server.URL)
			release := c.Acquire()
			defer release()

			if _, ok := c.GetVehicleLocation(context.Background(), "42"); ok {
				t.Error("GetVehicleLocation() = found, want not-found")
			}
		})
	}
}

func TestGetOdometerStatsBatchesRequests(t *testing.T) {
	var mu sync.Mutex
	var batchSizes []int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("vehicleIds"), ",")
		mu.Lock()
		batchSizes = append(batchSizes, len(ids))
		mu.Unlock()

		type sample struct {
			Time  string  `json:"time"`
			Value float64 `json:"value"`
		}
		type record struct {
			ID          string            `json:"id"`
			ExternalIDs map[string]string `json:"externalIds"`
			Odometer    []sample          `json:"obdOdometerMeters"`
		}
		var records []record
		for _, id := range ids {
			records = append(records, record{
				ID:          id,
				ExternalIDs: map[string]string{"samsara.vin": "VIN-" + id},
				Odometer:    []sample{{Time: "2026-03-01T12:00:00Z", Value: 1609340}},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": records})
	}))
	t.Cleanup(server.Close)

	c, _, _ := newTestClient(t, server.URL)
	release := c.Acquire()
	defer release()

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", i+1)
	}

	readings := c.GetOdometerStats(context.Background(), ids)
	if len(readings) != 120 {
		t.Fatalf("readings = %d, want 120", len(readings))
	}

	mu.Lock()
	gotBatches := append([]int(nil), batchSizes...)
	mu.Unlock()
	wantBatches := []int{50, 50, 20}
	if len(gotBatches) != len(wantBatches) {
		t.Fatalf("stats calls = %d, want %d", len(gotBatches), len(wantBatches))
	}
	for i, want := range wantBatches {
		if gotBatches[i] != want {
			t.Errorf("batch %d size = %d, want %d", i, gotBatches[i], want)
		}
	}

	reading := readings["37"]
	if reading.Miles != 1000 {
		t.Errorf("miles = %d, want 1000 from 1609340 meters", reading.Miles)
	}
	if reading.VIN != "VIN-37" {
		t.Errorf("vin = %q, want VIN-37 from external ids", reading.VIN)
	}
	if want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC); !reading.LastUpdated.Equal(want) {
		t.Errorf("last updated = %v, want %v", reading.LastUpdated, want)
	}
}

func TestGetOdometerStatsOmitsUnparseableSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"data": [
				{"id": "1", "obdOdometerMeters": [{"time": "2026-03-01T12:00:00Z", "value": 3218680}]},
				{"id": "2", "obdOdometerMeters": [{"time": "not-a-time", "value": 999}]},
				{"id": "3", "obdOdometerMeters": []},
				{"id": "4"}
			]
		}`)
	}))
	t.Cleanup(server.Close)

	c, _, _ := newTestClient(t, server.URL)
	release := c.Acquire()
	defer release()

	readings := c.GetOdometerStats(context.Background(), []string{"1", "2", "3", "4"})
	if len(readings) != 1 {
		t.Fatalf("readings = %d, want only the parseable one", len(readings))
	}
	if got := readings["1"].Miles; got != 2000 {
		t.Errorf("miles = %d, want 2000", got)
	}
}

func TestGetOdometerStatsEmptyInput(t *testing.T) {
	c, _, _ := newTestClient(t, "http://unused.invalid")
	if got := c.GetOdometerStats(context.Background(), nil); len(got) != 0 {
		t.Errorf("readings = %d, want 0 for empty input (and no network call)", len(got))
	}
}

// statsServer serves both the single-vehicle endpoint and the stats
// feed, with an adjustable delay on the feed.
func statsServer(t *testing.T, feedDelay time.Duration) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fleet/vehicles/9":
			json.NewEncoder(w).Encode(singleResponse{Data: fleet.Vehicle{ID: "9", Name: "Truck 4009"}})
		case "/fleet/vehicles/stats/feed":
			if feedDelay > 0 {
				time.Sleep(feedDelay)
			}
			fmt.Fprint(w, `{"data": [{"id": "9", "obdOdometerMeters": [{"time": "2026-03-01T12:00:00Z", "value": 160934000}]}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGetVehicleWithStatsEnrichesInTime(t *testing.T) {
	server := statsServer(t, 0)
	c, _, _ := newTestClient(t, server.URL)
	release := c.Acquire()
	defer release()

	v, ok := c.GetVehicleWithStats(context.Background(), "9")
	if !ok {
		t.Fatal("GetVehicleWithStats() not found")
	}
	if v.Odometer == nil {
		t.Fatal("odometer = nil, want enrichment when stats answer quickly")
	}
	if v.Odometer.Miles != 100000 {
		t.Errorf("miles = %d, want 100000", v.Odometer.Miles)
	}
}

func TestGetVehicleWithStatsTimeoutReturnsBaseRecord(t *testing.T) {
	server := statsServer(t, 300*time.Millisecond)
	c, _, _ := newTestClient(t, server.URL)
	c.enrichTimeout = 30 * time.Millisecond
	release := c.Acquire()
	defer release()

	v, ok := c.GetVehicleWithStats(context.Background(), "9")
	if !ok {
		t.Fatal("GetVehicleWithStats() not found, want base record despite slow stats")
	}
	if v.Name != "Truck 4009" {
		t.Errorf("name = %q, want Truck 4009", v.Name)
	}
	if v.Odometer != nil {
		t.Error("odometer enriched despite the stats call blowing its deadline")
	}
}
