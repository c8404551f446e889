package samsara

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/atorrez/fleetwatch/internal/fleet"
)

// fakeClock drives the cache validity window without real waiting.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// sleepRecorder replaces the client's sleep so retry backoff is
// observable instead of slow.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return nil
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}

// newTestClient builds a gateway against a test server with an
// instant sleep and a controllable clock.
func newTestClient(t *testing.T, baseURL string) (*Client, *fakeClock, *sleepRecorder) {
	t.Helper()

	clock := newFakeClock()
	sleeps := &sleepRecorder{}

	c := New(Config{
		Token:   "test-token",
		BaseURL: baseURL,
		Logger:  zaptest.NewLogger(t),
	})
	c.now = clock.Now
	c.sleep = sleeps.Sleep
	return c, clock, sleeps
}

// listingBody renders one page of the vehicle listing endpoint.
func listingBody(t *testing.T, vehicles []fleet.Vehicle, endCursor string, hasNext bool) []byte {
	t.Helper()
	page := listResponse{Data: vehicles}
	page.Pagination.EndCursor = endCursor
	page.Pagination.HasNextPage = hasNext
	data, err := json.Marshal(page)
	if err != nil {
		t.Fatalf("marshal listing page: %v", err)
	}
	return data
}

func testVehicles(n int) []fleet.Vehicle {
	out := make([]fleet.Vehicle, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, fleet.Vehicle{
			ID:           fmt.Sprintf("%d", i),
			Name:         fmt.Sprintf("Truck %d", 4000+i),
			VIN:          fmt.Sprintf("1FUJGLDR8CSBU40%02d", i),
			LicensePlate: fmt.Sprintf("KTX48%02d", i),
		})
	}
	return out
}

// fleetServer is a minimal fake of the vehicle listing endpoint with a
// request counter.
type fleetServer struct {
	*httptest.Server

	mu           sync.Mutex
	listingCalls int
	failListing  bool
	vehicles     []fleet.Vehicle
}

func newFleetServer(t *testing.T, vehicles []fleet.Vehicle) *fleetServer {
	t.Helper()
	fs := &fleetServer{vehicles: vehicles}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fleet/vehicles" {
			http.NotFound(w, r)
			return
		}
		fs.mu.Lock()
		fs.listingCalls++
		fail := fs.failListing
		vs := fs.vehicles
		fs.mu.Unlock()

		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(listingBody(t, vs, "", false))
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fleetServer) ListingCalls() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.listingCalls
}

func (fs *fleetServer) SetFail(fail bool) {
	fs.mu.Lock()
	fs.failListing = fail
	fs.mu.Unlock()
}
