package samsara

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/fleet"
	"github.com/atorrez/fleetwatch/internal/logger"
)

const (
	defaultBaseURL         = "https://api.samsara.com"
	defaultCacheTTL        = 3 * time.Minute
	defaultRefreshInterval = time.Hour
	defaultMaxRetries      = 2
	defaultPageLimit       = 512
	defaultEnrichTimeout   = 6 * time.Second

	// DefaultSearchLimit caps SearchVehicles results when the caller
	// passes no limit.
	DefaultSearchLimit = 10
)

// Config carries the gateway's construction knobs. Only Token is
// required; zero values fall back to production defaults.
type Config struct {
	// Token is the Samsara API bearer token.
	Token string
	// BaseURL overrides the production API endpoint, mainly for tests.
	BaseURL string
	// VehicleType, when set, filters the vehicle listing upstream.
	VehicleType string
	// CacheTTL bounds how long a fetched vehicle listing is served
	// without a network call.
	CacheTTL time.Duration
	// RefreshInterval is the background loop's fetch cadence.
	RefreshInterval time.Duration
	// MaxRetries caps retries per request on top of the first attempt.
	MaxRetries int
	// PageLimit is the per-page size for the paginated listing.
	PageLimit int
	// EnrichTimeout bounds the odometer enrichment in GetVehicleWithStats.
	EnrichTimeout time.Duration
	// Logger defaults to the process logger named "samsara".
	Logger *zap.Logger
	// Transport overrides the session's RoundTripper, for tests.
	Transport http.RoundTripper
}

// Client is the telemetry gateway. One instance is shared by every
// component that reads fleet data; all state lives on the instance.
type Client struct {
	token       string
	baseURL     string
	vehicleType string

	maxRetries    int
	pageLimit     int
	cacheTTL      time.Duration
	refreshRate   time.Duration
	enrichTimeout time.Duration

	log       *zap.Logger
	transport http.RoundTripper

	// sleep and now are swapped out by tests to avoid real waiting.
	sleep func(context.Context, time.Duration) error
	now   func() time.Time

	// session state, guarded by sessionMu. The lock is only held around
	// create/count/close bookkeeping, never across a network call.
	sessionMu sync.Mutex
	session   *http.Client
	refs      int

	// vehicle cache, guarded by cacheMu.
	cacheMu  sync.Mutex
	vehicles []fleet.Vehicle
	cachedAt time.Time

	// refresh loop state, guarded by loopMu.
	loopMu      sync.Mutex
	loopRunning bool
}

// New builds a gateway from cfg, applying defaults for any zero fields.
func New(cfg Config) *Client {
	c := &Client{
		token:         cfg.Token,
		baseURL:       cfg.BaseURL,
		vehicleType:   cfg.VehicleType,
		maxRetries:    cfg.MaxRetries,
		pageLimit:     cfg.PageLimit,
		cacheTTL:      cfg.CacheTTL,
		refreshRate:   cfg.RefreshInterval,
		enrichTimeout: cfg.EnrichTimeout,
		log:           cfg.Logger,
		transport:     cfg.Transport,
		sleep:         sleepContext,
		now:           time.Now,
	}

	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.maxRetries <= 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.pageLimit <= 0 {
		c.pageLimit = defaultPageLimit
	}
	if c.cacheTTL <= 0 {
		c.cacheTTL = defaultCacheTTL
	}
	if c.refreshRate <= 0 {
		c.refreshRate = defaultRefreshInterval
	}
	if c.enrichTimeout <= 0 {
		c.enrichTimeout = defaultEnrichTimeout
	}
	if c.log == nil {
		c.log = logger.Named("samsara")
	}

	return c
}

// TestConnection issues a minimal listing call and reports whether the
// API answered it. Used by health checks and the CLI.
func (c *Client) TestConnection(ctx context.Context) bool {
	q := url.Values{}
	q.Set("limit", "1")
	if _, err := c.request(ctx, http.MethodGet, "/fleet/vehicles", q, nil, c.maxRetries); err != nil {
		c.log.Warn("connection test failed", zap.Error(err))
		return false
	}
	return true
}

// Status is a diagnostics snapshot of the gateway's internals.
type Status struct {
	SessionActive  bool
	ActiveScopes   int
	CachedVehicles int
	CacheAge       time.Duration
	RefreshRunning bool
}

// Status reports session, cache and refresh-loop state for the /status
// command and the CLI.
func (c *Client) Status() Status {
	var st Status

	c.sessionMu.Lock()
	st.SessionActive = c.session != nil
	st.ActiveScopes = c.refs
	c.sessionMu.Unlock()

	c.cacheMu.Lock()
	st.CachedVehicles = len(c.vehicles)
	if !c.cachedAt.IsZero() {
		st.CacheAge = c.now().Sub(c.cachedAt)
	}
	c.cacheMu.Unlock()

	st.RefreshRunning = c.RefreshRunning()
	return st
}
