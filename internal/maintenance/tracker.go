package maintenance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/logger"
)

const (
	fetchTimeout    = 30 * time.Second
	userAgent       = "fleetwatch/1.0 (+github.com/atorrez/fleetwatch)"
	cacheTTL        = 10 * time.Minute
	maxFetchRetries = 3
)

// ErrNoSheet is returned when no sheet URL is configured.
var ErrNoSheet = errors.New("maintenance: no sheet configured")

// OdometerFunc returns the current odometer miles for a unit. ok is
// false when no reading is available.
type OdometerFunc func(unit string) (miles int64, ok bool)

// Tracker fetches, caches, and queries the maintenance schedule.
type Tracker struct {
	url       string
	client    *http.Client
	log       *zap.Logger
	now       func() time.Time
	retryBase time.Duration

	cacheMu  sync.Mutex
	records  []Record
	cachedAt time.Time
}

// New creates a Tracker for a published sheet URL. An empty URL is
// allowed; every query then reports ErrNoSheet.
func New(sheetURL string, log *zap.Logger) *Tracker {
	if log == nil {
		log = logger.Named("maintenance")
	}
	return &Tracker{
		url:       sheetURL,
		client:    &http.Client{Timeout: fetchTimeout},
		log:       log,
		now:       time.Now,
		retryBase: backoff.DefaultInitialInterval,
	}
}

// Records returns the current schedule, refetching the sheet when the
// cache is older than ten minutes. A failed refresh falls back to
// stale rows when there are any.
func (t *Tracker) Records(ctx context.Context) ([]Record, error) {
	if t.url == "" {
		return nil, ErrNoSheet
	}

	if recs, ok := t.cached(); ok {
		return recs, nil
	}

	recs, err := t.fetch(ctx)
	if err != nil {
		t.cacheMu.Lock()
		stale := append([]Record(nil), t.records...)
		t.cacheMu.Unlock()
		if len(stale) > 0 {
			t.log.Warn("sheet refresh failed, serving stale schedule",
				zap.Int("records", len(stale)), zap.Error(err))
			return stale, nil
		}
		return nil, err
	}

	t.cacheMu.Lock()
	t.records = recs
	t.cachedAt = t.now()
	t.cacheMu.Unlock()

	t.log.Debug("maintenance schedule refreshed", zap.Int("records", len(recs)))
	return recs, nil
}

// ForUnit returns the schedule rows for one unit.
func (t *Tracker) ForUnit(ctx context.Context, unit string) ([]Record, error) {
	recs, err := t.Records(ctx)
	if err != nil {
		return nil, err
	}

	var matched []Record
	for _, rec := range recs {
		if strings.EqualFold(strings.TrimSpace(rec.Unit), strings.TrimSpace(unit)) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// DueSoon returns rows due within the given number of days, or within
// the given mileage when odo can supply a current reading for the
// unit. Dated rows come first, soonest first.
func (t *Tracker) DueSoon(ctx context.Context, withinDays int, withinMiles int64, odo OdometerFunc) ([]Record, error) {
	recs, err := t.Records(ctx)
	if err != nil {
		return nil, err
	}

	now := t.now()
	cutoff := now.AddDate(0, 0, withinDays)

	var due []Record
	for _, rec := range recs {
		switch {
		case !rec.DueDate.IsZero():
			if !rec.DueDate.After(cutoff) {
				due = append(due, rec)
			}
		case rec.DueMiles > 0 && odo != nil:
			if current, ok := odo(rec.Unit); ok && rec.DueMiles-current <= withinMiles {
				due = append(due, rec)
			}
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i].DueDate, due[j].DueDate
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.Before(b)
	})
	return due, nil
}

// ClearCache drops the cached schedule so the next query refetches.
func (t *Tracker) ClearCache() {
	t.cacheMu.Lock()
	t.records = nil
	t.cachedAt = time.Time{}
	t.cacheMu.Unlock()
}

func (t *Tracker) cached() ([]Record, bool) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	if t.cachedAt.IsZero() || t.now().Sub(t.cachedAt) >= cacheTTL || len(t.records) == 0 {
		return nil, false
	}
	return append([]Record(nil), t.records...), true
}

func (t *Tracker) fetch(ctx context.Context) ([]Record, error) {
	var records []Record

	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, t.url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("sheet fetch status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}

		records, err = parseSheet(resp.Body)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = t.retryBase
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxFetchRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("fetching maintenance sheet: %w", err)
	}
	return records, nil
}
