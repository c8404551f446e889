package alerts

import (
	"sync"
	"time"
)

// deduper remembers recently seen event ids so webhook redeliveries do
// not produce duplicate messages.
type deduper struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func newDeduper(ttl time.Duration) *deduper {
	return &deduper{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

// remember records an event id and reports whether this is its first
// sighting inside the TTL window. Expired entries are swept on each
// call; alert volume is low enough that a full sweep stays cheap.
func (d *deduper) remember(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for key, at := range d.seen {
		if now.Sub(at) > d.ttl {
			delete(d.seen, key)
		}
	}

	if _, ok := d.seen[id]; ok {
		return false
	}
	d.seen[id] = now
	return true
}
