package network

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultHealthTTL is how long a backend stays marked down after a failure.
const DefaultHealthTTL = 30 * time.Second

// HealthTracker remembers recently failed backends so the broadcast cascade
// can skip them while the mark is fresh. Marks expire on their own; a backend
// is never permanently down.
type HealthTracker struct {
	down *ttlcache.Cache[string, time.Time]
	ttl  time.Duration
}

// NewHealthTracker creates a tracker whose down-marks expire after ttl.
// A non-positive ttl falls back to DefaultHealthTTL.
func NewHealthTracker(ttl time.Duration) *HealthTracker {
	if ttl <= 0 {
		ttl = DefaultHealthTTL
	}
	h := &HealthTracker{
		down: ttlcache.New[string, time.Time](
			ttlcache.WithTTL[string, time.Time](ttl),
			ttlcache.WithDisableTouchOnHit[string, time.Time](),
		),
		ttl: ttl,
	}
	go h.down.Start()
	return h
}

// MarkDown records a failure for the named backend.
func (h *HealthTracker) MarkDown(name string) {
	h.down.Set(name, time.Now(), ttlcache.DefaultTTL)
}

// IsDown reports whether the named backend has a fresh failure mark.
func (h *HealthTracker) IsDown(name string) bool {
	return h.down.Get(name) != nil
}

// Stop halts the expiry goroutine.
func (h *HealthTracker) Stop() {
	h.down.Stop()
}
