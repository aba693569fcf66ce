// Package ratelimit provides process-local request throttling. Counters are
// deliberately non-authoritative: losing them on restart only weakens
// throttling, never ledger correctness.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Store holds one token bucket per key (an IP or a user id).
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	limit   rate.Limit
	burst   int
}

// NewStore builds a store allowing perMinute requests per key and starts a
// janitor that evicts keys idle longer than ten minutes.
func NewStore(perMinute int) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   perMinute,
	}
	go s.janitor()
	return s
}

// Allow reports whether one more request for key fits in the window.
func (s *Store) Allow(key string) bool {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = time.Now()
	s.mu.Unlock()

	return e.limiter.Allow()
}

func (s *Store) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		s.mu.Lock()
		for key, e := range s.entries {
			if e.lastSeen.Before(cutoff) {
				delete(s.entries, key)
			}
		}
		s.mu.Unlock()
	}
}
