// Package ratelimit implements the in-memory admission limiter used before
// any costly downstream call. Counters live in per-identifier-space stores
// with fixed windows that start at the first call, are reclaimed lazily on
// every check, and never outlive the process.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Rule is the limit applied to one identifier space.
type Rule struct {
	Limit  int           `mapstructure:"limit" json:"limit"`
	Window time.Duration `mapstructure:"window" json:"window"`
}

// Validate rejects rules the limiter cannot honor.
func (r Rule) Validate() error {
	if r.Limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", r.Limit)
	}
	if r.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", r.Window)
	}
	return nil
}

// Record is the counter kept for one identifier.
type Record struct {
	Count     int
	ResetTime time.Time
}

// Decision is the outcome of a single check.
type Decision struct {
	Allowed   bool
	Remaining int
	// ResetIn is the whole number of minutes (rounded up) until the window
	// resets. Only set on denial.
	ResetIn int
	ResetAt time.Time
}

// Store maps identifiers to counter records for one identifier space.
type Store struct {
	mu      sync.Mutex
	name    string
	records map[string]*Record
}

// NewStore returns an empty store.
func NewStore(name string) *Store {
	return &Store{
		name:    name,
		records: make(map[string]*Record),
	}
}

// Name returns the identifier space the store serves.
func (s *Store) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Len reports the number of entries physically present, including stale ones
// that have not been swept yet.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Get returns a copy of the record for identifier.
func (s *Store) Get(identifier string) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[identifier]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// sweep removes every entry whose window has ended. Caller holds mu.
func (s *Store) sweep(now time.Time) {
	for key, rec := range s.records {
		if now.After(rec.ResetTime) {
			delete(s.records, key)
		}
	}
}

// ErrNilStore is returned by Limiter.Check when no store is supplied.
var ErrNilStore = errors.New("rate limit store is required")

// Limiter evaluates checks against stores using a shared clock.
type Limiter struct {
	clock clockwork.Clock
}

// NewLimiter returns a limiter reading time from clock. A nil clock uses the
// real wall clock.
func NewLimiter(clock clockwork.Clock) *Limiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Limiter{clock: clock}
}

// Check decides whether one more call for identifier is allowed under rule
// and, when it is, records the call. Every check first sweeps expired
// entries from the store.
//
// The rule must already be validated; see Rule.Validate.
func (l *Limiter) Check(store *Store, identifier string, rule Rule) (Decision, error) {
	if store == nil {
		return Decision{}, ErrNilStore
	}
	return CheckRateLimit(l.now(), store, identifier, rule.Limit, rule.Window), nil
}

func (l *Limiter) now() time.Time {
	if l == nil || l.clock == nil {
		return time.Now()
	}
	return l.clock.Now()
}

// CheckRateLimit runs the fixed-window algorithm at instant now.
func CheckRateLimit(now time.Time, store *Store, identifier string, limit int, window time.Duration) Decision {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.sweep(now)

	rec, ok := store.records[identifier]
	if !ok || now.After(rec.ResetTime) {
		rec = &Record{Count: 1, ResetTime: now.Add(window)}
		store.records[identifier] = rec
		return Decision{Allowed: true, Remaining: limit - 1, ResetAt: rec.ResetTime}
	}

	if rec.Count >= limit {
		return Decision{
			Allowed:   false,
			Remaining: 0,
			ResetIn:   minutesUntil(now, rec.ResetTime),
			ResetAt:   rec.ResetTime,
		}
	}

	rec.Count++
	return Decision{Allowed: true, Remaining: limit - rec.Count, ResetAt: rec.ResetTime}
}

func minutesUntil(now, until time.Time) int {
	return int(math.Ceil(float64(until.Sub(now)) / float64(time.Minute)))
}
