package ratelimit

import "strings"

// Whitelist is a fixed set of identifiers that bypass checks.
type Whitelist struct {
	entries map[string]struct{}
}

// NewWhitelist normalizes identifiers and drops blanks.
func NewWhitelist(identifiers ...string) *Whitelist {
	w := &Whitelist{entries: make(map[string]struct{}, len(identifiers))}
	for _, id := range identifiers {
		id = NormalizeEmail(id)
		if id == "" {
			continue
		}
		w.entries[id] = struct{}{}
	}
	return w
}

// Contains reports whether identifier is exempt.
func (w *Whitelist) Contains(identifier string) bool {
	if w == nil {
		return false
	}
	_, ok := w.entries[NormalizeEmail(identifier)]
	return ok
}

// Len returns the number of exempt identifiers.
func (w *Whitelist) Len() int {
	if w == nil {
		return 0
	}
	return len(w.entries)
}

// NormalizeEmail lower-cases and trims an email identifier.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
