package driver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sync"
	"sync/atomic"
	"time"
)

// TraceEntry is one NDJSON line in a trace file.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Driver      string          `json:"driver"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
	Model       string          `json:"model,omitempty"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

// Tracer appends entries to an NDJSON file.
type Tracer struct {
	mu   sync.Mutex
	file *os.File
}

var activeTracer atomic.Pointer[Tracer]

// EnableTracing sends Trace output to path until the returned cleanup runs.
// A tracer that was already active is closed.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	t := &Tracer{file: f}
	if prev := activeTracer.Swap(t); prev != nil {
		_ = prev.Close()
	}
	return func() {
		if activeTracer.CompareAndSwap(t, nil) {
			_ = t.Close()
		}
	}, nil
}

// IsTracingEnabled reports whether a trace file is open.
func IsTracingEnabled() bool {
	return activeTracer.Load() != nil
}

// Trace records entry on the active tracer, if any.
func Trace(entry TraceEntry) {
	activeTracer.Load().Write(entry)
}

// Write appends entry. Inline image payloads in the request body are
// redacted before anything reaches disk.
func (t *Tracer) Write(entry TraceEntry) {
	if t == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.RequestBody = RedactDataURLs(entry.RequestBody)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return
	}
	_, _ = t.file.Write(data)
}

// Close closes the trace file. Later writes are dropped.
func (t *Tracer) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

var dataURLPattern = regexp.MustCompile(`data:[A-Za-z0-9.+/-]+;base64,[A-Za-z0-9+/=]+`)

// RedactDataURLs replaces the payload of every base64 data URL in body with
// its length, keeping the media type.
func RedactDataURLs(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	return dataURLPattern.ReplaceAllFunc(body, func(match []byte) []byte {
		comma := bytes.IndexByte(match, ',')
		return fmt.Appendf(nil, "%s[redacted %d bytes]", match[:comma+1], len(match)-comma-1)
	})
}
