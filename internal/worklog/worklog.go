// Package worklog implements a bounded ring buffer of human-readable
// operational messages, fed by every ERROR/WARN log call across the
// actuator and surfaced to the WebUI's log-stream endpoints.
package worklog

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Entry is one recorded log line.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// defaultCapacity bounds the ring buffer; the oldest entry is dropped once
// it is exceeded, mirroring the inbox's drop-oldest policy elsewhere in
// this system.
const defaultCapacity = 200

// Ring is a fixed-capacity, thread-safe log-event buffer. The zero value is
// not usable; construct with New.
type Ring struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

// New returns a Ring with the given capacity. capacity <= 0 uses
// defaultCapacity.
func New(capacity int) *Ring {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Ring{capacity: capacity}
}

// Append records an entry, evicting the oldest if the buffer is full.
func (r *Ring) Append(level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, Entry{Time: time.Now(), Level: level, Message: message})
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
}

// Snapshot returns a copy of every currently buffered entry, oldest first.
func (r *Ring) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Clear empties the buffer.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// Run implements zerolog.Hook, so a Ring can be attached directly to the
// actuator's logger (log.Logger.Hook(ring)) and capture every ERROR/WARN
// line without the caller needing a separate wiring point.
func (r *Ring) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if level != zerolog.WarnLevel && level != zerolog.ErrorLevel {
		return
	}
	r.Append(level.String(), msg)
}
