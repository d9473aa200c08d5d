// Package hazard implements the persistent hazard latch: a single marker
// file whose presence forces the whole system into the IDLE profile until an
// operator clears it, with a rate-limited re-notification window that
// survives a process restart because it is stored in the marker's own JSON
// content rather than inferred from filesystem mtime.
package hazard

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kimata/unit-cooler/internal/marker"
	"github.com/kimata/unit-cooler/internal/model"
	"github.com/kimata/unit-cooler/internal/notify"
)

// renotifyWindow is the anti-spam interval between repeated notifications of
// an already-latched hazard.
const renotifyWindow = 30 * time.Minute

// Registry is the persistent hazard latch over a single well-known marker
// path.
type Registry struct {
	path     string
	notifier notify.Notifier
	events   notify.EventSink
}

// New returns a Registry backed by the marker file at path.
func New(path string, notifier notify.Notifier, events notify.EventSink) *Registry {
	return &Registry{path: path, notifier: notifier, events: events}
}

// Register creates or updates the marker with a first-seen timestamp and the
// triggering reason, without sending a notification.
func (r *Registry) Register(reason string) error {
	rec, err := r.read()
	if err != nil {
		return err
	}
	if rec.FirstSeen.IsZero() {
		rec.FirstSeen = time.Now()
	}
	rec.Reason = reason
	return marker.WriteJSON(r.path, rec)
}

// Clear removes the marker. It is intended to be an explicit operator
// action, never something the control loop does on its own.
func (r *Registry) Clear() error {
	return marker.Clear(r.path)
}

// Notify records that a monitor believes a hazard is active: it always
// forces the record to exist, which latches the hazard that the control
// worker checks before driving the valve, but it only escalates through
// Notifier/EventSink when the marker was absent or the rate-limit window has
// elapsed.
func (r *Registry) Notify(ctx context.Context, reason string) error {
	rec, err := r.read()
	if err != nil {
		return err
	}

	now := time.Now()
	shouldEscalate := rec.FirstSeen.IsZero() || now.Sub(rec.LastNotify) >= renotifyWindow

	if rec.FirstSeen.IsZero() {
		rec.FirstSeen = now
	}
	rec.Reason = reason

	if shouldEscalate {
		rec.LastNotify = now
		if r.notifier != nil {
			if err := r.notifier.Notify(ctx, "error", fmt.Sprintf("hazard detected: %s", reason)); err != nil {
				log.Warn().Err(err).Msg("failed to escalate hazard notification")
			}
		}
		if r.events != nil {
			if err := r.events.Emit(ctx, "hazard"); err != nil {
				log.Warn().Err(err).Msg("failed to emit hazard event")
			}
		}
	}

	return marker.WriteJSON(r.path, rec)
}

// IsLatched reports whether the hazard marker currently exists.
func (r *Registry) IsLatched() (bool, error) {
	return marker.Exists(r.path), nil
}

func (r *Registry) read() (model.HazardRecord, error) {
	var rec model.HazardRecord
	if !marker.Exists(r.path) {
		return rec, nil
	}
	if err := marker.ReadJSON(r.path, &rec); err != nil {
		if os.IsNotExist(err) {
			return model.HazardRecord{}, nil
		}
		return model.HazardRecord{}, fmt.Errorf("reading hazard marker: %w", err)
	}
	return rec, nil
}
