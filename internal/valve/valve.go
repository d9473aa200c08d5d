// Package valve implements the duty-cycle valve controller: it owns a single
// physical output, tracks how long it has held its current state across
// process restarts, and converts a cooling intent plus a duty schedule into
// OPEN/CLOSE transitions.
package valve

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kimata/unit-cooler/internal/gpio"
	"github.com/kimata/unit-cooler/internal/marker"
	"github.com/kimata/unit-cooler/internal/metrics"
	"github.com/kimata/unit-cooler/internal/model"
)

const (
	openMarkerName  = "open"
	closeMarkerName = "close"

	// workingMarkerName and idleMarkerName persist which side of the
	// IDLE/WORKING edge the controller last saw, so a restart mid
	// duty-cycle does not re-trigger the open-immediately edge behavior.
	workingMarkerName = "state/working"
	idleMarkerName    = "state/idle"
)

// Controller owns a single DigitalOutput and the persisted transition
// timestamps that let DurationSec survive a restart.
type Controller struct {
	mu       sync.Mutex
	output   gpio.DigitalOutput
	stateDir string
	recorder *metrics.Recorder

	testMode bool
	history  []model.ValveState
}

// New returns a Controller driving output, persisting transition markers
// under stateDir. recorder may be nil to disable metrics. testMode, when
// true, additionally records every prior state in an in-memory history for
// test assertions.
func New(output gpio.DigitalOutput, stateDir string, recorder *metrics.Recorder, testMode bool) *Controller {
	return &Controller{output: output, stateDir: stateDir, recorder: recorder, testMode: testMode}
}

func (c *Controller) markerPath(name string) string {
	return filepath.Join(c.stateDir, name)
}

// SetState drives the output to target, persisting a transition timestamp
// only when the output's state actually changes.
func (c *Controller) SetState(ctx context.Context, target model.ValveState) (model.ValveStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setStateLocked(ctx, target)
}

func (c *Controller) setStateLocked(_ context.Context, target model.ValveState) (model.ValveStatus, error) {
	current, err := c.currentStateLocked()
	if err != nil {
		return model.ValveStatus{}, err
	}

	if current == target {
		return c.statusLocked(target)
	}

	if target == model.ValveOpen {
		if err := c.output.Activate(); err != nil {
			return model.ValveStatus{}, fmt.Errorf("opening valve: %w", err)
		}
	} else {
		if err := c.output.Deactivate(); err != nil {
			return model.ValveStatus{}, fmt.Errorf("closing valve: %w", err)
		}
	}

	if c.testMode {
		c.history = append(c.history, current)
	}

	if err := marker.Touch(c.markerPath(transitionMarkerName(target))); err != nil {
		log.Warn().Err(err).Msg("failed to persist valve transition marker")
	}

	if c.recorder != nil {
		c.recorder.ValveOperation(target == model.ValveOpen)
	}

	log.Info().Str("valve", target.String()).Msg("valve transitioned")
	return c.statusLocked(target)
}

func transitionMarkerName(state model.ValveState) string {
	if state == model.ValveOpen {
		return openMarkerName
	}
	return closeMarkerName
}

func (c *Controller) currentStateLocked() (model.ValveState, error) {
	active, err := c.output.CurrentlyActive()
	if err != nil {
		return 0, fmt.Errorf("reading valve state: %w", err)
	}
	if active {
		return model.ValveOpen, nil
	}
	return model.ValveClose, nil
}

func (c *Controller) statusLocked(state model.ValveState) (model.ValveStatus, error) {
	elapsed, err := marker.Elapsed(c.markerPath(transitionMarkerName(state)))
	if err != nil {
		// No marker yet (first run): treat as having just transitioned.
		return model.ValveStatus{State: state, DurationSec: 0}, nil
	}
	return model.ValveStatus{State: state, DurationSec: elapsed.Seconds()}, nil
}

// GetStatus reports the valve's current state and how long it has held it.
func (c *Controller) GetStatus() (model.ValveStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, err := c.currentStateLocked()
	if err != nil {
		return model.ValveStatus{}, err
	}
	return c.statusLocked(state)
}

// History returns the sequence of prior states recorded since New, in
// test mode only; it is nil otherwise.
func (c *Controller) History() []model.ValveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ValveState(nil), c.history...)
}

// Apply is the duty-cycle step, invoked once per control tick. Which side of
// the IDLE/WORKING edge was last seen is tracked via the state/working and
// state/idle markers (not an in-memory flag), so the open-immediately edge
// behavior survives a process restart mid duty-cycle.
func (c *Controller) Apply(ctx context.Context, intent model.CoolingIntent, duty model.DutyConfig) (model.ValveStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	workingMarker := c.markerPath(workingMarkerName)
	idleMarker := c.markerPath(idleMarkerName)

	if intent == model.IntentIdle {
		wasWorking := marker.Exists(workingMarker)
		if err := marker.Clear(workingMarker); err != nil {
			log.Warn().Err(err).Msg("failed to clear valve working marker")
		}
		if wasWorking {
			log.Info().Msg("cooling stopped")
		}
		if !marker.Exists(idleMarker) {
			if err := marker.Touch(idleMarker); err != nil {
				log.Warn().Err(err).Msg("failed to persist valve idle marker")
			}
		}
		return c.setStateLocked(ctx, model.ValveClose)
	}

	firstWorkingTick := !marker.Exists(workingMarker)
	if err := marker.Clear(idleMarker); err != nil {
		log.Warn().Err(err).Msg("failed to clear valve idle marker")
	}
	if firstWorkingTick {
		if err := marker.Touch(workingMarker); err != nil {
			log.Warn().Err(err).Msg("failed to persist valve working marker")
		}
		log.Info().Msg("cooling started")
		return c.setStateLocked(ctx, model.ValveOpen)
	}

	if !duty.Enable {
		return c.setStateLocked(ctx, model.ValveOpen)
	}

	status, err := c.statusFromCurrentLocked()
	if err != nil {
		return model.ValveStatus{}, err
	}

	switch status.State {
	case model.ValveOpen:
		if status.DurationSec >= float64(duty.OnSec) {
			log.Debug().Msg("entering OFF duty")
			return c.setStateLocked(ctx, model.ValveClose)
		}
		return status, nil
	default:
		if status.DurationSec >= float64(duty.OffSec) {
			log.Debug().Msg("entering ON duty")
			return c.setStateLocked(ctx, model.ValveOpen)
		}
		return status, nil
	}
}

func (c *Controller) statusFromCurrentLocked() (model.ValveStatus, error) {
	state, err := c.currentStateLocked()
	if err != nil {
		return model.ValveStatus{}, err
	}
	return c.statusLocked(state)
}

// TimeSinceOpen and TimeSinceClose exist for diagnostics / FlowMonitor; they
// are read-only and do not take the controller's lock, since they only touch
// the filesystem, not output state.
func TimeSinceOpen(stateDir string) (time.Duration, error) {
	return marker.Elapsed(filepath.Join(stateDir, openMarkerName))
}

func TimeSinceClose(stateDir string) (time.Duration, error) {
	return marker.Elapsed(filepath.Join(stateDir, closeMarkerName))
}
