// Package errs defines the sentinel errors every worker loop recognizes, so
// callers can branch with errors.Is instead of matching on message text.
package errs

import "errors"

var (
	// ErrSensorDataMissing means one or more required readings were absent
	// for a decision tick that needed them.
	ErrSensorDataMissing = errors.New("sensor data missing")

	// ErrOutdoorTempUnknown means a power reading was present but the
	// outdoor temperature needed to classify it was not.
	ErrOutdoorTempUnknown = errors.New("outdoor temperature unknown")

	// ErrSensorUnreachable means the flow sensor has been silent for more
	// consecutive ticks than its giveup threshold allows.
	ErrSensorUnreachable = errors.New("flow sensor unreachable")

	// ErrTransportTimeout means a subscriber received nothing for longer
	// than 3x the controller interval.
	ErrTransportTimeout = errors.New("transport timeout")

	// ErrHazardDetected means a latching physical hazard (leak, stuck
	// valve) is active and the valve is being forced closed.
	ErrHazardDetected = errors.New("hazard detected")

	// ErrConfigInvalid is fatal: it may only be returned during startup.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrDownstreamIO covers filesystem or notifier failures that are
	// logged and otherwise ignored by the caller.
	ErrDownstreamIO = errors.New("downstream io error")
)
