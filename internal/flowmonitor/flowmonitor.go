// Package flowmonitor implements the periodic flow/valve consistency check:
// it samples the flow sensor and the valve's electrical state together and
// classifies the result into either a logged anomaly or an escalated hazard.
package flowmonitor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/kimata/unit-cooler/internal/model"
)

// FlowSensor is the external capability this monitor depends on. Read
// returns nil when the sensor has nothing to report this tick; forcePowerOn
// requests the sensor be woken if it was previously powered down.
type FlowSensor interface {
	Read(ctx context.Context, forcePowerOn bool) (*float64, error)
	Stop(ctx context.Context) error
}

// ValveStatusReader is the subset of valve.Controller this monitor needs; a
// narrow interface keeps this package's tests from depending on GPIO.
type ValveStatusReader interface {
	GetStatus() (model.ValveStatus, error)
}

// HazardNotifier is the subset of hazard.Registry this monitor needs.
type HazardNotifier interface {
	Notify(ctx context.Context, reason string) error
}

// Config is the monitor's tunable thresholds, lifted out of config.Config's
// unexported nested struct so this package can take them without naming a
// type it cannot see.
type Config struct {
	OnMax       []float64
	OnMin       float64
	OffMax      float64
	PowerOffSec float64
	Giveup      int
}

// Monitor runs one FlowMonitor tick at a time; it is not safe for concurrent
// Tick calls, matching its single-worker ownership in ActuatorSupervisor.
type Monitor struct {
	sensor FlowSensor
	valve  ValveStatusReader
	hazard HazardNotifier
	cfg    Config

	lastFlow          float64
	flowUnknownTicks  int
	sensorPoweredDown bool
}

// New returns a Monitor wired to its collaborators.
func New(sensor FlowSensor, valve ValveStatusReader, hazard HazardNotifier, cfg Config) *Monitor {
	return &Monitor{sensor: sensor, valve: valve, hazard: hazard, cfg: cfg}
}

// LastFlow returns the most recently observed flow reading, in
// liters/minute. Before any read it reports 0; it reports nil only while the
// sensor has gone unanswered and the last reading was 0. It lets a
// colocated WebUI read the monitor's state directly instead of waiting on
// the actuator's secondary status topic.
func (m *Monitor) LastFlow() (*float64, error) {
	if m.flowUnknownTicks > 0 && m.lastFlow == 0 {
		return nil, nil
	}
	flow := m.lastFlow
	return &flow, nil
}

// Tick runs one observe-and-classify cycle.
func (m *Monitor) Tick(ctx context.Context) error {
	status, err := m.valve.GetStatus()
	if err != nil {
		return fmt.Errorf("reading valve status: %w", err)
	}

	forcePowerOn := status.State == model.ValveOpen
	shouldRead := forcePowerOn || m.lastFlow != 0
	var flow *float64
	if shouldRead {
		flow, err = m.sensor.Read(ctx, forcePowerOn)
		if err != nil {
			// A failed read counts as an absent reading, so repeated failures
			// reach classifyUnreachable below.
			log.Warn().Err(err).Msg("flow sensor read failed")
			flow = nil
		}
		// Flow reads can be slow; state may have changed underneath us, so
		// classification always uses the freshest status.
		status, err = m.valve.GetStatus()
		if err != nil {
			return fmt.Errorf("re-reading valve status: %w", err)
		}
	}

	if flow == nil {
		return m.classifyUnreachable(ctx)
	}
	m.flowUnknownTicks = 0
	m.lastFlow = *flow

	if status.State == model.ValveOpen {
		m.classifyLeak(ctx, *flow, status.DurationSec)
		m.classifyClosedMain(*flow, status.DurationSec)
	} else {
		m.classifyStuckOpen(ctx, *flow, status.DurationSec)
		m.classifyQuietShutdown(ctx, *flow, status.DurationSec)
	}
	return nil
}

func (m *Monitor) classifyUnreachable(ctx context.Context) error {
	m.flowUnknownTicks++

	if m.flowUnknownTicks > m.cfg.Giveup {
		log.Error().Int("ticks", m.flowUnknownTicks).Msg("flow sensor unreachable")
		return m.hazard.Notify(ctx, "flow sensor unreachable")
	}

	if m.flowUnknownTicks == m.cfg.Giveup/2 {
		log.Warn().Int("ticks", m.flowUnknownTicks).Msg("flow sensor unresponsive, forcing restart")
		if err := m.sensor.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to stop flow sensor for restart")
		}
	}
	return nil
}

func (m *Monitor) classifyLeak(ctx context.Context, flow, durationSec float64) {
	for i, max := range m.cfg.OnMax {
		threshold := 5.0 * float64(i+1)
		if flow > max && durationSec > threshold {
			log.Error().Float64("flow", flow).Float64("duration", durationSec).Msg("possible leak while valve open")
			if err := m.hazard.Notify(ctx, "possible leak: flow exceeded on_max while valve open"); err != nil {
				log.Warn().Err(err).Msg("failed to escalate leak hazard")
			}
			return
		}
	}
}

func (m *Monitor) classifyClosedMain(flow, durationSec float64) {
	if flow < m.cfg.OnMin && durationSec > 5 {
		log.Error().Float64("flow", flow).Msg("valve open but flow below on_min, main may be closed")
	}
}

func (m *Monitor) classifyStuckOpen(ctx context.Context, flow, durationSec float64) {
	if durationSec > 120 && flow > m.cfg.OffMax {
		log.Error().Float64("flow", flow).Float64("duration", durationSec).Msg("valve closed but flow still present, possibly stuck open")
		if err := m.hazard.Notify(ctx, "valve appears stuck open"); err != nil {
			log.Warn().Err(err).Msg("failed to escalate stuck-open hazard")
		}
	}
}

func (m *Monitor) classifyQuietShutdown(ctx context.Context, flow, durationSec float64) {
	if durationSec >= m.cfg.PowerOffSec && flow == 0 && !m.sensorPoweredDown {
		if err := m.sensor.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to power down flow sensor")
			return
		}
		m.sensorPoweredDown = true
	} else if flow != 0 {
		m.sensorPoweredDown = false
	}
}
