// Package supervisor wires the decision/transport/valve/hazard/flowmonitor
// packages into the three long-running processes this system ships:
// ControllerLoop (the sensing/decision side) and ActuatorSupervisor's three
// workers (subscribe, control, monitor).
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kimata/unit-cooler/internal/clock"
	"github.com/kimata/unit-cooler/internal/decision"
	"github.com/kimata/unit-cooler/internal/decision/dummy"
	"github.com/kimata/unit-cooler/internal/marker"
	"github.com/kimata/unit-cooler/internal/metrics"
	"github.com/kimata/unit-cooler/internal/model"
	"github.com/kimata/unit-cooler/internal/notify"
	"github.com/kimata/unit-cooler/internal/transport"
)

// SensorSource is the external collaborator ControllerLoop fans out to once
// per tick.
type SensorSource interface {
	Fetch(ctx context.Context) (model.SenseSnapshot, error)
}

// ControllerLoop gathers a sense snapshot, runs the decision engine, and
// publishes the resulting ControlMessage every interval.
type ControllerLoop struct {
	sensors      SensorSource
	thresholds   model.Thresholds
	publisher    *transport.Publisher
	recorder     *metrics.Recorder
	notifier     notify.Notifier
	livenessPath string
	interval     time.Duration
	clk          clock.Clock

	dummy  bool
	walker *dummy.Walker
}

// NewControllerLoop returns a ControllerLoop. When dummyMode is true, sensors
// is never consulted and modes are generated by a per-loop Walker instead,
// per this system's offline-testing design. clk is the tick source; callers
// wrap it in clock.SpeedUp to honor the -t/SPEEDUP flag.
func NewControllerLoop(sensors SensorSource, thresholds model.Thresholds, publisher *transport.Publisher,
	recorder *metrics.Recorder, notifier notify.Notifier, livenessPath string, interval time.Duration,
	dummyMode bool, clk clock.Clock) *ControllerLoop {
	loop := &ControllerLoop{
		sensors: sensors, thresholds: thresholds, publisher: publisher, recorder: recorder,
		notifier: notifier, livenessPath: livenessPath, interval: interval, dummy: dummyMode, clk: clk,
	}
	if dummyMode {
		loop.walker = dummy.NewWalker(time.Now().UnixNano())
	}
	return loop
}

// Run drives one tick per interval until ctx is cancelled or count emissions
// have been published (count <= 0 means unbounded).
func (c *ControllerLoop) Run(ctx context.Context, count int) {
	ticker := c.clk.NewTicker(c.interval)
	defer ticker.Stop()

	emitted := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := c.tick(ctx); err != nil {
				log.Error().Err(err).Msg("controller tick failed")
				continue
			}
			emitted++
			if count > 0 && emitted >= count {
				return
			}
		}
	}
}

func (c *ControllerLoop) tick(ctx context.Context) error {
	msg, err := c.buildMessage(ctx)
	if err != nil {
		return err
	}

	if err := c.publisher.Publish(msg); err != nil {
		return err
	}

	if err := marker.Touch(c.livenessPath); err != nil {
		log.Warn().Err(err).Msg("failed to touch controller liveness marker")
	}

	if c.recorder != nil {
		c.recorder.Decision(msg.CoolerStatus.Status, msg.OutdoorStatus.Status, int(msg.ModeIndex))
	}

	return nil
}

func (c *ControllerLoop) buildMessage(ctx context.Context) (model.ControlMessage, error) {
	if c.dummy {
		idx := c.walker.Next()
		state, duty := decision.Profile(idx)
		return model.ControlMessage{State: state, Duty: duty, ModeIndex: idx}, nil
	}

	snapshot, err := c.sensors.Fetch(ctx)
	if err != nil {
		return model.ControlMessage{}, err
	}

	idx, cooler, outdoor, err := decision.Decide(snapshot, c.thresholds)
	if err != nil {
		log.Warn().Err(err).Msg("decision engine degraded, falling back to stopped cooling")
		if c.notifier != nil {
			_ = c.notifier.Notify(ctx, "warn", "decision engine could not score outdoor weather: "+err.Error())
		}
		idle := model.IdleControlMessage()
		idle.SenseData = snapshot
		return idle, nil
	}

	state, duty := decision.Profile(idx)
	return model.ControlMessage{
		State: state, Duty: duty, ModeIndex: idx,
		SenseData: snapshot, CoolerStatus: cooler, OutdoorStatus: outdoor,
	}, nil
}
