package supervisor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kimata/unit-cooler/internal/clock"
	"github.com/kimata/unit-cooler/internal/flowmonitor"
	"github.com/kimata/unit-cooler/internal/hazard"
	"github.com/kimata/unit-cooler/internal/marker"
	"github.com/kimata/unit-cooler/internal/metrics"
	"github.com/kimata/unit-cooler/internal/model"
	"github.com/kimata/unit-cooler/internal/notify"
	"github.com/kimata/unit-cooler/internal/transport"
	"github.com/kimata/unit-cooler/internal/valve"
)

// inboxCapacity bounds the subscribe-worker-to-control-worker channel; when
// full, the subscribe worker drops the oldest entry so the newest decision
// always wins.
const inboxCapacity = 4

// StatusObserver is notified whenever the control worker applies a new
// ActuatorStatus -- the WebUI's cache and cmd/actuator's publisher for the
// secondary status topic both implement this.
type StatusObserver interface {
	Observe(status model.ActuatorStatus)
}

// ActuatorSupervisor owns the subscribe/control/monitor worker triple that
// makes up the actuator process.
type ActuatorSupervisor struct {
	subscriber *transport.Subscriber
	valveCtrl  *valve.Controller
	hazardReg  *hazard.Registry
	monitor    *flowmonitor.Monitor
	recorder   *metrics.Recorder
	notifier   notify.Notifier
	observers  []StatusObserver

	subscribeLivenessPath string
	controlLivenessPath   string
	monitorLivenessPath   string
	controlInterval       time.Duration
	monitorInterval       time.Duration
	clk                   clock.Clock

	inbox chan model.ControlMessage
	mu    sync.Mutex
	last  *model.ControlMessage
}

// NewActuatorSupervisor wires the three workers' collaborators. clk is the
// tick source for the control and monitor workers; callers wrap it in
// clock.SpeedUp to honor the -t/SPEEDUP flag.
func NewActuatorSupervisor(subscriber *transport.Subscriber, valveCtrl *valve.Controller, hazardReg *hazard.Registry,
	monitor *flowmonitor.Monitor, recorder *metrics.Recorder, notifier notify.Notifier,
	subscribeLivenessPath, controlLivenessPath, monitorLivenessPath string,
	controlInterval, monitorInterval time.Duration, clk clock.Clock) *ActuatorSupervisor {
	return &ActuatorSupervisor{
		subscriber: subscriber, valveCtrl: valveCtrl, hazardReg: hazardReg, monitor: monitor,
		recorder: recorder, notifier: notifier,
		subscribeLivenessPath: subscribeLivenessPath, controlLivenessPath: controlLivenessPath,
		monitorLivenessPath: monitorLivenessPath, controlInterval: controlInterval, monitorInterval: monitorInterval,
		clk:   clk,
		inbox: make(chan model.ControlMessage, inboxCapacity),
	}
}

// AddObserver registers a StatusObserver notified on every control tick.
func (a *ActuatorSupervisor) AddObserver(o StatusObserver) {
	a.observers = append(a.observers, o)
}

// RunSubscribeWorker drains the upstream transport into the bounded inbox.
func (a *ActuatorSupervisor) RunSubscribeWorker(ctx context.Context, msgCount int) {
	err := a.subscriber.Run(ctx, msgCount, func(payload []byte) {
		var msg model.ControlMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warn().Err(err).Msg("received malformed control message")
			return
		}
		a.enqueue(msg)
		if err := marker.Touch(a.subscribeLivenessPath); err != nil {
			log.Warn().Err(err).Msg("failed to touch subscribe liveness marker")
		}
	})
	if err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Msg("subscribe worker exited")
	}
}

func (a *ActuatorSupervisor) enqueue(msg model.ControlMessage) {
	select {
	case a.inbox <- msg:
		return
	default:
	}
	// Inbox full: drop the oldest so the newest decision always wins.
	select {
	case <-a.inbox:
	default:
	}
	select {
	case a.inbox <- msg:
	default:
	}
}

// RunControlWorker applies the most recent control message every interval,
// honoring the hazard latch and escalating if no message has arrived for a
// suspiciously long time.
func (a *ActuatorSupervisor) RunControlWorker(ctx context.Context, controllerInterval time.Duration) {
	ticker := a.clk.NewTicker(a.controlInterval)
	defer ticker.Stop()

	staleAfter := 3 * controllerInterval
	lastReceived := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-a.inbox:
			a.mu.Lock()
			a.last = &msg
			a.mu.Unlock()
			lastReceived = time.Now()
		case <-ticker.C():
			a.mu.Lock()
			current := a.last
			a.mu.Unlock()

			if time.Since(lastReceived) > staleAfter && a.notifier != nil {
				_ = a.notifier.Notify(ctx, "warn", "control messages not being received")
			}

			if current == nil {
				continue
			}

			a.applyOnce(ctx, *current)
		}
	}
}

func (a *ActuatorSupervisor) applyOnce(ctx context.Context, msg model.ControlMessage) {
	latched, err := a.hazardReg.IsLatched()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read hazard latch")
	}
	if a.recorder != nil {
		a.recorder.Hazard(latched)
	}
	if latched {
		msg = model.IdleControlMessage()
	}

	intent := model.IntentIdle
	if msg.State == model.StateWorking {
		intent = model.IntentWorking
	}

	status, err := a.valveCtrl.Apply(ctx, intent, msg.Duty)
	if err != nil {
		log.Error().Err(err).Msg("failed to apply valve state")
		return
	}

	if err := marker.Touch(a.controlLivenessPath); err != nil {
		log.Warn().Err(err).Msg("failed to touch control liveness marker")
	}

	flow, err := a.monitor.LastFlow()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read last flow reading")
	}

	actuatorStatus := model.ActuatorStatus{
		Timestamp:        time.Now(),
		Valve:            status,
		CoolingModeIndex: msg.ModeIndex,
		HazardDetected:   latched,
		FlowLPM:          flow,
	}
	for _, o := range a.observers {
		o.Observe(actuatorStatus)
	}
}

// RunMonitorWorker runs FlowMonitor.Tick every interval and touches its
// liveness marker after each successful tick.
func (a *ActuatorSupervisor) RunMonitorWorker(ctx context.Context) {
	ticker := a.clk.NewTicker(a.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if err := a.monitor.Tick(ctx); err != nil {
				log.Warn().Err(err).Msg("flow monitor tick failed")
				continue
			}
			if err := marker.Touch(a.monitorLivenessPath); err != nil {
				log.Warn().Err(err).Msg("failed to touch monitor liveness marker")
			}
		}
	}
}
