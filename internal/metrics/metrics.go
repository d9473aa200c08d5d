// Package metrics pushes cooling telemetry to Datadog via dogstatsd, and
// mirrors the same gauges through a Prometheus registry the WebUI exposes on
// /metrics -- so an operator without a Datadog agent can still scrape
// locally.
package metrics

import (
	"github.com/DataDog/datadog-go/statsd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Recorder is the sink every worker pushes cooling telemetry through.
// Implementations must tolerate being nil-backed (metrics disabled).
type Recorder struct {
	dogstatsd *statsd.Client
	namespace string
	tags      []string

	valveOps      prometheus.Counter
	dutyState     prometheus.Gauge
	coolerStatus  prometheus.Gauge
	outdoorStatus prometheus.Gauge
	modeIndex     prometheus.Gauge
	flowLPM       prometheus.Gauge
	hazardLatched prometheus.Gauge
}

// NewRecorder wires a Recorder into reg (a Prometheus registry) and,
// optionally, a Datadog agent at addr. addr == "" disables the Datadog side
// without disabling the Prometheus side.
func NewRecorder(reg prometheus.Registerer, addr, namespace string, tags []string) *Recorder {
	r := &Recorder{
		namespace: namespace,
		tags:      tags,
		valveOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unit_cooler", Name: "valve_operation_total", Help: "Valve state transitions since process start.",
		}),
		dutyState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "unit_cooler", Name: "valve_state", Help: "1 = OPEN, 0 = CLOSE.",
		}),
		coolerStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "unit_cooler", Name: "cooler_status", Help: "Indoor unit activity score, 0..6.",
		}),
		outdoorStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "unit_cooler", Name: "outdoor_status", Help: "Outdoor weather adjustment, -10..+3.",
		}),
		modeIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "unit_cooler", Name: "mode_index", Help: "Selected cooling profile row, 0..8.",
		}),
		flowLPM: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "unit_cooler", Name: "flow_lpm", Help: "Last observed flow sensor reading, liters/minute.",
		}),
		hazardLatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "unit_cooler", Name: "hazard_latched", Help: "1 while a physical hazard is latched.",
		}),
	}

	if reg != nil {
		reg.MustRegister(r.valveOps, r.dutyState, r.coolerStatus, r.outdoorStatus, r.modeIndex, r.flowLPM, r.hazardLatched)
	}

	if addr != "" {
		client, err := statsd.New(addr)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create dogstatsd client, datadog export disabled")
		} else {
			client.Namespace = namespace + "."
			client.Tags = tags
			r.dogstatsd = client
		}
	}

	return r
}

func (r *Recorder) gauge(name string, value float64, promGauge prometheus.Gauge) {
	promGauge.Set(value)
	if r.dogstatsd != nil {
		if err := r.dogstatsd.Gauge(name, value, nil, 1); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("failed to emit dogstatsd gauge")
		}
	}
}

// ValveOperation records one valve transition.
func (r *Recorder) ValveOperation(open bool) {
	r.valveOps.Inc()
	if r.dogstatsd != nil {
		if err := r.dogstatsd.Count("valve.operation", 1, nil, 1); err != nil {
			log.Warn().Err(err).Msg("failed to emit dogstatsd count")
		}
	}
	state := 0.0
	if open {
		state = 1.0
	}
	r.gauge("valve.state", state, r.dutyState)
}

// Decision records one decision-engine tick's output.
func (r *Recorder) Decision(cooler, outdoor, mode int) {
	r.gauge("cooler.status", float64(cooler), r.coolerStatus)
	r.gauge("outdoor.status", float64(outdoor), r.outdoorStatus)
	r.gauge("mode.index", float64(mode), r.modeIndex)
}

// Flow records a flow sensor observation, in liters/minute.
func (r *Recorder) Flow(lpm float64) {
	r.gauge("flow.lpm", lpm, r.flowLPM)
}

// Hazard records whether the hazard latch is currently set.
func (r *Recorder) Hazard(latched bool) {
	v := 0.0
	if latched {
		v = 1.0
	}
	r.gauge("hazard.latched", v, r.hazardLatched)
}
