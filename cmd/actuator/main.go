// Command actuator runs the valve-control side of the system: it subscribes
// to the controller's ControlMessage stream, drives the solenoid valve
// accordingly, watches the flow sensor for leaks and stuck valves, and
// serves a small HTTP surface (work log, valve status, flow reading) the
// WebUI can consult directly or by proxy.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kimata/unit-cooler/internal/cliflags"
	"github.com/kimata/unit-cooler/internal/clock"
	"github.com/kimata/unit-cooler/internal/config"
	"github.com/kimata/unit-cooler/internal/errs"
	"github.com/kimata/unit-cooler/internal/flowmonitor"
	"github.com/kimata/unit-cooler/internal/flowsensor"
	"github.com/kimata/unit-cooler/internal/gpio"
	"github.com/kimata/unit-cooler/internal/hazard"
	"github.com/kimata/unit-cooler/internal/logging"
	"github.com/kimata/unit-cooler/internal/metrics"
	"github.com/kimata/unit-cooler/internal/model"
	"github.com/kimata/unit-cooler/internal/notify"
	"github.com/kimata/unit-cooler/internal/supervisor"
	"github.com/kimata/unit-cooler/internal/transport"
	"github.com/kimata/unit-cooler/internal/valve"
	"github.com/kimata/unit-cooler/internal/watering"
	"github.com/kimata/unit-cooler/internal/webui"
	"github.com/kimata/unit-cooler/internal/worklog"
	"github.com/kimata/unit-cooler/system/shutdown"
	"github.com/kimata/unit-cooler/system/startup"
)

func main() {
	cmd := &cobra.Command{Use: "actuator", Short: "Valve control and flow monitoring"}
	v := cliflags.Register(cmd)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error { return run(cmd, v) }
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, v *viper.Viper) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = config.ApplyOverrides(cfg, v)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	if err := logging.Init("/dev/stdout", level, cfg.Debug); err != nil {
		return err
	}

	work := worklog.New(0)
	log.Logger = log.Logger.Hook(work)

	log.Info().Bool("dummy", cfg.Dummy).Msg("starting actuator")

	notifier := buildNotifier(cfg)
	var events notify.EventSink
	if mqttNotifier, ok := notifier.(*notify.MQTTNotifier); ok {
		events = mqttNotifier
	}

	reg := prometheus.NewRegistry()
	var ddAddr string
	if cfg.Datadog.Enable {
		ddAddr = fmt.Sprintf("%s:%d", cfg.Datadog.Host, cfg.Datadog.Port)
	}
	recorder := metrics.NewRecorder(reg, ddAddr, "unit_cooler.actuator", nil)

	if err := startup.ValidateValvePin(cfg.ValvePin, cfg.Dummy); err != nil {
		return err
	}

	output := gpio.NewPinctrlOutput(cfg.ValvePin, cfg.Dummy)
	valveCtrl := valve.New(output, cfg.Actuator.ValveDir, recorder, cfg.Dummy)

	hazardReg := hazard.New(cfg.Actuator.Control.Hazard.File, notifier, events)

	var sensor flowmonitor.FlowSensor
	if cfg.Dummy {
		sensor = flowsensor.NewDummy(time.Now().UnixNano())
	} else {
		sensor = flowsensor.NewSerial(unwiredSerialReader{})
	}
	monitor := flowmonitor.New(sensor, valveCtrl, hazardReg, flowmonitor.Config{
		OnMax:       cfg.Actuator.Monitor.OnMax,
		OnMin:       cfg.Actuator.Monitor.OnMin,
		OffMax:      cfg.Actuator.Monitor.OffMax,
		PowerOffSec: cfg.Actuator.Monitor.PowerOffSec,
		Giveup:      cfg.Actuator.Monitor.Giveup,
	})

	subscriber := transport.NewSubscriber("control", fmt.Sprintf("%s:%d", cfg.Controller.Transport.Host, cfg.Controller.Transport.Port))

	var clk clock.Clock = clock.Real{}
	if cfg.SpeedUp > 1 {
		clk = clock.SpeedUp{Clock: clock.Real{}, Factor: cfg.SpeedUp}
	}

	sup := supervisor.NewActuatorSupervisor(subscriber, valveCtrl, hazardReg, monitor, recorder, notifier,
		cfg.Actuator.Subscribe.Liveness.File, cfg.Actuator.Control.Liveness.File, cfg.Actuator.Monitor.Liveness.File,
		time.Duration(cfg.Actuator.Control.IntervalSec)*time.Second, time.Duration(cfg.Actuator.Monitor.IntervalSec)*time.Second,
		clk)

	statusPublisher, err := transport.NewPublisher("actuator_status", fmt.Sprintf("%s:%d", cfg.Actuator.StatusPub.Host, cfg.Actuator.StatusPub.Port))
	if err != nil {
		return fmt.Errorf("starting status publisher: %w", err)
	}
	defer statusPublisher.Close()
	sup.AddObserver(statusObserver{publisher: statusPublisher})

	srv := webui.New(nil, watering.Fake{}, 0, valveCtrl, monitor, work, reg)

	coord := shutdown.NewCoordinator()
	coord.Go(func() { sup.RunSubscribeWorker(coord.Context(), cfg.MsgCount) })
	coord.Go(func() { sup.RunControlWorker(coord.Context(), time.Duration(cfg.Controller.IntervalSec)*time.Second) })
	coord.Go(func() { sup.RunMonitorWorker(coord.Context()) })
	coord.Go(func() {
		if err := srv.Run(coord.Context(), fmt.Sprintf(":%d", cfg.Actuator.LogPort)); err != nil {
			log.Warn().Err(err).Msg("actuator log server exited")
		}
	})
	coord.Wait()
	return nil
}

// statusObserver publishes every applied ActuatorStatus onto the secondary
// status topic so the WebUI (and any other subscriber) can follow valve
// state without polling the log server.
type statusObserver struct {
	publisher *transport.Publisher
}

func (o statusObserver) Observe(status model.ActuatorStatus) {
	if err := o.publisher.Publish(status); err != nil {
		log.Warn().Err(err).Msg("failed to publish actuator status")
	}
}

// unwiredSerialReader backs the production flow meter when no physical
// serial bus driver is configured: every read reports the sensor
// unreachable, which flowmonitor already treats as a degrade-and-escalate
// condition rather than a fatal one.
type unwiredSerialReader struct{}

func (unwiredSerialReader) ReadLPM(ctx context.Context) (float64, error) {
	return 0, fmt.Errorf("%w: no serial flow meter driver configured", errs.ErrDownstreamIO)
}

func (unwiredSerialReader) PowerOn(context.Context) error  { return nil }
func (unwiredSerialReader) PowerOff(context.Context) error { return nil }

func buildNotifier(cfg config.Config) notify.Notifier {
	if !cfg.MQTT.Enable {
		return notify.LogNotifier{}
	}
	client := notify.NewClient(cfg.MQTT.Broker, "unit-cooler-actuator-"+cfg.MQTT.ClientIDSeed)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Warn().Err(token.Error()).Msg("failed to connect to MQTT broker, falling back to log notifier")
		return notify.LogNotifier{}
	}
	return notify.NewMQTTNotifier(client, cfg.MQTT.AlertTopic, cfg.MQTT.StatusTopic)
}
