// Command controller runs the sensing/decision side of the system: it
// gathers a sense snapshot every interval_sec, scores it with the decision
// engine, and publishes the resulting ControlMessage for the actuator and
// WebUI to subscribe to.
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

	"github.com/kimata/unit-cooler/internal/anomaly"
	"github.com/kimata/unit-cooler/internal/cliflags"
	"github.com/kimata/unit-cooler/internal/clock"
	"github.com/kimata/unit-cooler/internal/config"
	"github.com/kimata/unit-cooler/internal/gpio"
	"github.com/kimata/unit-cooler/internal/logging"
	"github.com/kimata/unit-cooler/internal/metrics"
	"github.com/kimata/unit-cooler/internal/model"
	"github.com/kimata/unit-cooler/internal/notify"
	"github.com/kimata/unit-cooler/internal/sensorsource"
	"github.com/kimata/unit-cooler/internal/supervisor"
	"github.com/kimata/unit-cooler/internal/transport"
	"github.com/kimata/unit-cooler/system/shutdown"
)

func main() {
	cmd := &cobra.Command{Use: "controller", Short: "Sensing and decision loop"}
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

	log.Info().Bool("dummy", cfg.Dummy).Float64("speedup", cfg.SpeedUp).Msg("starting controller")

	notifier := buildNotifier(cfg)

	reg := prometheus.NewRegistry()
	var ddAddr string
	if cfg.Datadog.Enable {
		ddAddr = fmt.Sprintf("%s:%d", cfg.Datadog.Host, cfg.Datadog.Port)
	}
	recorder := metrics.NewRecorder(reg, ddAddr, "unit_cooler.controller", nil)

	publisher, err := transport.NewPublisher("control", fmt.Sprintf("%s:%d", cfg.Controller.Transport.Host, cfg.Controller.Transport.Port))
	if err != nil {
		return fmt.Errorf("starting publisher: %w", err)
	}
	defer publisher.Close()

	var clk clock.Clock = clock.Real{}
	if cfg.SpeedUp > 1 {
		clk = clock.SpeedUp{Clock: clock.Real{}, Factor: cfg.SpeedUp}
	}

	loop := supervisor.NewControllerLoop(buildSensorSource(), cfg.Thresholds, publisher, recorder, notifier,
		cfg.Controller.Liveness.File, time.Duration(cfg.Controller.IntervalSec)*time.Second, cfg.Dummy, clk)

	coord := shutdown.NewCoordinator()
	coord.Go(func() { loop.Run(coord.Context(), cfg.MsgCount) })
	coord.Wait()
	return nil
}

func buildNotifier(cfg config.Config) notify.Notifier {
	if !cfg.MQTT.Enable {
		return notify.LogNotifier{}
	}
	client := notify.NewClient(cfg.MQTT.Broker, "unit-cooler-controller-"+cfg.MQTT.ClientIDSeed)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Warn().Err(token.Error()).Msg("failed to connect to MQTT broker, falling back to log notifier")
		return notify.LogNotifier{}
	}
	return notify.NewMQTTNotifier(client, cfg.MQTT.AlertTopic, cfg.MQTT.StatusTopic)
}

// buildSensorSource wires the one channel this deployment can read without a
// time-series database in front of it: the outdoor one-wire probe. The
// original system's other channels (humidity, solar radiation, lux, rain,
// grid power) were backed by a shared InfluxDB instance outside this
// system's scope; those channels are intentionally left unwired here, and
// the decision engine already treats an absent reading as "unknown" rather
// than fatal.
func buildSensorSource() *sensorsource.Source {
	outdoorFilter := anomaly.New(anomaly.DefaultConfig())

	return sensorsource.New([]sensorsource.Channel{
		{
			Kind: model.KindTemp, Name: "outdoor",
			Fetch: func(context.Context) (*float64, error) {
				raw, err := gpio.ReadOneWireTempC("/sys/bus/w1/devices/28-outdoor", 3)
				if err != nil {
					return nil, err
				}
				value, disabled := outdoorFilter.Accept(raw, time.Now())
				if disabled {
					return nil, nil
				}
				return &value, nil
			},
		},
	})
}
