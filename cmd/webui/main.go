// Command webui runs the read-only dashboard process: it subscribes to both
// the controller's ControlMessage stream and the actuator's ActuatorStatus
// stream, caches the latest of each, and serves the HTTP/JSON surface the
// front end polls. Endpoints this process cannot answer from its own cache
// (work log, live flow reading) are proxied to the actuator's own log
// server.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kimata/unit-cooler/internal/cliflags"
	"github.com/kimata/unit-cooler/internal/config"
	"github.com/kimata/unit-cooler/internal/logging"
	"github.com/kimata/unit-cooler/internal/model"
	"github.com/kimata/unit-cooler/internal/transport"
	"github.com/kimata/unit-cooler/internal/watering"
	"github.com/kimata/unit-cooler/internal/webui"
	"github.com/kimata/unit-cooler/system/shutdown"
)

func main() {
	cmd := &cobra.Command{Use: "webui", Short: "Dashboard HTTP surface"}
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

	log.Info().Msg("starting webui")

	cache := webui.NewCache()

	controlSub := transport.NewSubscriber("control", fmt.Sprintf("%s:%d", cfg.Controller.Transport.Host, cfg.Controller.Transport.Port))
	statusSub := transport.NewSubscriber("actuator_status", fmt.Sprintf("%s:%d", cfg.Webui.ActuatorHost, cfg.Actuator.StatusPub.Port))

	reg := prometheus.NewRegistry()

	remoteBase := fmt.Sprintf("http://%s:%d", cfg.Webui.ActuatorHost, cfg.Actuator.LogPort)
	srv := webui.New(cache, watering.Fake{Totals: []float64{}}, cfg.Webui.Watering.UnitPrice, nil, nil, nil, reg).
		WithRemoteLog(remoteBase)

	coord := shutdown.NewCoordinator()
	coord.Go(func() {
		err := controlSub.Run(coord.Context(), 0, func(payload []byte) {
			var msg model.ControlMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				log.Warn().Err(err).Msg("received malformed control message")
				return
			}
			cache.SetControlMessage(msg)
		})
		if err != nil && coord.Context().Err() == nil {
			log.Warn().Err(err).Msg("control subscriber exited")
		}
	})
	coord.Go(func() {
		err := statusSub.Run(coord.Context(), 0, func(payload []byte) {
			var status model.ActuatorStatus
			if err := json.Unmarshal(payload, &status); err != nil {
				log.Warn().Err(err).Msg("received malformed actuator status")
				return
			}
			cache.Observe(status)
		})
		if err != nil && coord.Context().Err() == nil {
			log.Warn().Err(err).Msg("actuator status subscriber exited")
		}
	})
	coord.Go(func() {
		if err := srv.Run(coord.Context(), fmt.Sprintf(":%d", cfg.Webui.Port)); err != nil {
			log.Warn().Err(err).Msg("webui server exited")
		}
	})
	coord.Wait()
	return nil
}
