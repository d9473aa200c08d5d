// Command healthz is a short-lived liveness probe: given -c CONFIG and a
// component name, it compares now minus each relevant liveness marker's
// mtime against that worker's expected interval (with a grace factor) and
// exits 0 if every marker is fresh, non-zero otherwise. It is meant to be
// invoked by an external process supervisor (e.g. a container healthcheck),
// not run as a long-lived process.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kimata/unit-cooler/internal/cliflags"
	"github.com/kimata/unit-cooler/internal/config"
	"github.com/kimata/unit-cooler/internal/logging"
	"github.com/kimata/unit-cooler/internal/marker"
)

// graceFactor allows a marker to run this much over its nominal interval
// before the probe calls it stale -- ticks jitter under load, and a probe
// that fires on the very first overrun would flap.
const graceFactor = 2.0

// target is one liveness marker this probe checks, paired with the worker
// interval it must stay within.
type target struct {
	name        string
	file        string
	intervalSec int
}

func main() {
	cmd := &cobra.Command{Use: "healthz COMPONENT", Short: "Liveness probe (controller|actuator|webui)", Args: cobra.ExactArgs(1)}
	v := cliflags.Register(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error { return run(cmd, args[0], v.GetString("config")) }
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, component, configPath string) error {
	if err := logging.Init("/dev/stdout", zerolog.WarnLevel, false); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	targets, err := targetsFor(cfg, component)
	if err != nil {
		return err
	}

	healthy := true
	for _, t := range targets {
		elapsed, err := marker.Elapsed(t.file)
		if err != nil {
			log.Warn().Str("marker", t.name).Str("file", t.file).Err(err).Msg("liveness marker unreadable")
			healthy = false
			continue
		}
		limit := time.Duration(float64(t.intervalSec)*graceFactor) * time.Second
		if elapsed > limit {
			log.Warn().Str("marker", t.name).Dur("elapsed", elapsed).Dur("limit", limit).Msg("liveness marker stale")
			healthy = false
		}
	}

	if component == "webui" {
		if !probeHTTP(cfg.Webui.Port) {
			log.Warn().Int("port", cfg.Webui.Port).Msg("webui HTTP port not responding")
			healthy = false
		}
	}

	if !healthy {
		return fmt.Errorf("component %q is unhealthy", component)
	}
	return nil
}

func targetsFor(cfg config.Config, component string) ([]target, error) {
	switch component {
	case "controller":
		return []target{
			{"controller", cfg.Controller.Liveness.File, cfg.Controller.Liveness.IntervalSec},
		}, nil
	case "actuator":
		return []target{
			{"actuator/subscribe", cfg.Actuator.Subscribe.Liveness.File, cfg.Actuator.Subscribe.Liveness.IntervalSec},
			{"actuator/control", cfg.Actuator.Control.Liveness.File, cfg.Actuator.Control.IntervalSec},
			{"actuator/monitor", cfg.Actuator.Monitor.Liveness.File, cfg.Actuator.Monitor.IntervalSec},
		}, nil
	case "webui":
		return []target{
			{"webui/subscribe", cfg.Webui.Subscribe.Liveness.File, cfg.Webui.Subscribe.Liveness.IntervalSec},
		}, nil
	default:
		return nil, fmt.Errorf("unknown component %q, want controller|actuator|webui", component)
	}
}

func probeHTTP(port int) bool {
	client := http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/api/stat", port))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
