// Package config loads the static topology (GPIO pins, thresholds, marker
// paths, durations) from a TOML file and layers CLI flags and environment
// variables on top via viper, producing a single validated Config that every
// process entry point shares.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/kimata/unit-cooler/internal/errs"
	"github.com/kimata/unit-cooler/internal/model"
)

// LivenessTarget is one liveness-marker file plus the interval its owning
// worker is expected to touch it at.
type LivenessTarget struct {
	File        string `toml:"file"`
	IntervalSec int    `toml:"interval_sec"`
}

type transportConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	IdleTimeoutSec int    `toml:"idle_timeout_sec"`
}

type controllerConfig struct {
	IntervalSec int             `toml:"interval_sec"`
	Liveness    LivenessTarget  `toml:"liveness"`
	Transport   transportConfig `toml:"transport"`
	Dummy       bool            `toml:"dummy"`
}

type hazardConfig struct {
	File string `toml:"file"`
}

type controlWorkerConfig struct {
	IntervalSec int            `toml:"interval_sec"`
	Liveness    LivenessTarget `toml:"liveness"`
	Hazard      hazardConfig   `toml:"hazard"`
}

type monitorWorkerConfig struct {
	IntervalSec int            `toml:"interval_sec"`
	Liveness    LivenessTarget `toml:"liveness"`
	OnMax       []float64      `toml:"on_max"`
	OnMin       float64        `toml:"on_min"`
	OffMax      float64        `toml:"off_max"`
	PowerOffSec float64        `toml:"power_off_sec"`
	Giveup      int            `toml:"giveup"`
}

type subscribeWorkerConfig struct {
	Liveness LivenessTarget `toml:"liveness"`
}

type statusPubConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type actuatorConfig struct {
	Subscribe  subscribeWorkerConfig `toml:"subscribe"`
	Control    controlWorkerConfig   `toml:"control"`
	Monitor    monitorWorkerConfig   `toml:"monitor"`
	StatusPub  statusPubConfig       `toml:"status_pub"`
	ValveDir   string                `toml:"valve_dir"`
	MetricsTag string                `toml:"metrics_tag"`
	LogPort    int                   `toml:"log_port"`
}

type wateringConfig struct {
	UnitPrice float64 `toml:"unit_price"`
}

type webuiConfig struct {
	Port         int                   `toml:"port"`
	Subscribe    subscribeWorkerConfig `toml:"subscribe"`
	Watering     wateringConfig        `toml:"watering"`
	ActuatorHost string                `toml:"actuator_host"`
}

type datadogConfig struct {
	Enable bool   `toml:"enable"`
	Host   string `toml:"host"`
	Port   int    `toml:"port"`
}

type mqttConfig struct {
	Enable       bool   `toml:"enable"`
	Broker       string `toml:"broker"`
	AlertTopic   string `toml:"alert_topic"`
	StatusTopic  string `toml:"status_topic"`
	ClientIDSeed string `toml:"client_id_seed"`
}

// Config is the fully-resolved, validated configuration shared by every
// process in this system.
type Config struct {
	ValvePin   model.GPIOPin    `toml:"valve_pin"`
	Thresholds model.Thresholds `toml:"thresholds"`

	Controller controllerConfig `toml:"controller"`
	Actuator   actuatorConfig   `toml:"actuator"`
	Webui      webuiConfig      `toml:"webui"`

	Datadog datadogConfig `toml:"datadog"`
	MQTT    mqttConfig    `toml:"mqtt"`

	MsgCount int     `toml:"-"`
	SpeedUp  float64 `toml:"-"`
	Dummy    bool    `toml:"-"`
	Debug    bool    `toml:"-"`
}

// Default returns the configuration this system has always shipped with,
// used as the TOML decode target so unset fields keep a sane value, and
// directly by tests and dummy mode.
func Default() Config {
	return Config{
		ValvePin:   model.GPIOPin{Number: 17, ActiveHigh: true},
		Thresholds: model.DefaultThresholds(),
		Controller: controllerConfig{
			IntervalSec: 60,
			Liveness:    LivenessTarget{File: "/dev/shm/unit_cooler/liveness/controller", IntervalSec: 60},
			Transport:   transportConfig{Host: "0.0.0.0", Port: 2222, IdleTimeoutSec: 180},
			Dummy:       false,
		},
		Actuator: actuatorConfig{
			Subscribe: subscribeWorkerConfig{
				Liveness: LivenessTarget{File: "/dev/shm/unit_cooler/liveness/actuator_subscribe", IntervalSec: 60},
			},
			Control: controlWorkerConfig{
				IntervalSec: 30,
				Liveness:    LivenessTarget{File: "/dev/shm/unit_cooler/liveness/actuator_control", IntervalSec: 30},
				Hazard:      hazardConfig{File: "/dev/shm/unit_cooler/hazard"},
			},
			Monitor: monitorWorkerConfig{
				IntervalSec: 10,
				Liveness:    LivenessTarget{File: "/dev/shm/unit_cooler/liveness/actuator_monitor", IntervalSec: 10},
				OnMax:       []float64{5.0, 6.0, 7.0, 8.0},
				OnMin:       0.5,
				OffMax:      0.2,
				PowerOffSec: 300,
				Giveup:      30,
			},
			StatusPub: statusPubConfig{Host: "0.0.0.0", Port: 2224},
			ValveDir:  "/dev/shm/unit_cooler/valve",
			LogPort:   5001,
		},
		Webui: webuiConfig{
			Port: 5000,
			Subscribe: subscribeWorkerConfig{
				Liveness: LivenessTarget{File: "/dev/shm/unit_cooler/liveness/webui_subscribe", IntervalSec: 60},
			},
			Watering:     wateringConfig{UnitPrice: 0.35},
			ActuatorHost: "127.0.0.1",
		},
		Datadog: datadogConfig{Enable: false, Host: "127.0.0.1", Port: 8125},
		MQTT:    mqttConfig{Enable: false, AlertTopic: "unit_cooler/alert", StatusTopic: "unit_cooler/actuator_status"},
	}
}

// Load reads path as TOML over the default configuration. A missing file is
// not an error at this layer -- Load returns defaults -- callers that want
// the file to be mandatory should stat it first.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("%w: reading %s: %w", errs.ErrConfigInvalid, path, err)
	}

	if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %w", errs.ErrConfigInvalid, path, err)
	}
	return cfg, nil
}

// ApplyOverrides layers CLI flags (already bound into v by cliflags.Register)
// and the environment variables this system has always honored
// (HEMS_CONTROL_HOST, HEMS_PUB_PORT, HEMS_LOG_PORT, HEMS_STATUS_PUB_PORT,
// DUMMY_MODE) on top of the file-sourced Config. TEST is bound by
// cliflags.Register but not read here.
func ApplyOverrides(cfg Config, v *viper.Viper) Config {
	if v.IsSet("port") && v.GetInt("port") != 0 {
		cfg.Webui.Port = v.GetInt("port")
	}
	cfg.MsgCount = v.GetInt("msg-count")
	if v.IsSet("speedup") && v.GetFloat64("speedup") > 0 {
		cfg.SpeedUp = v.GetFloat64("speedup")
	} else {
		cfg.SpeedUp = 1.0
	}
	cfg.Dummy = v.GetBool("dummy") || v.GetString("DUMMY_MODE") == "true"
	cfg.Debug = v.GetBool("debug")

	if host := v.GetString("HEMS_CONTROL_HOST"); host != "" {
		cfg.Controller.Transport.Host = host
	}
	if port := v.GetInt("HEMS_PUB_PORT"); port != 0 {
		cfg.Controller.Transport.Port = port
	}
	if port := v.GetInt("HEMS_STATUS_PUB_PORT"); port != 0 {
		cfg.Actuator.StatusPub.Port = port
	}
	if port := v.GetInt("HEMS_LOG_PORT"); port != 0 {
		cfg.Actuator.LogPort = port
	}
	return cfg
}

// Validate fails fast on a configuration this system cannot safely run
// with. It is the only place a ConfigInvalid error is expected to
// originate after the file has already parsed.
func (cfg Config) Validate() error {
	var problems []string

	if cfg.ValvePin.Number <= 0 {
		problems = append(problems, "valve_pin.pin must be a positive BCM pin number")
	}
	if cfg.Controller.IntervalSec <= 0 {
		problems = append(problems, "controller.interval_sec must be positive")
	}
	if cfg.Actuator.Control.IntervalSec <= 0 {
		problems = append(problems, "actuator.control.interval_sec must be positive")
	}
	if cfg.Actuator.Monitor.IntervalSec <= 0 {
		problems = append(problems, "actuator.monitor.interval_sec must be positive")
	}
	if cfg.Actuator.Control.Hazard.File == "" {
		problems = append(problems, "actuator.control.hazard.file must be set")
	}
	if cfg.Actuator.ValveDir == "" {
		problems = append(problems, "actuator.valve_dir must be set")
	}
	for _, lt := range []LivenessTarget{
		cfg.Controller.Liveness,
		cfg.Actuator.Subscribe.Liveness,
		cfg.Actuator.Control.Liveness,
		cfg.Actuator.Monitor.Liveness,
		cfg.Webui.Subscribe.Liveness,
	} {
		if lt.File == "" {
			problems = append(problems, "every liveness target requires a file path")
			break
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %v", errs.ErrConfigInvalid, problems)
	}
	return nil
}
