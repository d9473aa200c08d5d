// Package cliflags registers the flag set shared by every entry point in
// this system -- controller, actuator, webui, and healthz all accept the
// same six flags, so the binding lives in one place instead of four.
package cliflags

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Register adds -c/-p/-n/-t/-d/-D to cmd and returns a *viper.Viper with
// them bound, plus the environment variables this system has always
// honored layered on top. Callers pass the result to config.ApplyOverrides.
func Register(cmd *cobra.Command) *viper.Viper {
	f := cmd.Flags()
	f.StringP("config", "c", "", "path to the TOML configuration file")
	f.IntP("port", "p", 0, "override the WebUI HTTP port, webui.port (0 = use config)")
	f.IntP("msg-count", "n", 0, "stop after emitting this many messages (0 = unbounded)")
	f.Float64P("speedup", "t", 0, "time acceleration factor for dummy mode (0 = real time)")
	f.BoolP("dummy", "d", false, "run in dummy mode, generating synthetic data instead of reading hardware")
	f.BoolP("debug", "D", false, "enable debug-level logging to stderr")

	v := viper.New()
	_ = v.BindPFlag("config", f.Lookup("config"))
	_ = v.BindPFlag("port", f.Lookup("port"))
	_ = v.BindPFlag("msg-count", f.Lookup("msg-count"))
	_ = v.BindPFlag("speedup", f.Lookup("speedup"))
	_ = v.BindPFlag("dummy", f.Lookup("dummy"))
	_ = v.BindPFlag("debug", f.Lookup("debug"))

	v.SetEnvPrefix("HEMS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// DUMMY_MODE and TEST are carried over from this system's original
	// environment-variable surface, unprefixed.
	_ = v.BindEnv("DUMMY_MODE", "DUMMY_MODE")
	_ = v.BindEnv("TEST", "TEST")
	_ = v.BindEnv("HEMS_CONTROL_HOST", "HEMS_CONTROL_HOST")
	_ = v.BindEnv("HEMS_PUB_PORT", "HEMS_PUB_PORT")
	_ = v.BindEnv("HEMS_LOG_PORT", "HEMS_LOG_PORT")
	_ = v.BindEnv("HEMS_STATUS_PUB_PORT", "HEMS_STATUS_PUB_PORT")

	return v
}
