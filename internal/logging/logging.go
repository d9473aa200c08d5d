// Package logging initializes the process-global zerolog logger every
// worker in this system logs through.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init opens logPath for structured JSON logging at level, additionally
// writing a colorized human-readable stream to stderr when debug is true
// and stderr is a terminal.
func Init(logPath string, level zerolog.Level, debug bool) error {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	var writer io.Writer = logFile
	if debug && isatty.IsTerminal(os.Stderr.Fd()) {
		console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		writer = zerolog.MultiLevelWriter(logFile, console)
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	log.Logger = logger

	if level == zerolog.DebugLevel {
		log.Debug().Msg("log level set to DEBUG")
	}
	return nil
}

// For is a convenience for tagging a worker's logs with its component and
// role, matching this system's "one sub-logger per goroutine" convention.
func For(component, role string) zerolog.Logger {
	return log.With().Str("component", component).Str("role", role).Logger()
}
