// Package telemetry wires the pipeline's ProgressFunc callback into
// structured logging, the way stormlightlabs-baseball's middleware.Logger
// wires an http.Handler into the same charmbracelet/log.Logger.
package telemetry

import (
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jhw/outrights-predict/pkg/outrights"
)

// New returns a charmbracelet/log.Logger configured for CLI output: report
// caller off, timestamp on, level from the OUTRIGHTS_LOG_LEVEL env var
// (info if unset or unrecognized).
func New() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	if lvl, err := log.ParseLevel(os.Getenv("OUTRIGHTS_LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

// Progress adapts a *log.Logger into an outrights.ProgressFunc, logging
// each pipeline stage transition at info level.
func Progress(logger *log.Logger) outrights.ProgressFunc {
	return func(stage, detail string) {
		logger.Info(detail, "stage", stage)
	}
}
