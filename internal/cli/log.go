// Package cli implements the growtree command-line interface.
//
// The commands load a graph document (from a JSON file or Neo4j), drive the
// reveal scheduler over it, and either animate the run in the terminal,
// render it to a file, serve it over HTTP, or publish it to NATS.
//
// # Commands
//
//   - play: Animate a run in the terminal
//   - render: Run to completion and write SVG, DOT, PDF, PNG or a JSON timeline
//   - serve: Serve the document and runs over HTTP
//   - fetch: Load a document from Neo4j into a JSON file
//   - watch: Print run events published to NATS
//   - cache: Manage the render and document cache
//
// # Logging
//
// Every command logs through the CLI's charmbracelet/log logger, which is
// also handed to the scheduler, the Neo4j source and the HTTP server.
// --verbose (-v) lowers the level to debug, which adds per-tick scheduler
// output and per-request server lines.
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a logger writing to w at level, with "HH:MM:SS.ms"
// timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stopwatch logs how long a command's work took.
type stopwatch struct {
	logger *log.Logger
	start  time.Time
}

func startStopwatch(l *log.Logger) *stopwatch {
	return &stopwatch{logger: l, start: time.Now()}
}

// done logs msg at info level with the elapsed time, rounded to the
// millisecond.
func (s *stopwatch) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(s.start).Round(time.Millisecond))
	s.logger.Info(msg, keyvals...)
}
