// Package logging builds the structured loggers shared by every component.
package logging

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a logfmt logger writing to w at lvl.
func New(w io.Writer, lvl log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Formatter:       log.LogfmtFormatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
}

// Component returns a child logger tagged with component=name.
func Component(parent *log.Logger, name string) *log.Logger {
	if parent == nil {
		parent = log.Default()
	}
	return parent.With("component", name)
}

// Discard is a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
