package config

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// ParseLevel maps debug, info, warn and error onto log levels.
func ParseLevel(s string) (log.Level, error) {
	if s == "" {
		return log.InfoLevel, nil
	}
	l, err := log.ParseLevel(s)
	if err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", s, err)
	}
	return l, nil
}

// NewLogger creates a timestamped logger writing to w at level.
func NewLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// Logger builds the service logger from LogLevel. Validate has already
// rejected unknown levels.
func (c Config) Logger(w io.Writer) *log.Logger {
	level, _ := ParseLevel(c.LogLevel)
	return NewLogger(w, level)
}
