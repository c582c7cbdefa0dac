// Package uartlog is the kernel's leveled debug logger, replacing
// scattered uartPuts("DEBUG: ...") breadcrumbs with a single Logger
// that gates by verbosity level from internal/bootcfg.Config and
// writes through uart.Device.
package uartlog

import (
	"fmt"

	"pikernel/internal/uart"
)

// Level is a log verbosity tier; higher is more verbose.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// Logger writes leveled messages to a uart.Device, dropping anything
// above the configured verbosity.
type Logger struct {
	dev       uart.Device
	verbosity Level
}

// New returns a Logger writing to dev, gated at verbosity.
func New(dev uart.Device, verbosity Level) *Logger {
	return &Logger{dev: dev, verbosity: verbosity}
}

func (l *Logger) writeString(s string) {
	for i := 0; i < len(s); i++ {
		l.dev.Putc(s[i])
	}
}

func (l *Logger) log(level Level, prefix, format string, args ...any) {
	if level > l.verbosity {
		return
	}
	l.writeString(prefix)
	l.writeString(fmt.Sprintf(format, args...))
	l.writeString("\r\n")
}

func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, "ERROR: ", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, "WARN: ", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, "INFO: ", format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, "DEBUG: ", format, args...) }
