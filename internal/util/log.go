// Package util provides logging, traffic counters and client identity
// helpers shared by the driver and the CLI.
package util

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "15:04:05.000"
	pterm.DefaultLogger.MaxWidth = 1000
}

// Log lines go through pterm's default logger, stdout unless redirected
// with SetLogOutput. Printf-style arguments are formatted before the
// level check so callers never pass pterm argument lists.

func logf(level pterm.LogLevel, format string, args []interface{}) {
	l := pterm.DefaultLogger
	if !l.CanPrint(level) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	switch level {
	case pterm.LogLevelDebug:
		l.Debug(msg)
	case pterm.LogLevelWarn:
		l.Warn(msg)
	case pterm.LogLevelError:
		l.Error(msg)
	default:
		l.Info(msg)
	}
}

func LogDebug(format string, args ...interface{}) { logf(pterm.LogLevelDebug, format, args) }

func LogInfo(format string, args ...interface{}) { logf(pterm.LogLevelInfo, format, args) }

func LogWarning(format string, args ...interface{}) { logf(pterm.LogLevelWarn, format, args) }

func LogError(format string, args ...interface{}) { logf(pterm.LogLevelError, format, args) }

// LogSuccess marks a completed milestone, such as an accepted subscription,
// with pterm's SUCCESS prefix. It is shown at info level.
func LogSuccess(format string, args ...interface{}) {
	if !pterm.DefaultLogger.CanPrint(pterm.LogLevelInfo) {
		return
	}
	pterm.Success.WithWriter(pterm.DefaultLogger.Writer).Println(fmt.Sprintf(format, args...))
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}

// SetLogOutput redirects log lines, e.g. to io.Discard in tests.
func SetLogOutput(w io.Writer) {
	pterm.DefaultLogger.Writer = w
}
