// Package logx adds a level gate in front of the standard logger.
// Components keep their "[component]" prefixes; only the verbosity is
// configurable.
package logx

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

// Level is a logging threshold.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var current atomic.Int32

func init() {
	current.Store(int32(LevelInfo))
}

// ParseLevel maps a config string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// SetLevel changes the process-wide threshold.
func SetLevel(l Level) { current.Store(int32(l)) }

// Enabled reports whether messages at l are printed.
func Enabled(l Level) bool { return l >= Level(current.Load()) }

// Debugf logs only at debug level.
func Debugf(format string, args ...any) { logf(LevelDebug, format, args...) }

// Infof logs at info level and above.
func Infof(format string, args ...any) { logf(LevelInfo, format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { logf(LevelWarn, format, args...) }

func logf(l Level, format string, args ...any) {
	if Enabled(l) {
		log.Output(3, fmt.Sprintf(format, args...))
	}
}
