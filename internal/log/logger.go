// SPDX-License-Identifier: MIT

// Package log is the process-wide leveled logger. The level is stored
// atomically so it can be changed while the engine runs. The audio
// callback never logs; everything else may.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

func (l LogLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel accepts a level name in any case, plus "warning". Unknown
// names yield LevelInfo and false.
func ParseLevel(name string) (LogLevel, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "WARNING" {
		return LevelWarn, true
	}
	for l, n := range levelNames {
		if n == name {
			return LogLevel(l), true
		}
	}
	return LevelInfo, false
}

// --- Global Logger State ---

var currentLevel atomic.Uint32 // LogLevel

// logger writes date and time with microseconds.
var logger = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

// exit is replaced in tests.
var exit = os.Exit

func init() {
	SetLevel(LevelInfo)
}

// SetLevel changes the minimum level emitted. Safe for concurrent use.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel returns the minimum level emitted.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects log output, e.g. away from the terminal while the
// monitor owns it.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Writer returns the current log destination.
func Writer() io.Writer {
	return logger.Writer()
}

// Enabled reports whether messages at level are currently emitted. Use it
// to skip building expensive arguments.
func Enabled(level LogLevel) bool {
	return level >= GetLevel()
}

func output(level LogLevel, msg string) {
	// Pad so messages line up after "[DEBUG]" and "[ERROR]".
	pad := ""
	if len(level.String()) < 5 {
		pad = " "
	}
	logger.Printf("[%s]%s %s", level, pad, msg)
}

// --- Public Logging Functions ---

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...any) {
	if Enabled(LevelDebug) {
		output(LevelDebug, fmt.Sprintf(format, v...))
	}
}

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...any) {
	if Enabled(LevelInfo) {
		output(LevelInfo, fmt.Sprintf(format, v...))
	}
}

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...any) {
	if Enabled(LevelWarn) {
		output(LevelWarn, fmt.Sprintf(format, v...))
	}
}

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...any) {
	if Enabled(LevelError) {
		output(LevelError, fmt.Sprintf(format, v...))
	}
}

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...any) {
	output(LevelFatal, fmt.Sprintf(format, v...))
	exit(1)
}
