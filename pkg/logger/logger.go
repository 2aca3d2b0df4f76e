package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type LogLevel int

const (
	ERROR LogLevel = iota
	WARN
	INFO
	DEBUG
)

const (
	APP     = "APP"
	AUTH    = "AUTH"
	CLIENT  = "CLIENT"
	CONFIG  = "CONFIG"
	HANDLER = "HANDLER"
	OAUTH   = "OAUTH"
	REDIS   = "REDIS"
	SERVICE = "SERVICE"
	STORE   = "STORE"
	TOOLS   = "TOOLS"
)

var (
	mu           sync.RWMutex
	currentLevel = getLogLevel()
	base         = newZerolog(os.Stderr, os.Getenv("LOG_FORMAT"))
)

// Logs always go to stderr by default; stdout carries the stdio MCP transport.
func newZerolog(w io.Writer, format string) zerolog.Logger {
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func getLogLevel() LogLevel {
	return parseLevel(os.Getenv("LOG_LEVEL"))
}

func parseLevel(value string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Configure sets the level and output format. The global zerolog logger is
// pointed at the same writer so packages using zerolog/log directly agree.
func Configure(level, format string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}

	mu.Lock()
	defer mu.Unlock()

	currentLevel = parseLevel(level)
	base = newZerolog(w, format)
	zerolog.SetGlobalLevel(currentLevel.zerolog())
	log.Logger = base
}

// Zerolog returns the underlying logger tagged with a namespace.
func Zerolog(namespace string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("namespace", namespace).Logger()
}

func write(level LogLevel, zl zerolog.Level, namespace, format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()

	if currentLevel < level {
		return
	}
	base.WithLevel(zl).Str("namespace", namespace).Msg(fmt.Sprintf(format, v...))
}

func Debug(namespace, format string, v ...interface{}) {
	write(DEBUG, zerolog.DebugLevel, namespace, format, v...)
}

func Info(namespace, format string, v ...interface{}) {
	write(INFO, zerolog.InfoLevel, namespace, format, v...)
}

func Warn(namespace, format string, v ...interface{}) {
	write(WARN, zerolog.WarnLevel, namespace, format, v...)
}

func Error(namespace, format string, v ...interface{}) {
	write(ERROR, zerolog.ErrorLevel, namespace, format, v...)
}

// Fatal logs at fatal level. It does not exit; callers decide how to stop.
func Fatal(namespace, format string, v ...interface{}) {
	write(ERROR, zerolog.FatalLevel, namespace, format, v...)
}
