package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level is the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var levelColors = map[Level]string{
	DEBUG: "\033[36m", // cyan
	INFO:  "\033[32m", // green
	WARN:  "\033[33m", // yellow
	ERROR: "\033[31m", // red
}

// Logger is a leveled logger with an optional per-component prefix.
// Sub-loggers created with WithPrefix share the underlying writer, so a
// connection-scoped logger is cheap to derive.
type Logger struct {
	mu           sync.RWMutex
	level        Level
	enableColors bool
	prefix       string
	stdLogger    *log.Logger
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init configures the default logger from the environment:
//   - LOG_LEVEL: DEBUG, INFO, WARN or ERROR (default INFO)
//   - LOG_COLOR: set to "false" or "0" to disable ANSI colors
func Init() {
	once.Do(func() {
		level := INFO
		switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
		case "DEBUG":
			level = DEBUG
		case "WARN", "WARNING":
			level = WARN
		case "ERROR":
			level = ERROR
		}

		colors := true
		if v := os.Getenv("LOG_COLOR"); v == "false" || v == "0" {
			colors = false
		}

		defaultLogger = New(level, os.Stdout, colors, "")
	})
}

// New creates a Logger writing to output.
func New(level Level, output io.Writer, enableColors bool, prefix string) *Logger {
	return &Logger{
		level:        level,
		enableColors: enableColors,
		prefix:       prefix,
		stdLogger:    log.New(output, "", log.LstdFlags|log.Lmicroseconds),
	}
}

// SetLevel changes the minimum level emitted by this logger.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) enabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if !l.enabled(level) {
		return
	}

	msg := fmt.Sprintf(format, args...)
	name := levelNames[level]

	var line string
	switch {
	case l.enableColors && l.prefix != "":
		line = fmt.Sprintf("%s[%s]\033[0m [%s] %s", levelColors[level], name, l.prefix, msg)
	case l.enableColors:
		line = fmt.Sprintf("%s[%s]\033[0m %s", levelColors[level], name, msg)
	case l.prefix != "":
		line = fmt.Sprintf("[%s] [%s] %s", name, l.prefix, msg)
	default:
		line = fmt.Sprintf("[%s] %s", name, msg)
	}

	_ = l.stdLogger.Output(3, line)
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(DEBUG, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(INFO, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(WARN, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(ERROR, format, args...) }

// WithPrefix derives a logger whose lines are tagged with prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Logger{
		level:        l.level,
		enableColors: l.enableColors,
		prefix:       prefix,
		stdLogger:    l.stdLogger,
	}
}

// GetDefault returns the process-wide logger, initializing it on first use.
func GetDefault() *Logger {
	if defaultLogger == nil {
		Init()
	}
	return defaultLogger
}

// WithPrefix derives a prefixed logger from the default logger.
func WithPrefix(prefix string) *Logger { return GetDefault().WithPrefix(prefix) }

func Debug(format string, args ...interface{}) { GetDefault().log(DEBUG, format, args...) }
func Info(format string, args ...interface{})  { GetDefault().log(INFO, format, args...) }
func Warn(format string, args ...interface{})  { GetDefault().log(WARN, format, args...) }
func Error(format string, args ...interface{}) { GetDefault().log(ERROR, format, args...) }
