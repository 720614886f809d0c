package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents a logging level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a config string into a Level, defaulting to INFO
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Entry is one structured log record
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Error     string         `json:"error,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Logger provides leveled structured logging
type Logger struct {
	mu     sync.RWMutex
	level  Level
	format string // "json" or "text"
	output io.Writer
}

// New creates a logger writing text-formatted entries to stdout at INFO
func New() *Logger {
	return &Logger{
		level:  INFO,
		format: "text",
		output: os.Stdout,
	}
}

// SetLevel sets the minimum level emitted
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetFormat sets the output format ("json" or "text")
func (l *Logger) SetFormat(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = strings.ToLower(format)
}

// SetOutput sets the output destination
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(DEBUG, msg, fields...)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...Field) {
	l.log(INFO, msg, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(WARN, msg, fields...)
}

// Error logs an error message
func (l *Logger) Error(msg string, err error, fields ...Field) {
	if err != nil {
		fields = append(fields, Err(err))
	}
	l.log(ERROR, msg, fields...)
}

func (l *Logger) log(level Level, msg string, fields ...Field) {
	l.mu.RLock()
	min, format, out := l.level, l.format, l.output
	l.mu.RUnlock()

	if level < min {
		return
	}

	entry := &Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   msg,
		Fields:    make(map[string]any),
	}
	for _, f := range fields {
		f.apply(entry)
	}

	var line string
	if format == "json" {
		if b, err := json.Marshal(entry); err == nil {
			line = string(b)
		} else {
			line = fmt.Sprintf("failed to marshal log entry: %v", err)
		}
	} else {
		line = formatText(entry)
	}

	l.mu.Lock()
	fmt.Fprintln(out, line)
	l.mu.Unlock()
}

func formatText(entry *Entry) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s [%s] %s", entry.Timestamp, entry.Level, entry.Message))
	if entry.Component != "" {
		b.WriteString(fmt.Sprintf(" component=%s", entry.Component))
	}
	if entry.Error != "" {
		b.WriteString(fmt.Sprintf(" error=%s", entry.Error))
	}
	for key, value := range entry.Fields {
		b.WriteString(fmt.Sprintf(" %s=%v", key, value))
	}
	return b.String()
}

// Field attaches structured data to a log entry
type Field interface {
	apply(entry *Entry)
}

type kvField struct {
	key   string
	value any
}

func (f kvField) apply(entry *Entry) {
	entry.Fields[f.key] = f.value
}

type errField struct {
	err error
}

func (f errField) apply(entry *Entry) {
	entry.Error = f.err.Error()
}

type componentField struct {
	component string
}

func (f componentField) apply(entry *Entry) {
	entry.Component = f.component
}

// String creates a string field
func String(key, value string) Field {
	return kvField{key: key, value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return kvField{key: key, value: value}
}

// Float creates a float field
func Float(key string, value float64) Field {
	return kvField{key: key, value: value}
}

// Err creates an error field
func Err(err error) Field {
	return errField{err: err}
}

// Component tags the entry with the emitting component
func Component(component string) Field {
	return componentField{component: component}
}

var (
	globalLogger *Logger
	loggerOnce   sync.Once
)

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	loggerOnce.Do(func() {
		globalLogger = New()
	})
	return globalLogger
}

// Init configures the global logger from level and format strings
func Init(level, format string) {
	logger := GetLogger()
	logger.SetLevel(ParseLevel(level))
	if format != "" {
		logger.SetFormat(format)
	}
}
