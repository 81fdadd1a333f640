package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the minimal logging interface for ContextMesh.
// This allows users to provide their own logger implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// ContextMeshLogger wraps slog.Logger adding contextual cloning helpers and
// domain convenience methods. It should be cheap to copy via With* methods.
type ContextMeshLogger struct {
	logger    *slog.Logger
	level     LogLevel
	context   map[string]interface{}
	component string
	sessionID string
	taskID    string
	agent     string
}

// LoggerConfig configures construction of a ContextMeshLogger.
type LoggerConfig struct {
	Level       LogLevel
	Format      string // json or text
	Output      io.Writer
	AddSource   bool
	Component   string
	SessionID   string
	TaskID      string
	Agent       string
	CustomAttrs map[string]interface{}
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout, AddSource: true, CustomAttrs: map[string]interface{}{}}
}

// NewLogger builds a ContextMeshLogger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) *ContextMeshLogger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return &ContextMeshLogger{logger: slog.New(handler), level: cfg.Level, context: map[string]interface{}{}, component: cfg.Component, sessionID: cfg.SessionID, taskID: cfg.TaskID, agent: cfg.Agent}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *ContextMeshLogger) clone() *ContextMeshLogger {
	nl := *l
	nl.context = map[string]interface{}{}
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute that will be attached to every log entry.
func (l *ContextMeshLogger) WithContext(key string, value interface{}) *ContextMeshLogger {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (resolver, knowledge, skill, prompt, etc.).
func (l *ContextMeshLogger) WithComponent(c string) *ContextMeshLogger {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithTask attaches session and task identifiers.
func (l *ContextMeshLogger) WithTask(sessionID, taskID string) *ContextMeshLogger {
	nl := l.clone()
	nl.sessionID = sessionID
	nl.taskID = taskID
	return nl
}

// WithAgent attaches the agent namespace the log entries relate to.
func (l *ContextMeshLogger) WithAgent(agent string) *ContextMeshLogger {
	nl := l.clone()
	nl.agent = agent
	return nl
}

func (l *ContextMeshLogger) buildAttrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(l.context)+5)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if l.sessionID != "" {
		attrs = append(attrs, slog.String("session_id", l.sessionID))
	}
	if l.taskID != "" {
		attrs = append(attrs, slog.String("task_id", l.taskID))
	}
	if l.agent != "" {
		attrs = append(attrs, slog.String("agent", l.agent))
	}
	attrs = append(attrs, slog.Time("timestamp", time.Now()))
	for k, v := range l.context {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

func (l *ContextMeshLogger) log(level slog.Level, allowed bool, msg string, args ...interface{}) {
	if !allowed {
		return
	}
	attrs := l.buildAttrs()
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// Debug logs at debug level.
func (l *ContextMeshLogger) Debug(msg string, args ...interface{}) {
	l.log(slog.LevelDebug, l.level <= LogLevelDebug, msg, args...)
}

// Info logs at info level.
func (l *ContextMeshLogger) Info(msg string, args ...interface{}) {
	l.log(slog.LevelInfo, l.level <= LogLevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *ContextMeshLogger) Warn(msg string, args ...interface{}) {
	l.log(slog.LevelWarn, l.level <= LogLevelWarn, msg, args...)
}

// Error logs at error level.
func (l *ContextMeshLogger) Error(msg string, args ...interface{}) {
	l.log(slog.LevelError, l.level <= LogLevelError, msg, args...)
}

// LogResolution records the outcome of a field resolution lookup.
func (l *ContextMeshLogger) LogResolution(key string, found bool, levels int) {
	if l.level > LogLevelDebug {
		return
	}
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("key", key), slog.Bool("found", found), slog.Int("levels_walked", levels))
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "Field resolution completed", attrs...)
}

// LogOffload records an artifact offload batch (count, bytes, duration, outcome).
func (l *ContextMeshLogger) LogOffload(bizID string, artifacts int, bytes int, dur time.Duration, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("biz_id", bizID), slog.Int("artifact_count", artifacts), slog.Int("byte_count", bytes), slog.Duration("duration", dur))
	level := slog.LevelInfo
	msg := "Artifact offload completed"
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		level = slog.LevelWarn
		msg = "Artifact offload degraded"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogNeuron records a single neuron's contribution to prompt augmentation.
func (l *ContextMeshLogger) LogNeuron(name string, items int, chars int, reranked bool, err error) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("neuron", name), slog.Int("item_count", items), slog.Int("char_count", chars), slog.Bool("reranked", reranked))
	level := slog.LevelDebug
	msg := "Neuron contribution computed"
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		level = slog.LevelWarn
		msg = "Neuron contribution failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogSkill records a skill activation or offload transition.
func (l *ContextMeshLogger) LogSkill(skill string, action string, status string) {
	attrs := l.buildAttrs()
	attrs = append(attrs, slog.String("skill", skill), slog.String("action", action), slog.String("status", status))
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, "Skill transition", attrs...)
}

// StartTimer returns a closure that logs the elapsed duration when invoked.
func (l *ContextMeshLogger) StartTimer(op string) func() {
	start := time.Now()
	return func() { l.Info("Operation completed", "operation", op, "duration", time.Since(start)) }
}

// DomainLogger is implemented by loggers that record structured domain
// events (field resolution, artifact offload, neuron contributions, skill
// transitions) in addition to plain leveled messages. Services type-assert
// their Logger against this interface and fall back to leveled logging when
// it is not implemented.
type DomainLogger interface {
	Logger
	LogResolution(key string, found bool, levels int)
	LogOffload(bizID string, artifacts int, bytes int, dur time.Duration, err error)
	LogNeuron(name string, items int, chars int, reranked bool, err error)
	LogSkill(skill string, action string, status string)
	StartTimer(op string) func()
}

var _ DomainLogger = (*ContextMeshLogger)(nil)

// ForComponent returns l scoped to the given component when l is a
// ContextMeshLogger; other Logger implementations pass through unchanged.
func ForComponent(l Logger, component string) Logger {
	if cl, ok := l.(*ContextMeshLogger); ok {
		return cl.WithComponent(component)
	}
	return l
}

// ForTask returns l with session and task identifiers attached when l is a
// ContextMeshLogger; other Logger implementations pass through unchanged.
func ForTask(l Logger, sessionID, taskID string) Logger {
	if cl, ok := l.(*ContextMeshLogger); ok {
		return cl.WithTask(sessionID, taskID)
	}
	return l
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// NewSlogLogger creates a new ContextMeshLogger with the specified configuration.
func NewSlogLogger(level LogLevel, format string, addSource bool) *ContextMeshLogger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}
