// Package logging provides component-scoped, level-gated loggers for the
// orgsync engine. Levels come from the environment so the host can turn
// on per-component debugging without a rebuild.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents the logging level
type Level int

const (
	LevelInfo Level = iota
	LevelDebug
	LevelWarn
	LevelError
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a component-specific logger
type Logger struct {
	component string
	level     Level
	enabled   map[Level]bool
	mu        sync.RWMutex
}

// Configuration holds the logging configuration
type Configuration struct {
	DefaultLevel    Level
	ComponentLevels map[string]Level
	EnableDebug     bool
}

var (
	globalConfig = &Configuration{
		DefaultLevel:    LevelInfo,
		ComponentLevels: make(map[string]Level),
		EnableDebug:     false,
	}
	configMu sync.RWMutex

	// Pre-configured engine component loggers
	CompareLogger   *Logger
	MigrateLogger   *Logger
	DiscoveryLogger *Logger
	FetchLogger     *Logger
	AuditLogger     *Logger
	RPCLogger       *Logger

	consoleLogger = log.New(os.Stdout, "", 0)
)

func init() {
	loadEnvironmentConfig()

	CompareLogger = NewLogger("compare")
	MigrateLogger = NewLogger("migrate")
	DiscoveryLogger = NewLogger("discovery")
	FetchLogger = NewLogger("fetch")
	AuditLogger = NewLogger("audit")
	RPCLogger = NewLogger("rpc")
}

// NewLogger creates a new component-specific logger
func NewLogger(component string) *Logger {
	configMu.RLock()
	defer configMu.RUnlock()

	level := globalConfig.DefaultLevel
	if componentLevel, exists := globalConfig.ComponentLevels[component]; exists {
		level = componentLevel
	}

	logger := &Logger{
		component: component,
		level:     level,
		enabled:   make(map[Level]bool),
	}
	logger.updateEnabledLevels()
	return logger
}

// updateEnabledLevels configures which levels are enabled.
// NOTE: expects configMu to already be held by the caller.
func (l *Logger) updateEnabledLevels() {
	for level := range l.enabled {
		delete(l.enabled, level)
	}

	// Warn and error are always on.
	l.enabled[LevelWarn] = true
	l.enabled[LevelError] = true

	if l.level == LevelInfo || l.level == LevelDebug {
		l.enabled[LevelInfo] = true
	}

	if globalConfig.EnableDebug || l.level == LevelDebug {
		l.enabled[LevelDebug] = true
	}
}

// Configure updates the global logging configuration
func Configure(config *Configuration) {
	configMu.Lock()
	defer configMu.Unlock()

	if config == nil {
		return
	}

	globalConfig.DefaultLevel = config.DefaultLevel
	globalConfig.EnableDebug = config.EnableDebug

	if config.ComponentLevels != nil {
		for component, level := range config.ComponentLevels {
			globalConfig.ComponentLevels[component] = level
		}
	}

	updateAllLoggers()
}

// loadEnvironmentConfig loads configuration from environment variables
func loadEnvironmentConfig() {
	if debug := os.Getenv("DEBUG"); debug == "1" || strings.ToLower(debug) == "true" {
		globalConfig.EnableDebug = true
	}

	if debugComponents := os.Getenv("DEBUG_COMPONENTS"); debugComponents != "" {
		for _, component := range strings.Split(debugComponents, ",") {
			component = strings.TrimSpace(component)
			if component != "" {
				globalConfig.ComponentLevels[component] = LevelDebug
			}
		}
	}

	if level := os.Getenv("ORGSYNC_LOG_LEVEL"); level != "" {
		switch strings.ToLower(level) {
		case "debug":
			globalConfig.DefaultLevel = LevelDebug
			globalConfig.EnableDebug = true
		case "info":
			globalConfig.DefaultLevel = LevelInfo
		case "warn", "warning":
			globalConfig.DefaultLevel = LevelWarn
		case "error":
			globalConfig.DefaultLevel = LevelError
		}
	}
}

// updateAllLoggers pushes the configuration to all pre-built loggers.
// NOTE: expects configMu to already be held by the caller.
func updateAllLoggers() {
	loggers := []*Logger{
		CompareLogger, MigrateLogger, DiscoveryLogger,
		FetchLogger, AuditLogger, RPCLogger,
	}

	for _, logger := range loggers {
		if logger == nil {
			continue
		}
		if componentLevel, exists := globalConfig.ComponentLevels[logger.component]; exists {
			logger.level = componentLevel
		} else {
			logger.level = globalConfig.DefaultLevel
		}
		logger.updateEnabledLevels()
	}
}

func (l *Logger) isEnabled(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled[level]
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if !l.isEnabled(level) {
		return
	}
	message := fmt.Sprintf(format, args...)
	consoleLogger.Printf("[%s] %s: %s", level, l.component, message)
}

// Infof logs an info message (printf-style)
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Debugf logs a debug message (printf-style)
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Warnf logs a warning message (printf-style)
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Errorf logs an error message (printf-style)
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// InfoWithFields logs an info message with structured key-value fields
func (l *Logger) InfoWithFields(message string, fields ...interface{}) {
	l.logWithFields(LevelInfo, message, fields...)
}

// DebugWithFields logs a debug message with structured key-value fields
func (l *Logger) DebugWithFields(message string, fields ...interface{}) {
	l.logWithFields(LevelDebug, message, fields...)
}

// WarnWithFields logs a warning message with structured key-value fields
func (l *Logger) WarnWithFields(message string, fields ...interface{}) {
	l.logWithFields(LevelWarn, message, fields...)
}

// ErrorWithFields logs an error message with structured key-value fields
func (l *Logger) ErrorWithFields(message string, fields ...interface{}) {
	l.logWithFields(LevelError, message, fields...)
}

func (l *Logger) logWithFields(level Level, message string, fields ...interface{}) {
	if !l.isEnabled(level) {
		return
	}

	var fieldPairs []string
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		value := sanitizeFieldValue(key, fields[i+1])
		fieldPairs = append(fieldPairs, fmt.Sprintf("%s=%v", key, value))
	}

	if len(fieldPairs) > 0 {
		message = fmt.Sprintf("%s %s", message, strings.Join(fieldPairs, " "))
	}
	consoleLogger.Printf("[%s] %s: %s", level, l.component, message)
}

// IsDebugEnabled returns true if debug logging is enabled for this logger
func (l *Logger) IsDebugEnabled() bool {
	return l.isEnabled(LevelDebug)
}

// GetComponent returns the component name for this logger
func (l *Logger) GetComponent() string {
	return l.component
}

// EnableComponentDebug enables debug logging for a specific component
func EnableComponentDebug(component string) {
	configMu.Lock()
	defer configMu.Unlock()

	globalConfig.ComponentLevels[component] = LevelDebug
	updateAllLoggers()
}

// SetLogLevel sets the log level for a specific component
func SetLogLevel(component string, level Level) {
	configMu.Lock()
	defer configMu.Unlock()

	globalConfig.ComponentLevels[component] = level
	updateAllLoggers()
}

var sensitiveKeyTokens = []string{
	"password",
	"secret",
	"token",
	"credential",
	"auth",
	"access_token",
	"session",
}

func sanitizeFieldValue(key string, value interface{}) interface{} {
	lower := strings.ToLower(key)
	for _, token := range sensitiveKeyTokens {
		if strings.Contains(lower, token) {
			return "<redacted>"
		}
	}
	return value
}
