package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// LogLevel represents different log levels for service operations
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
	config LogConfig
}

type LogConfig struct {
	Service     string
	Component   string
	EnableDebug bool
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
		config: config,
	}
}

// ===== OPERATION LOGGING =====

// operationStatus classifies an operation's error for logging.
func operationStatus(err error) (LogLevel, string) {
	switch {
	case err == nil:
		return LogLevelInfo, "success"
	case IsValidation(err):
		return LogLevelWarn, "validation_error"
	case IsUnauthorized(err):
		return LogLevelWarn, "unauthorized"
	case IsNotFound(err):
		return LogLevelInfo, "not_found"
	case IsBadRequest(err), IsConflict(err):
		return LogLevelInfo, "rejected"
	case IsUnavailable(err):
		return LogLevelWarn, "backend_unavailable"
	}
	return LogLevelError, "error"
}

func (l *ServiceLogger) LogOperation(ctx context.Context, operation string, attemptID int, duration time.Duration, err error) {
	logLevel, status := operationStatus(err)
	if logLevel == LogLevelInfo && err == nil && !l.config.EnableDebug && isQuiet(operation) {
		logLevel = LogLevelDebug
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Int("attempt_id", attemptID),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErr ValidationErrors
		if errors.As(err, &validationErr) {
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErr)))
		}
	}

	message := fmt.Sprintf("%s operation %s", operation, status)

	switch logLevel {
	case LogLevelDebug:
		l.logger.LogAttrs(ctx, slog.LevelDebug, message, attrs...)
	case LogLevelInfo:
		l.logger.LogAttrs(ctx, slog.LevelInfo, message, attrs...)
	case LogLevelWarn:
		l.logger.LogAttrs(ctx, slog.LevelWarn, message, attrs...)
	case LogLevelError:
		l.logger.LogAttrs(ctx, slog.LevelError, message, attrs...)
	}
}

// isQuiet reports operations issued on every user interaction; their
// successes are logged at debug level.
func isQuiet(operation string) bool {
	switch operation {
	case "select_answer", "navigate", "get_session":
		return true
	}
	return false
}

func (l *ServiceLogger) LogValidationError(ctx context.Context, operation string, attemptID int, validationErrors ValidationErrors) {
	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Int("attempt_id", attemptID),
		slog.Int("error_count", len(validationErrors)),
	}

	for i, err := range validationErrors {
		if i < 5 { // Limit to first 5 errors to avoid log spam
			attrs = append(attrs, slog.Group(fmt.Sprintf("error_%d", i+1),
				slog.String("field", err.Field),
				slog.String("message", err.Message),
				slog.Any("value", err.Value),
			))
		}
	}

	l.logger.LogAttrs(ctx, slog.LevelWarn, "Validation failed", attrs...)
}

// ===== MIDDLEWARE AND HELPERS =====

// ContextualLogger wraps operations with automatic logging
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	attemptID int
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation string, attemptID int) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		attemptID: attemptID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(err error) {
	duration := time.Since(cl.startTime)
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.attemptID, duration, err)

	var validationErrors ValidationErrors
	if errors.As(err, &validationErrors) {
		cl.logger.LogValidationError(cl.ctx, cl.operation, cl.attemptID, validationErrors)
	}
}
