package logger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// LogRequest logs a completed imgur request
func LogRequest(log Logger, method, url string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		log.DebugWithFields("HTTP request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		log.WarnWithFields("HTTP request client error", fields)
	default:
		log.ErrorWithFields("HTTP request server error", fields)
	}
}

// LogRateLimit logs rate limiting events
func LogRateLimit(log Logger, endpoint string, waitMs int64) {
	log.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"wait_ms":  waitMs,
		"action":   "rate_limited",
	}).Debug("Waiting for rate limiter")
}

// LogFetchStep logs progress of one page step of a fetch session.
func LogFetchStep(log Logger, scope string, page, processed, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(processed) / float64(total) * 100
	}

	log.DebugWithFields("Fetch step", map[string]interface{}{
		"scope":      scope,
		"page":       page,
		"processed":  processed,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	})
}

// LogSessionState logs a fetch session state transition.
func LogSessionState(log Logger, sessionID, scope, from, to string) {
	log.InfoWithFields("Fetch session state", map[string]interface{}{
		"session": sessionID,
		"scope":   scope,
		"from":    from,
		"to":      to,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(log Logger, component string, cfg map[string]interface{}) {
	l := log.WithField("component", component)
	if len(cfg) > 0 {
		l = l.WithFields(cfg)
	}
	l.Debug("Component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
