// Package logger provides the structured logging interface used across imgurstats.
//
// It wraps zerolog with a small interface so that packages can accept a
// Logger and tests can swap in a TestLogger or NewNopLogger.
//
//	err := logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("scope", "alice")
//	log.InfoWithFields("fetch finished", map[string]interface{}{"pages": 12})
//
// Console output goes to stderr; set logging.file to also write to a file and
// logging.format to "json" for machine-readable lines.
package logger
