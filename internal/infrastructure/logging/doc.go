// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON lines for machine parsing
//   - Development: colored console output
//
// Logs go to stderr by default so CLI output on stdout stays pipeable.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("sessions loaded", zap.Int("count", n))
//	logger.Error("save failed", zap.Error(err))
package logging
