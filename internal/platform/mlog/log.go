// Package mlog defines the logging contract used across the credit core.
package mlog

// Logger is the common interface for log implementations, kept separate
// from any concrete backend so tests can substitute a no-op logger.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	WithFields(fields ...any) Logger

	Sync() error
}
