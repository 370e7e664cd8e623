package mlog

// NilLogger discards everything. Used by tests and by collaborators that
// are wired with no-op capabilities.
type NilLogger struct{}

func (NilLogger) Info(args ...any)                  {}
func (NilLogger) Infof(format string, args ...any)  {}
func (NilLogger) Error(args ...any)                 {}
func (NilLogger) Errorf(format string, args ...any) {}
func (NilLogger) Warn(args ...any)                  {}
func (NilLogger) Warnf(format string, args ...any)  {}
func (NilLogger) Debug(args ...any)                 {}
func (NilLogger) Debugf(format string, args ...any) {}
func (l NilLogger) WithFields(fields ...any) Logger { return l }
func (NilLogger) Sync() error                       { return nil }
