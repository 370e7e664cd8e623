package mlog

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts go.uber.org/zap's SugaredLogger to Logger.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// InitializeLogger builds the process logger from ENV_NAME / LOG_LEVEL,
// the same two knobs the teacher's mzap.InitializeLogger reads.
func InitializeLogger() Logger {
	var cfg zap.Config

	if os.Getenv("ENV_NAME") == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if val, ok := os.LookupEnv("LOG_LEVEL"); ok {
		var lvl zapcore.Level
		if err := lvl.Set(val); err != nil {
			log.Printf("invalid LOG_LEVEL, falling back to info: %v", err)

			lvl = zapcore.InfoLevel
		}

		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}

	return &ZapLogger{s: logger.Sugar()}
}

func (l *ZapLogger) Info(args ...any)                  { l.s.Info(args...) }
func (l *ZapLogger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *ZapLogger) Error(args ...any)                 { l.s.Error(args...) }
func (l *ZapLogger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
func (l *ZapLogger) Warn(args ...any)                  { l.s.Warn(args...) }
func (l *ZapLogger) Warnf(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *ZapLogger) Debug(args ...any)                 { l.s.Debug(args...) }
func (l *ZapLogger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }

func (l *ZapLogger) WithFields(fields ...any) Logger {
	return &ZapLogger{s: l.s.With(fields...)}
}

func (l *ZapLogger) Sync() error { return l.s.Sync() }
