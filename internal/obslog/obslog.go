// Package obslog builds the run's structured logger: a console core plus an
// optional file core combined with zapcore.NewTee, named per phase the way
// the teacher's logger names itself after the program. Simplified from the
// teacher's console/file split: no color-capable terminal detection or
// panic-log capture, since this pipeline runs headless.
package obslog

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the run's configured minimum severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "normal"
	LevelNone  Level = "none"
)

// Config configures Prepare.
type Config struct {
	Level   Level
	FileDir string // if non-empty, a run.log is also written here
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelNone:
		return zapcore.FatalLevel + 1 // above any real level: effectively off
	default:
		return zapcore.InfoLevel
	}
}

// Prepare builds the run's root logger, named "normalize-core". Callers
// derive per-phase loggers from it with Named.
func Prepare(cfg Config) (*zap.Logger, error) {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(ec)

	level := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool { return lvl >= zapLevel(cfg.Level) })
	consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), level)

	cores := []zapcore.Core{consoleCore}

	if cfg.FileDir != "" {
		if err := os.MkdirAll(cfg.FileDir, 0o755); err != nil {
			return nil, fmt.Errorf("obslog: cannot create log directory %s: %w", cfg.FileDir, err)
		}
		logPath := filepath.Join(cfg.FileDir, "run.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("obslog: cannot open log file %s: %w", logPath, err)
		}
		fileEncoder := zapcore.NewJSONEncoder(ec)
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.Lock(f), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return logger.Named("normalize-core"), nil
}

// Phase returns a child logger named after a pipeline phase, e.g.
// Phase(l, "normalize").
func Phase(l *zap.Logger, name string) *zap.Logger {
	return l.Named(name)
}
