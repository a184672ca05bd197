// Package logging builds the process logger: readable console output in the
// foreground, rotated JSON files when daemonized.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the logger flavor.
type Options struct {
	Level   string // debug | info | warn | error
	File    string // JSON log destination, used when Daemon is set
	Daemon  bool
	Verbose bool // force debug level
}

// New builds a zap logger per opts. Console output goes to stderr so command
// results stay alone on stdout.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: bad level %q: %w", opts.Level, err)
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	if opts.Daemon {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("logging: create log dir: %w", err)
		}
		enc := zap.NewProductionEncoderConfig()
		enc.TimeKey = "timestamp"
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(enc),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			}),
			level,
		)
		return zap.New(core), nil
	}

	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core), nil
}
