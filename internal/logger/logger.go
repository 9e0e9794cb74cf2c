package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options control how the application logger is built.
type Options struct {
	JSON  bool
	Debug bool
	// Output is a zap sink (a path, "stdout" or "stderr"). Empty means stderr
	// so that reports printed on stdout stay machine readable.
	Output string
}

// New builds the application logger writing to stderr.
func New(json bool, debug bool) (*zap.Logger, error) {
	return Build(Options{JSON: json, Debug: debug})
}

func Build(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encoding := "console"
	if opts.JSON {
		encoding = "json"
	}

	output := opts.Output
	if output == "" {
		output = "stderr"
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey: "step",

			LevelKey:    "level",
			EncodeLevel: zapcore.LowercaseLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.RFC3339TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,

			EncodeDuration: zapcore.StringDurationEncoder,
		},
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build %s logger: %w", encoding, err)
	}

	return logger, nil
}

// OrNop returns the logger itself or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
