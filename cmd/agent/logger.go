package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/atlas-monitor/agent/internal/config"
)

// initLogger creates a zap logger based on the configuration.
// It outputs to both console (human-readable) and, when a file is
// configured, a daily-rotated JSON log file.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stdout),
			level,
		),
	}

	if cfg.File != "" {
		writer, err := newRotatingWriter(cfg)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(writer),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// newRotatingWriter writes to <file>.YYYYMMDD, rotating daily and pruning
// files older than MaxAge. Outside Windows, <file> links to the current one.
func newRotatingWriter(cfg config.LoggingConfig) (*rotatelogs.RotateLogs, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	opts := []rotatelogs.Option{
		rotatelogs.WithMaxAge(cfg.MaxAge.Duration),
		rotatelogs.WithRotationTime(cfg.RotationTime.Duration),
	}
	if runtime.GOOS != "windows" {
		opts = append(opts, rotatelogs.WithLinkName(cfg.File))
	}

	writer, err := rotatelogs.New(cfg.File+".%Y%m%d", opts...)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return writer, nil
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
