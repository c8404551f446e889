// Package logger provides structured logging for the fleetwatch binaries.
//
// It is a thin wrapper around zap: Init builds the process-wide logger from
// config, L returns it, and Named hands out component loggers so packages can
// tag their output without threading a logger through every constructor.
//
// Example usage:
//
//	logger.Init(logger.Config{Level: "debug", Format: "console"})
//	defer logger.Sync()
//
//	log := logger.Named("samsara")
//	log.Info("vehicle cache refreshed", zap.Int("count", len(vehicles)))
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the process-wide logger built by Init.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn or error.
	Level string
	// Format selects the stdout encoder: "json" or "console".
	Format string
	// File, when non-empty, adds a JSON sink with size-based rotation.
	File string
	// MaxSizeMB caps a rotated log file's size. Zero means 100.
	MaxSizeMB int
	// MaxBackups caps how many rotated files are kept. Zero means 5.
	MaxBackups int
}

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Init builds the global logger from cfg and installs it. Safe to call once
// at startup; later calls replace the logger wholesale.
func Init(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.TimeKey = "ts"

	var stdoutEnc zapcore.Encoder
	if strings.EqualFold(cfg.Format, "console") {
		consoleCfg := encCfg
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		stdoutEnc = zapcore.NewConsoleEncoder(consoleCfg)
	} else {
		stdoutEnc = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(stdoutEnc, zapcore.Lock(os.Stdout), level),
	}

	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		maxBackups := cfg.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 5
		}
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, level))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller())

	mu.Lock()
	global = log
	mu.Unlock()
	zap.ReplaceGlobals(log)
	return nil
}

// L returns the global logger. Before Init it is a no-op logger, which keeps
// library tests quiet.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Named returns a component logger, e.g. Named("webhook").
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushes buffered log entries. Call it on shutdown; sync errors on
// stdout are expected on some platforms and ignored.
func Sync() {
	_ = L().Sync()
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
