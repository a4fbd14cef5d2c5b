// Package bpxlog is the domain-level structured logger for the BPX
// server: zap over a console or rotated file sink, matching the
// teacher's own pack precedent for zap+lumberjack logging.
package bpxlog

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Logger construction.
type Options struct {
	Stdout     bool
	Level      string
	Filename   string
	MaxSize    int // megabytes
	MaxAge     int // days
	MaxBackups int
}

// Logger wraps a sugared zap logger with the four levels the domain
// code uses.
type Logger struct {
	sugared *zap.SugaredLogger
}

func toZapLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a Logger from opt, writing to stdout or to a
// lumberjack-rotated file depending on opt.Stdout.
func New(opt Options) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Local().Format("2006-01-02 15:04:05.000"))
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	var w zapcore.WriteSyncer
	if opt.Stdout || opt.Filename == "" {
		w = zapcore.AddSync(os.Stdout)
	} else {
		if err := os.MkdirAll(filepath.Dir(opt.Filename), os.ModePerm); err != nil {
			panic(err)
		}
		w = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opt.Filename,
			MaxSize:    opt.MaxSize,
			MaxBackups: opt.MaxBackups,
			MaxAge:     opt.MaxAge,
			LocalTime:  true,
		})
	}

	core := zapcore.NewCore(encoder, w, toZapLevel(opt.Level))
	logger := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{sugared: logger.Sugar()}
}

func (l *Logger) Debugf(template string, args ...any) { l.sugared.Debugf(template, args...) }
func (l *Logger) Infof(template string, args ...any)  { l.sugared.Infof(template, args...) }
func (l *Logger) Warnf(template string, args ...any)  { l.sugared.Warnf(template, args...) }
func (l *Logger) Errorf(template string, args ...any) { l.sugared.Errorf(template, args...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sugared.Sync()
}

var std = New(Options{Stdout: true, Level: "info"})

// SetOptions rebuilds the package-level default logger.
func SetOptions(opt Options) {
	std = New(opt)
}

func Debugf(template string, args ...any) { std.Debugf(template, args...) }
func Infof(template string, args ...any)  { std.Infof(template, args...) }
func Warnf(template string, args ...any)  { std.Warnf(template, args...) }
func Errorf(template string, args ...any) { std.Errorf(template, args...) }
