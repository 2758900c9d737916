// Package logging configures the process-wide logrus logger.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skillroad/skillroad/internal/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	gormlogger "gorm.io/gorm/logger"
)

const (
	logFileMaxSizeMB  = 100
	logFileMaxBackups = 10
	logFileMaxAgeDays = 30

	gormSlowThreshold = 200 * time.Millisecond
)

// Setup applies level, formatter and output settings to the standard logger.
// The returned closer releases the log file, if any.
func Setup(cfg config.LoggingConfig) (io.Closer, error) {
	level, errLevel := log.ParseLevel(strings.TrimSpace(cfg.Level))
	if errLevel != nil {
		return nil, fmt.Errorf("logging: %w", errLevel)
	}
	log.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("logging: unsupported format %q", cfg.Format)
	}

	if !cfg.ToFile {
		log.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}

	if dir := filepath.Dir(cfg.File); dir != "" {
		if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
			return nil, fmt.Errorf("logging: create log dir: %w", errMkdir)
		}
	}
	writer := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, writer))
	return writer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewGormLogger returns a gorm logger that writes through logrus.
// SQL traces go to debug, slow queries to warn and failed queries to error.
func NewGormLogger() gormlogger.Interface {
	level := gormlogger.Warn
	if log.IsLevelEnabled(log.DebugLevel) {
		level = gormlogger.Info
	}
	return gormLogger{level: level, slowThreshold: gormSlowThreshold}
}

type gormLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func (l gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	l.level = level
	return l
}

func (l gormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		gormEntry().Infof(msg, args...)
	}
}

func (l gormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		gormEntry().Warnf(msg, args...)
	}
}

func (l gormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		gormEntry().Errorf(msg, args...)
	}
}

func (l gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.level >= gormlogger.Error:
		sql, rows := fc()
		traceEntry(elapsed, sql, rows).WithError(err).Error("gorm query failed")
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		traceEntry(elapsed, sql, rows).Warn("gorm slow query")
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		traceEntry(elapsed, sql, rows).Debug("gorm query")
	}
}

func gormEntry() *log.Entry {
	return log.WithField("component", "gorm")
}

func traceEntry(elapsed time.Duration, sql string, rows int64) *log.Entry {
	return gormEntry().WithFields(log.Fields{
		"elapsed": elapsed.String(),
		"rows":    rows,
		"sql":     sql,
	})
}
