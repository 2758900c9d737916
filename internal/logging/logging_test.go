package logging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skillroad/skillroad/internal/config"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	gormlogger "gorm.io/gorm/logger"
)

func TestSetup_WritesToRotatingFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "app.log")
	closer, err := Setup(config.LoggingConfig{Level: "debug", Format: "json", ToFile: true, File: logPath})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	})

	log.WithField("component", "test").Info("hello")
	if errClose := closer.Close(); errClose != nil {
		t.Fatalf("close: %v", errClose)
	}

	data, errRead := os.ReadFile(logPath)
	if errRead != nil {
		t.Fatalf("read log file: %v", errRead)
	}
	if len(data) == 0 {
		t.Fatalf("expected log file to contain entries")
	}
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
}

func TestSetup_RejectsUnknownLevelAndFormat(t *testing.T) {
	if _, err := Setup(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := Setup(config.LoggingConfig{Level: "info", Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	log.SetOutput(os.Stderr)
}

func TestGormLogger_TraceLevels(t *testing.T) {
	hook := logtest.NewGlobal()
	log.SetLevel(log.DebugLevel)
	t.Cleanup(func() {
		log.StandardLogger().ReplaceHooks(make(log.LevelHooks))
		log.SetLevel(log.InfoLevel)
	})

	gormLog := NewGormLogger()
	query := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	tests := []struct {
		name  string
		begin time.Time
		err   error
		want  log.Level
	}{
		{name: "fast query", begin: time.Now(), want: log.DebugLevel},
		{name: "slow query", begin: time.Now().Add(-time.Second), want: log.WarnLevel},
		{name: "failed query", begin: time.Now(), err: errors.New("boom"), want: log.ErrorLevel},
	}
	for _, tt := range tests {
		hook.Reset()
		gormLog.Trace(ctx, tt.begin, query, tt.err)
		entry := hook.LastEntry()
		if entry == nil {
			t.Fatalf("%s: expected a log entry", tt.name)
		}
		if entry.Level != tt.want {
			t.Fatalf("%s: expected level %s, got %s", tt.name, tt.want, entry.Level)
		}
		if entry.Data["sql"] != "SELECT 1" {
			t.Fatalf("%s: expected sql field, got %v", tt.name, entry.Data["sql"])
		}
	}

	hook.Reset()
	gormLog.Trace(ctx, time.Now(), query, gormlogger.ErrRecordNotFound)
	if entry := hook.LastEntry(); entry == nil || entry.Level != log.DebugLevel {
		t.Fatalf("expected record-not-found to trace at debug, got %v", entry)
	}

	hook.Reset()
	gormLog.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), query, errors.New("boom"))
	if len(hook.AllEntries()) != 0 {
		t.Fatalf("expected silent mode to log nothing")
	}
}

func TestGormLogger_WarnModeSkipsTraces(t *testing.T) {
	hook := logtest.NewGlobal()
	log.SetLevel(log.InfoLevel)
	t.Cleanup(func() { log.StandardLogger().ReplaceHooks(make(log.LevelHooks)) })

	NewGormLogger().Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	if len(hook.AllEntries()) != 0 {
		t.Fatalf("expected no trace outside debug level, got %d entries", len(hook.AllEntries()))
	}
}
