package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewSetsLevelAndFormat(t *testing.T) {
	cfg := LoggingConfig{Level: "debug", Format: "json", Output: "stdout"}
	log := New(cfg)
	if log.GetLevel().String() != "debug" {
		t.Fatalf("expected level debug, got %s", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter, got %T", log.Formatter)
	}
}

func TestNewCreatesLogFile(t *testing.T) {
	originalWD, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(originalWD) })

	temp := t.TempDir()
	if err := os.Chdir(temp); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	log := New(LoggingConfig{Level: "info", Format: "text", Output: "file", FilePrefix: "test"})
	log.Info("hello")

	path := filepath.Join("logs", "test.log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log file to contain data")
	}
}

func TestWithFieldTagsComponent(t *testing.T) {
	log := New(LoggingConfig{Component: "app:v1", Level: "info", Format: "json", Output: "stdout"})
	entry := log.WithField("event_type", "fetch")
	if entry.Data["component"] != "app:v1" {
		t.Fatalf("expected component field, got %v", entry.Data)
	}
	if entry.Data["event_type"] != "fetch" {
		t.Fatalf("expected event_type field, got %v", entry.Data)
	}
}

func TestNewDefaultTagsComponent(t *testing.T) {
	log := NewDefault("host")
	entry := log.WithFields(nil)
	if entry.Data["component"] != "host" {
		t.Fatalf("expected component field, got %v", entry.Data)
	}
}
