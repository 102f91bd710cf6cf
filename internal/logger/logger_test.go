package logger

import (
	"path/filepath"
	"testing"
)

func TestNewDebugModeWritesToStdout(t *testing.T) {
	log := New("debug", Options{})
	if log == nil {
		t.Fatal("expected logger instance")
	}
}

func TestNewFileModeCreatesLogDir(t *testing.T) {
	dir := t.TempDir()
	log := New("release", Options{Dir: dir, Filename: "test.log"})
	if log == nil {
		t.Fatal("expected logger instance")
	}
	log.Sugar().Infow("logger_test_event", "key", "value")
	_ = log.Sync()

	if _, err := filepath.Glob(filepath.Join(dir, "test.log")); err != nil {
		t.Fatalf("glob log file failed: %v", err)
	}
}

func TestSWReturnsSugaredLoggerWithFields(t *testing.T) {
	log := SW("request_id", "abc")
	if log == nil {
		t.Fatal("expected sugared logger")
	}
	if SW() == nil {
		t.Fatal("expected fallback sugared logger")
	}
}
