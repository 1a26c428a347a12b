package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewInstallsGlobalLogger(t *testing.T) {
	before := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(before) })

	logger, cleanup, err := New("debug", "console")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cleanup()
	if zap.L() != logger {
		t.Fatal("expected logger to be installed globally")
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, _, err := New("loud", "json"); err == nil {
		t.Fatal("expected invalid level error")
	}
	if _, _, err := New("info", "xml"); err == nil {
		t.Fatal("expected invalid format error")
	}
}
