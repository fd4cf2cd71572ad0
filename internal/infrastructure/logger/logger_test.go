package logger

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eyetracktask/eyetrack/internal/infrastructure/config"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.LoggerConfig{Level: "loud", Format: "console"}); err == nil {
		t.Error("New() should reject an unknown level")
	}
	if _, err := New(config.LoggerConfig{Level: "debug", Format: "json", Output: "stderr"}); err != nil {
		t.Errorf("New() error = %v", err)
	}
}

func TestLogHTTPRequest(t *testing.T) {
	l, logs := newObserved()

	l.LogHTTPRequest(HTTPRequest{Method: "GET", URI: "/api/v1/board", Status: 200, Latency: 1500 * time.Microsecond})
	l.LogHTTPRequest(HTTPRequest{Method: "POST", URI: "/api/v1/tasks", Status: 500, Err: errors.New("boom")})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].ContextMap()["latency_ms"] != 1.5 {
		t.Errorf("first entry = %+v", entries[0])
	}
	if entries[1].Level != zapcore.ErrorLevel || entries[1].ContextMap()["error"] != "boom" {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestWithComponent(t *testing.T) {
	l, logs := newObserved()

	l.WithComponent("board").LogSecurityEvent("foreign_project_access", "u1", "", map[string]interface{}{"project_id": "p1"})

	entry := logs.All()[0]
	fields := entry.ContextMap()
	if fields["component"] != "board" || fields["security_event"] != "foreign_project_access" || fields["project_id"] != "p1" {
		t.Errorf("fields = %v", fields)
	}
	if entry.Level != zapcore.WarnLevel {
		t.Errorf("level = %s, want warn", entry.Level)
	}
}
