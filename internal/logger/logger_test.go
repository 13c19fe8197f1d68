package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func parseLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("output is not JSON: %q: %v", line, err)
	}
	return m
}

func TestJSONOutputKeys(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithField("bot", "help-bot").Info("hello")

	m := parseLine(t, &buf)
	if m["message"] != "hello" {
		t.Errorf("message = %v, want hello", m["message"])
	}
	if m["level"] != "info" {
		t.Errorf("level = %v, want info", m["level"])
	}
	if _, ok := m["timestamp"]; !ok {
		t.Error("timestamp key missing")
	}
	if m["bot"] != "help-bot" {
		t.Errorf("bot = %v, want help-bot", m["bot"])
	}
}

func TestWarnLevelRenamed(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.Warn("careful")

	m := parseLine(t, &buf)
	if m["level"] != "warning" {
		t.Errorf("level = %v, want warning", m["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("error", &buf)

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info record emitted at error level: %q", buf.String())
	}
	log.Error("kept")
	if buf.Len() == 0 {
		t.Error("error record was not emitted")
	}
}

func TestWithHelpers(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithModule("webhook").
		WithRequestID("req-1").
		WithError(errors.New("boom")).
		WithFields(map[string]any{"a": 1}).
		Info("msg")

	m := parseLine(t, &buf)
	if m["module"] != "webhook" {
		t.Errorf("module = %v", m["module"])
	}
	if m["request_id"] != "req-1" {
		t.Errorf("request_id = %v", m["request_id"])
	}
	if m["error"] != "boom" {
		t.Errorf("error = %v", m["error"])
	}
	if m["a"] != float64(1) {
		t.Errorf("a = %v", m["a"])
	}
}

type countingHandler struct {
	n *int
}

func (h countingHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h countingHandler) Handle(context.Context, slog.Record) error { *h.n++; return nil }
func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h countingHandler) WithGroup(string) slog.Handler             { return h }

func TestFanoutHandler(t *testing.T) {
	t.Parallel()
	var a, b int
	h := newFanoutHandler(countingHandler{&a}, nil, countingHandler{&b})
	log := slog.New(h)

	log.Info("one")
	log.Info("two")

	if a != 2 || b != 2 {
		t.Errorf("handler call counts = %d, %d, want 2, 2", a, b)
	}
}
