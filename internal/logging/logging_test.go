package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/partyevents/partyevents/internal/config"
)

func TestNewHonoursLevel(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  slog.Level
	}{
		{name: "json at warn", format: "json", level: slog.LevelWarn},
		{name: "text at debug", format: "text", level: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(config.LoggingConfig{Level: tt.level, Format: tt.format})
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}

			ctx := context.Background()
			for _, lvl := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
				if got, want := logger.Enabled(ctx, lvl), lvl >= tt.level; got != want {
					t.Errorf("Enabled(%v) = %t, want %t", lvl, got, want)
				}
			}
		})
	}
}

func TestNewTagsRecordsWithService(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LoggingConfig{
		Level:   slog.LevelInfo,
		Format:  "json",
		Service: "partyevents",
	}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter returned error: %v", err)
	}

	logger.Info("filters replaced", "revision", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if record["service"] != "partyevents" {
		t.Errorf("service = %v, want partyevents", record["service"])
	}
	if record["msg"] != "filters replaced" {
		t.Errorf("msg = %v, want filters replaced", record["msg"])
	}
	if _, ok := record["source"]; ok {
		t.Error("source attribute present without AddSource")
	}
}

func TestNewAddsSourceWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter(config.LoggingConfig{
		Level:     slog.LevelInfo,
		Format:    "text",
		AddSource: true,
	}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter returned error: %v", err)
	}

	logger.Info("event refresh")

	out := buf.String()
	if !strings.Contains(out, "source=") || !strings.Contains(out, "logging_test.go") {
		t.Errorf("expected source location in %q", out)
	}
	if strings.Contains(out, "service=") {
		t.Errorf("unexpected service attribute without Service: %q", out)
	}
}

func TestNewWithUnsupportedFormat(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: slog.LevelInfo, Format: "pretty"})
	if err == nil {
		t.Fatal("expected error for unsupported format, got nil")
	}

	if !strings.Contains(err.Error(), "unsupported log format") {
		t.Fatalf("unexpected error: %v", err)
	}
}
