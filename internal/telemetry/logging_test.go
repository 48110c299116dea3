package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestConfigureSlogJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "debug", "json")

	logger.Info("starting gas-mcp server", "pid", 1234)

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON log line, got error: %v (line: %s)", err, buf.String())
	}
	if decoded["msg"] != "starting gas-mcp server" {
		t.Errorf("expected msg field, got %v", decoded["msg"])
	}
}

func TestConfigureSlogTextFormatDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "")
	logger.Info("ready")

	if !strings.Contains(buf.String(), "ready") {
		t.Errorf("expected text log to contain message, got %q", buf.String())
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLogLevel(input); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestSpanIDsFromContextNoSpan(t *testing.T) {
	traceID, spanID := spanIDsFromContext(context.Background())
	if traceID != "" || spanID != "" {
		t.Errorf("expected empty ids without an active span, got %q/%q", traceID, spanID)
	}
}

func TestConfigureSlogAnnotatesScriptIDAndToolName(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "json")

	ctx := WithScriptID(context.Background(), "abc123")
	ctx = WithToolName(ctx, "write")
	logger.InfoContext(ctx, "applying change")

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON log line, got error: %v (line: %s)", err, buf.String())
	}
	if decoded[AttrScriptID] != "abc123" {
		t.Errorf("expected %s=abc123, got %v", AttrScriptID, decoded[AttrScriptID])
	}
	if decoded[AttrToolName] != "write" {
		t.Errorf("expected %s=write, got %v", AttrToolName, decoded[AttrToolName])
	}
}

func TestConfigureSlogOmitsScriptIDAndToolNameWhenAbsent(t *testing.T) {
	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "info", "json")
	logger.InfoContext(context.Background(), "no tool in flight")

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON log line, got error: %v (line: %s)", err, buf.String())
	}
	if _, ok := decoded[AttrScriptID]; ok {
		t.Errorf("expected no %s field, got %v", AttrScriptID, decoded[AttrScriptID])
	}
	if _, ok := decoded[AttrToolName]; ok {
		t.Errorf("expected no %s field, got %v", AttrToolName, decoded[AttrToolName])
	}
}
