package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"tgrelay/pkg/config"
)

func TestLoggerJSONFormat(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "relay.dispatcher").Info("Reply sent", "sender_id", "111")

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshal log entry %q: %v", line, err)
	}
	if entry["msg"] != "Reply sent" {
		t.Fatalf("msg = %v, want %q", entry["msg"], "Reply sent")
	}
	if entry["level"] != "info" {
		t.Fatalf("level = %v, want %q", entry["level"], "info")
	}
	if _, ok := entry["component"]; !ok {
		t.Fatalf("expected component field in %q", line)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "logfmt", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); !strings.Contains(got, "Kept") {
		t.Fatalf("expected error output, got %q", got)
	}
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	unsetLoggingEnv(t)
	t.Setenv(envLevel, "debug")
	t.Setenv(envFormat, "text")

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Debug("Debug enabled")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected debug output with env override")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format override, got %q", line)
	}
}

func TestLoggerRejectsUnknownSettings(t *testing.T) {
	unsetLoggingEnv(t)

	if _, err := newWithWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, err := newWithWriter(config.LoggingConfig{Level: "trace"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unsupported level")
	}
}

func TestLoggerDefaultsToTextFormat(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Default format")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format by default, got %q", line)
	}
}

func unsetLoggingEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{envLevel, envFormat, envAddSource} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}
