package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"floorwatch/internal/config"
)

func TestNewRequiresASink(t *testing.T) {
	t.Parallel()

	if _, _, err := New(config.LogConfig{}); err == nil {
		t.Fatalf("expected error when no sink is enabled")
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	t.Parallel()

	cfg := config.LogConfig{Console: config.LogSinkConfig{Enabled: true, Level: "verbose", Format: "line"}}
	if _, _, err := New(cfg); err == nil {
		t.Fatalf("expected error for unknown level")
	}

	cfg = config.LogConfig{Console: config.LogSinkConfig{Enabled: true, Level: "info", Format: "xml"}}
	if _, _, err := New(cfg); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestNewWritesToFileSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "engine.log")
	cfg := config.LogConfig{File: config.LogSinkConfig{Enabled: true, Level: "info", Format: "json", Path: path}}
	logger, closeLog, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected setup error: %v", err)
	}

	logger.Info("alert fired", "rule", "rule-load")
	logger.Debug("suppressed", "rule", "rule-load")
	closeLog()

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(body), `"msg":"alert fired"`) {
		t.Fatalf("expected info line in file sink, got %q", body)
	}
	if strings.Contains(string(body), "suppressed") {
		t.Fatalf("expected debug line filtered at info level")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"ERROR": slog.LevelError,
	} {
		got, err := parseLevel(raw)
		if err != nil || got != want {
			t.Fatalf("level %q: expected %v, got %v err=%v", raw, want, got, err)
		}
	}
}

func TestColorLineWriter(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	writer := &colorLineWriter{dst: &buffer}

	line := []byte("time=now level=ERROR msg=boom\n")
	n, err := writer.Write(line)
	if err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if n != len(line) {
		t.Fatalf("expected reported length %d, got %d", len(line), n)
	}
	if !strings.HasPrefix(buffer.String(), ansiRed) || !strings.HasSuffix(buffer.String(), ansiReset) {
		t.Fatalf("expected colored line, got %q", buffer.String())
	}

	buffer.Reset()
	plain := []byte("no level marker\n")
	if _, err := writer.Write(plain); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if buffer.String() != string(plain) {
		t.Fatalf("expected unknown level left uncolored, got %q", buffer.String())
	}
}
