package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestColorTextHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(h)

	log.Debug("d")
	log.Info("i")
	log.Warn("w")
	log.Error("e")

	out := buf.String()
	for _, code := range []string{"\\x1b[36m", "\\x1b[32m", "\\x1b[33m", "\\x1b[31m"} {
		// slog.TextHandler quotes the escape sequence inside msg="...".
		if !strings.Contains(out, code) {
			t.Errorf("output missing color code %q:\n%s", code, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: ParseLevel("warn")})
	log := slog.New(h)

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message leaked through warn-level logger")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message missing")
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workerctl.log")
	log := New(Config{Level: "debug", Path: path})
	log.Log(context.Background(), slog.LevelInfo, "file sink check")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read diagnostic file: %v", err)
	}
	if !strings.Contains(string(b), "file sink check") {
		t.Fatalf("diagnostic file missing message: %s", b)
	}
}
