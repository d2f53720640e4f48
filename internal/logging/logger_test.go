package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"courier/internal/config"
)

func TestNewFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courier.log")
	cfg := config.LogConfig{
		File: config.LogSinkConfig{Enabled: true, Level: "debug", Format: "json", Path: path},
	}

	logger, cleanup, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("delivery finished", "targets", 3)
	cleanup()

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(body), `"msg":"delivery finished"`) {
		t.Fatalf("log file content = %q", string(body))
	}
}

func TestNewRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.LogConfig
	}{
		{
			name: "no sinks",
			cfg:  config.LogConfig{},
		},
		{
			name: "bad console level",
			cfg: config.LogConfig{
				Console: config.LogSinkConfig{Enabled: true, Level: "loud", Format: "line"},
			},
		},
		{
			name: "bad console format",
			cfg: config.LogConfig{
				Console: config.LogSinkConfig{Enabled: true, Level: "info", Format: "xml"},
			},
		},
		{
			name: "bad file format",
			cfg: config.LogConfig{
				File: config.LogSinkConfig{Enabled: true, Level: "info", Format: "xml", Path: os.DevNull},
			},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := New(tc.cfg); err == nil {
				t.Fatalf("settings %+v must be rejected", tc.cfg)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		raw  string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{" warn ", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tc := range cases {
		got, err := parseLevel(tc.raw)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("parseLevel(%q) = (%v, %v), want (%v, ok=%v)", tc.raw, got, err, tc.want, tc.ok)
		}
	}
}

func TestLevelColor(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"level=DEBUG msg=x", ansiGray},
		{"level=INFO msg=x", ansiBlue},
		{"level=WARN msg=x", ansiYellow},
		{"level=ERROR msg=x", ansiRed},
		{"plain text", ""},
	}
	for _, tc := range cases {
		if got := levelColor(tc.line); got != tc.want {
			t.Fatalf("levelColor(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestHighlightLineTokensPreservesText(t *testing.T) {
	line := `level=INFO msg="loaded target" url=json://example.com/hook count=3`
	rendered := highlightLineTokens(line, ansiBlue)

	stripped := rendered
	for _, code := range []string{ansiReset, ansiBlue, ansiGreen, ansiCyan, ansiYellow} {
		stripped = strings.ReplaceAll(stripped, code, "")
	}
	if stripped != line {
		t.Fatalf("highlighting must only insert ANSI codes:\n got %q\nwant %q", stripped, line)
	}
	if !strings.Contains(rendered, ansiCyan+"json://example.com/hook") {
		t.Fatalf("url token not highlighted: %q", rendered)
	}
}
