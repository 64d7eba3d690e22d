package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNew_Handlers(t *testing.T) {
	var buf bytes.Buffer
	t.Setenv("GO_ENV", "")
	New(&buf, "warn").Info("hidden")
	New(&buf, "warn").Warn("shown", "key", "value")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "key=value") {
		t.Errorf("text handler output: %q", out)
	}

	buf.Reset()
	t.Setenv("GO_ENV", "production")
	New(&buf, "info").Info("json", "n", 1)
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"msg":"json"`) {
		t.Errorf("production should log JSON: %q", buf.String())
	}
}

func TestComponent(t *testing.T) {
	if Component("kiosk") == nil || With("k", "v") == nil {
		t.Fatal("nil logger")
	}
	Discard().Error("dropped")
}
