package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// useDefault points the package-level logger at a buffer for one test.
func useDefault(t *testing.T, opts ...Option) *bytes.Buffer {
	t.Helper()

	original := Default()

	t.Cleanup(func() {
		defaultMu.Lock()
		defaultLog = original
		defaultMu.Unlock()
	})

	var buf bytes.Buffer

	Config(append([]Option{WithOutput(&buf), WithFormat(FormatJSON), WithPretty(false)}, opts...)...)

	return &buf
}

func TestPackage_LogFunctions_UseDefaultLogger(t *testing.T) {
	buf := useDefault(t, WithLevel(LevelTrace))

	tests := []struct {
		name  string
		fn    func(string, ...slog.Attr)
		level string
	}{
		{"Trace", Trace, "TRACE"},
		{"Debug", Debug, "DEBUG"},
		{"Info", Info, "INFO"},
		{"Warn", Warn, "WARN"},
		{"Error", Error, "ERROR"},
		{"TraceContext", func(msg string, attrs ...slog.Attr) {
			TraceContext(context.Background(), msg, attrs...)
		}, "TRACE"},
		{"ErrorContext", func(msg string, attrs ...slog.Attr) {
			ErrorContext(context.Background(), msg, attrs...)
		}, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn("package message", slog.String("key", "value"))

			output := buf.String()
			for _, s := range []string{"package message", `"level":"` + tt.level + `"`, `"key":"value"`} {
				if !strings.Contains(output, s) {
					t.Errorf("expected output to contain %q, got: %s", s, output)
				}
			}
		})
	}
}

func TestPackage_Config_FiltersLevels(t *testing.T) {
	buf := useDefault(t, WithLevel(LevelWarn))

	Info("hidden")
	DebugContext(t.Context(), "hidden")

	if buf.Len() != 0 {
		t.Errorf("messages below warn were logged: %s", buf.String())
	}

	WarnContext(t.Context(), "shown")

	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn message missing: %s", buf.String())
	}
}

func TestPackage_With(t *testing.T) {
	buf := useDefault(t, WithLevel(LevelInfo))

	With(slog.String("component", "render")).Info("ready")

	if !strings.Contains(buf.String(), `"component":"render"`) {
		t.Errorf("attribute missing: %s", buf.String())
	}
}
