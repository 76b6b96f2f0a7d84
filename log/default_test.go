package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

// useDefault points the package logger at a buffer until the test ends.
func useDefault(t *testing.T, opts ...Option) *bytes.Buffer {
	t.Helper()

	original := defaultLog

	t.Cleanup(func() { defaultLog = original })

	var buf bytes.Buffer

	defaultLog = Make(&buf, append([]Option{WithFormat(FormatJSON), WithPretty(false)}, opts...)...)

	return &buf
}

func TestConfig_ReconfiguresDefault(t *testing.T) {
	buf := useDefault(t)

	Debug("hidden")
	Config(WithLevel(LevelTrace))
	Trace("shown")

	if Default().Level() != LevelTrace {
		t.Errorf("level = %v", Default().Level())
	}

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("got %q", out)
	}
}

func TestPackageFunctions(t *testing.T) {
	buf := useDefault(t, WithLevel(LevelTrace))
	ctx := context.Background()

	tests := []struct {
		level string
		fn    func()
	}{
		{"TRACE", func() { TraceContext(ctx, "m", slog.String("k", "v")) }},
		{"DEBUG", func() { Debug("m", slog.String("k", "v")) }},
		{"INFO", func() { InfoContext(ctx, "m", slog.String("k", "v")) }},
		{"WARN", func() { Warn("m", slog.String("k", "v")) }},
		{"ERROR", func() { ErrorContext(ctx, "m", slog.String("k", "v")) }},
		{"INFO", func() { With(slog.String("k", "v")).Info("m") }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf.Reset()
			tt.fn()

			out := buf.String()
			if !strings.Contains(out, `"level":"`+tt.level+`"`) || !strings.Contains(out, `"k":"v"`) {
				t.Errorf("got %q", out)
			}
		})
	}
}
