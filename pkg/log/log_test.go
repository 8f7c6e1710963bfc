package log

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLevel(tt.input), "level %q", tt.input)
	}
}

func TestSetup_AppliesLevel(t *testing.T) {
	ctx := context.Background()

	Setup("error")
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo))
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelError))

	Setup("debug")
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug))
}

func TestSetup_JSONFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")

	Setup("info")

	handler := slog.Default().Handler()
	_, ok := handler.(*slog.JSONHandler)
	assert.True(t, ok, "LOG_FORMAT=json should install the JSON handler")
}
