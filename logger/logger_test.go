package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
		wantLevel  zapcore.Level
	}{
		{name: "JSON output mode", jsonOutput: true, verbosity: 0, wantLevel: zapcore.WarnLevel},
		{name: "Console output mode", jsonOutput: false, verbosity: 1, wantLevel: zapcore.InfoLevel},
		{name: "Console debug", jsonOutput: false, verbosity: 2, wantLevel: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			err := Initialize(tt.jsonOutput, tt.verbosity)
			require.NoError(t, err)
			require.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)
			assert.True(t, Logger.Desugar().Core().Enabled(tt.wantLevel))
			if tt.wantLevel > zapcore.DebugLevel {
				assert.False(t, Logger.Desugar().Core().Enabled(tt.wantLevel-1))
			}
		})
	}

	Logger = zap.NewNop().Sugar()
}

func TestIsProductionEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    bool
	}{
		{name: "no env vars", envVars: map[string]string{}, want: false},
		{name: "MANGASYNC_ENV=production", envVars: map[string]string{"MANGASYNC_ENV": "production"}, want: true},
		{name: "MANGASYNC_ENV=prod", envVars: map[string]string{"MANGASYNC_ENV": "prod"}, want: true},
		{name: "MANGASYNC_ENV=dev", envVars: map[string]string{"MANGASYNC_ENV": "dev"}, want: false},
		{name: "LOG_LEVEL=WARN", envVars: map[string]string{"LOG_LEVEL": "warn"}, want: true},
		{name: "LOG_LEVEL=DEBUG", envVars: map[string]string{"LOG_LEVEL": "DEBUG"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MANGASYNC_ENV", "")
			t.Setenv("LOG_LEVEL", "")
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			assert.Equal(t, tt.want, isProductionEnvironment())
			if tt.want {
				assert.Equal(t, "production", getEnvironmentType())
			} else {
				assert.Equal(t, "development", getEnvironmentType())
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core).Sugar()

	ctx := WithJobID(context.Background(), "20240102000000")
	ctx = WithRunID(ctx, "run-1")
	ctx = WithComponent(ctx, "sync.overviews")

	FromContext(ctx, base).Infow("stage done", FieldCount, 3)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "20240102000000", fields[FieldJobID])
	assert.Equal(t, "run-1", fields[FieldRunID])
	assert.Equal(t, "sync.overviews", fields[FieldComponent])
	assert.EqualValues(t, 3, fields[FieldCount])
}

func TestFromContext_NoFields(t *testing.T) {
	base := zap.NewNop().Sugar()
	assert.Same(t, base, FromContext(context.Background(), base))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))

	l := zap.NewNop().Sugar()
	assert.Same(t, l, OrNop(l))
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(5))
	assert.Equal(t, "Info (-v)", LevelName(1))
}
