package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		want    zapcore.Level
	}{
		{level: "", want: zapcore.InfoLevel},
		{level: "warn", want: zapcore.WarnLevel},
		{level: "ERROR", want: zapcore.ErrorLevel},
		{level: "warn", verbose: true, want: zapcore.DebugLevel},
	}
	for _, tc := range tests {
		t.Run(tc.level, func(t *testing.T) {
			logger, err := New(tc.level, tc.verbose)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tc.want))
			if tc.want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tc.want-1))
			}
		})
	}
}

func TestNewBadLevel(t *testing.T) {
	_, err := New("loud", false)
	assert.Error(t, err)
}
