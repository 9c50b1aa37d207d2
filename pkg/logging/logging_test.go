package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	level int
	msg   string
}

func TestLogger_PrefixAndLevels(t *testing.T) {
	var got []recorded
	record := func(level int) LogFunc {
		return func(format string, args ...interface{}) {
			got = append(got, recorded{level: level, msg: fmt.Sprintf(format, args...)})
		}
	}

	logger := NewLogger("module: ocdguard-test , ", LogFuncs{
		Debugf: record(LogLevelDebug),
		Infof:  record(LogLevelInfo),
		Warnf:  record(LogLevelWarn),
		Errorf: record(LogLevelError),
	})

	logger.Debugf("spawned, pid: %d", 10)
	logger.Infof("Line: %s", "Info : Listening on port 3333")
	logger.Warnf("restart requested")
	logger.LogLevelf(LogLevelError, "kill failed: %v", "EPERM")

	require.Len(t, got, 4)
	assert.Equal(t, recorded{LogLevelDebug, "module: ocdguard-test , spawned, pid: 10"}, got[0])
	assert.Equal(t, recorded{LogLevelInfo, "module: ocdguard-test , Line: Info : Listening on port 3333"}, got[1])
	assert.Equal(t, LogLevelWarn, got[2].level)
	assert.Equal(t, "module: ocdguard-test , kill failed: EPERM", got[3].msg)
}

func TestLogger_LogLevelfOverridesPerLevelFuncs(t *testing.T) {
	var levels []int
	logger := NewLogger("", LogFuncs{
		LogLevelf: func(level int, format string, args ...interface{}) {
			levels = append(levels, level)
		},
		Infof: func(format string, args ...interface{}) {
			t.Fatal("per-level func must not be called when LogLevelf is set")
		},
	})

	logger.Infof("hello")
	logger.Warnf("hello")

	assert.Equal(t, []int{LogLevelInfo, LogLevelWarn}, levels)
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Errorf("dropped %d", 1)
	})
}

func TestZapLogFuncs_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocdguard.log")

	funcs, sync, err := NewZapLogFuncs(ZapConfig{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)

	logger := NewLogger("", funcs)
	logger.Infof("below threshold")
	logger.Warnf("OpenOCD reports too many connections")
	_ = sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "below threshold")
	assert.Contains(t, string(data), "OpenOCD reports too many connections")
	assert.Contains(t, string(data), `"level":"warn"`)
}

func TestIsValidLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"verbose", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidLevel(tt.level))
		})
	}
}
