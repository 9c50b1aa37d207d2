package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/core-tools/hsu-ocdguard/pkg/errors"
	"github.com/core-tools/hsu-ocdguard/pkg/pump"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ocdguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, DefaultExecutablePath, config.Daemon.ExecutablePath)
	assert.Equal(t, "openocd", config.Daemon.ProcessName)
	assert.Equal(t, "/opt/rpi-openocd/tcl", config.Daemon.ScriptsDir)
	assert.Equal(t, "interface/picoprobe.cfg", config.Daemon.InterfaceConfig)
	assert.Equal(t, "target/rp2040.cfg", config.Daemon.TargetConfig)
	assert.Equal(t, time.Second, config.Supervisor.Cooldown())
	assert.Equal(t, pump.DefaultCapacity, config.Supervisor.LineBuffer)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "console", config.Logging.Format)
	assert.Equal(t, "stderr", config.Logging.Output)
	assert.NoError(t, ValidateConfig(config))
}

func TestLoadConfigFromFile(t *testing.T) {
	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		validate    func(*testing.T, *GuardConfig)
	}{
		{
			name: "full config",
			configYAML: `
daemon:
  executable_path: /usr/bin/openocd
  process_name: openocd
  scripts_dir: /usr/share/openocd/scripts
  interface_config: interface/cmsis-dap.cfg
  target_config: target/rp2040.cfg
  environment: ["OPENOCD_DEBUG=1"]
supervisor:
  restart_cooldown: 250ms
  line_buffer: 64
  capture_file: /var/log/ocdguard/openocd.log
logging:
  level: debug
  format: json
  output: stdout
`,
			validate: func(t *testing.T, config *GuardConfig) {
				assert.Equal(t, "/usr/bin/openocd", config.Daemon.ExecutablePath)
				assert.Equal(t, []string{"OPENOCD_DEBUG=1"}, config.Daemon.Environment)
				assert.Equal(t, "/usr/share/openocd/scripts", config.Daemon.ScriptsDir)
				assert.Equal(t, "interface/cmsis-dap.cfg", config.Daemon.InterfaceConfig)
				assert.Equal(t, 250*time.Millisecond, config.Supervisor.Cooldown())
				assert.Equal(t, 64, config.Supervisor.LineBuffer)
				assert.Equal(t, "/var/log/ocdguard/openocd.log", config.Supervisor.CaptureFile)
				assert.Equal(t, "debug", config.Logging.Level)
				assert.Equal(t, "json", config.Logging.Format)
			},
		},
		{
			name: "partial config gets defaults",
			configYAML: `
daemon:
  executable_path: /usr/bin/openocd
`,
			validate: func(t *testing.T, config *GuardConfig) {
				assert.Equal(t, "/usr/bin/openocd", config.Daemon.ExecutablePath)
				assert.Equal(t, DefaultProcessName, config.Daemon.ProcessName)
				assert.Equal(t, DefaultTargetConfig, config.Daemon.TargetConfig)
				assert.Equal(t, DefaultRestartCooldown, config.Supervisor.Cooldown())
				assert.Equal(t, "info", config.Logging.Level)
			},
		},
		{
			name: "explicit zero cooldown is kept",
			configYAML: `
supervisor:
  restart_cooldown: 0s
`,
			validate: func(t *testing.T, config *GuardConfig) {
				assert.Equal(t, time.Duration(0), config.Supervisor.Cooldown())
			},
		},
		{
			name:        "invalid yaml",
			configYAML:  "daemon: [unterminated",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfigFromFile(writeConfig(t, tt.configYAML))

			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			tt.validate(t, config)
		})
	}
}

func TestLoadConfigFromFile_Missing(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.True(t, errors.IsIOError(err))
}

func TestValidateConfig(t *testing.T) {
	negative := -time.Second

	tests := []struct {
		name   string
		mutate func(*GuardConfig)
	}{
		{"empty executable", func(c *GuardConfig) { c.Daemon.ExecutablePath = "" }},
		{"empty process name", func(c *GuardConfig) { c.Daemon.ProcessName = "" }},
		{"negative cooldown", func(c *GuardConfig) { c.Supervisor.RestartCooldown = &negative }},
		{"zero line buffer", func(c *GuardConfig) { c.Supervisor.LineBuffer = 0 }},
		{"bad env", func(c *GuardConfig) { c.Daemon.Environment = []string{"BROKEN"} }},
		{"bad level", func(c *GuardConfig) { c.Logging.Level = "loud" }},
		{"bad format", func(c *GuardConfig) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := ValidateConfig(config)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}

	assert.Error(t, ValidateConfig(nil))
}
