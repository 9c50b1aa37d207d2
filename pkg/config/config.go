package config

import (
	"os"
	"time"

	"github.com/core-tools/hsu-ocdguard/pkg/errors"
	"github.com/core-tools/hsu-ocdguard/pkg/launch"
	"github.com/core-tools/hsu-ocdguard/pkg/logging"
	"github.com/core-tools/hsu-ocdguard/pkg/process"
	"github.com/core-tools/hsu-ocdguard/pkg/pump"

	"gopkg.in/yaml.v3"
)

const (
	DefaultExecutablePath  = "/opt/rpi-openocd/src/openocd"
	DefaultProcessName     = "openocd"
	DefaultScriptsDir      = "/opt/rpi-openocd/tcl"
	DefaultInterfaceConfig = "interface/picoprobe.cfg"
	DefaultTargetConfig    = "target/rp2040.cfg"
	DefaultRestartCooldown = time.Second
)

// GuardConfig represents the top-level configuration file structure
type GuardConfig struct {
	Daemon     DaemonConfig      `yaml:"daemon"`
	Supervisor SupervisorConfig  `yaml:"supervisor"`
	Logging    logging.ZapConfig `yaml:"logging"`
}

// DaemonConfig describes the supervised executable and its fixed argument layout
type DaemonConfig struct {
	process.ExecutionConfig `yaml:",inline"`
	launch.Layout           `yaml:",inline"`

	// ProcessName is the name stale instances are reaped by on a port conflict
	ProcessName string `yaml:"process_name"`
}

type SupervisorConfig struct {
	RestartCooldown *time.Duration `yaml:"restart_cooldown,omitempty"` // nil means default; 0 is allowed
	LineBuffer      int            `yaml:"line_buffer,omitempty"`
	CaptureFile     string         `yaml:"capture_file,omitempty"`
}

// Cooldown returns the configured restart cooldown or the default
func (s SupervisorConfig) Cooldown() time.Duration {
	if s.RestartCooldown == nil {
		return DefaultRestartCooldown
	}
	return *s.RestartCooldown
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *GuardConfig {
	config := &GuardConfig{}
	setConfigDefaults(config)
	return config
}

// LoadConfigFromFile loads configuration from a YAML file and applies defaults
func LoadConfigFromFile(filename string) (*GuardConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).WithContext("filename", filename)
	}

	var config GuardConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).WithContext("filename", filename)
	}

	setConfigDefaults(&config)

	return &config, nil
}

// ValidateConfig validates the entire configuration structure
func ValidateConfig(config *GuardConfig) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}

	if err := process.ValidateExecutionConfig(config.Daemon.ExecutionConfig); err != nil {
		return errors.NewValidationError("invalid daemon configuration", err)
	}
	if config.Daemon.ProcessName == "" {
		return errors.NewValidationError("daemon process name is required", nil)
	}

	if config.Supervisor.Cooldown() < 0 {
		return errors.NewValidationError("restart cooldown cannot be negative", nil)
	}
	if config.Supervisor.LineBuffer < 1 {
		return errors.NewValidationError("line buffer must be at least 1", nil)
	}

	if !logging.IsValidLevel(config.Logging.Level) {
		return errors.NewValidationError("invalid log level: "+config.Logging.Level, nil)
	}
	switch config.Logging.Format {
	case "console", "json":
	default:
		return errors.NewValidationError("log format must be 'console' or 'json'", nil)
	}

	return nil
}

func setConfigDefaults(config *GuardConfig) {
	daemon := &config.Daemon
	if daemon.ExecutablePath == "" {
		daemon.ExecutablePath = DefaultExecutablePath
	}
	if daemon.ProcessName == "" {
		daemon.ProcessName = DefaultProcessName
	}
	if daemon.ScriptsDir == "" {
		daemon.ScriptsDir = DefaultScriptsDir
	}
	if daemon.InterfaceConfig == "" {
		daemon.InterfaceConfig = DefaultInterfaceConfig
	}
	if daemon.TargetConfig == "" {
		daemon.TargetConfig = DefaultTargetConfig
	}

	if config.Supervisor.LineBuffer == 0 {
		config.Supervisor.LineBuffer = pump.DefaultCapacity
	}

	defaults := logging.DefaultZapConfig()
	if config.Logging.Level == "" {
		config.Logging.Level = defaults.Level
	}
	if config.Logging.Format == "" {
		config.Logging.Format = defaults.Format
	}
	if config.Logging.Output == "" {
		config.Logging.Output = defaults.Output
	}
}
