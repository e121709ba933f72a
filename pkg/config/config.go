package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/welllog/pkg/fault"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config represents the welllog configuration
type Config struct {
	Policy  Policy  `yaml:"policy"`
	Logging Logging `yaml:"logging"`
	Catalog Catalog `yaml:"catalog"`
}

// Policy maps each problem severity to an action, "log" or "raise"
type Policy struct {
	Info     string `yaml:"info"`
	Warning  string `yaml:"warning"`
	Critical string `yaml:"critical"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// Catalog contains the object catalog configuration
type Catalog struct {
	Dir string `yaml:"dir"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Policy: Policy{
			Info:     "log",
			Warning:  "log",
			Critical: "log",
		},
		Logging: Logging{
			Level: "info",
		},
		Catalog: Catalog{
			Dir: "./catalog",
		},
	}
}

// StrictPolicy raises warnings and critical problems
func StrictPolicy() Policy {
	return Policy{Info: "log", Warning: "raise", Critical: "raise"}
}

// LoadConfig loads configuration from the specified path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, errors.Newf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, errors.Wrap(err, "invalid config path")
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %s", configPath)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// Validate checks the policy actions and the log level
func (c *Config) Validate() error {
	var errs error
	for _, p := range []struct{ name, action string }{
		{"info", c.Policy.Info},
		{"warning", c.Policy.Warning},
		{"critical", c.Policy.Critical},
	} {
		if _, err := fault.ParseAction(p.action); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "policy.%s", p.name))
		}
	}
	if _, err := c.Logging.ZapLevel(); err != nil {
		errs = errors.CombineErrors(errs, err)
	}
	return errs
}

// Handler builds the error handler described by the policy
func (c *Config) Handler(logger *zap.Logger) (*fault.Handler, error) {
	h := fault.NewHandler(logger)

	var err error
	if h.Info, err = fault.ParseAction(c.Policy.Info); err != nil {
		return nil, errors.Wrap(err, "policy.info")
	}
	if h.Warning, err = fault.ParseAction(c.Policy.Warning); err != nil {
		return nil, errors.Wrap(err, "policy.warning")
	}
	if h.Critical, err = fault.ParseAction(c.Policy.Critical); err != nil {
		return nil, errors.Wrap(err, "policy.critical")
	}
	return h, nil
}

// ZapLevel parses the configured level, info when empty
func (l Logging) ZapLevel() (zapcore.Level, error) {
	if l.Level == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return level, errors.Wrapf(err, "logging.level")
	}
	return level, nil
}

// NewLogger builds a production logger at the configured level, or a
// development logger at debug level
func (l Logging) NewLogger() (*zap.Logger, error) {
	level, err := l.ZapLevel()
	if err != nil {
		return nil, err
	}
	if level == zapcore.DebugLevel {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./welllog.yaml"
	}

	// For Linux/macOS, use ~/.config/welllog/config.yaml
	configDir := filepath.Join(homeDir, ".config", "welllog")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
