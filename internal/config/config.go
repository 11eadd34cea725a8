package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config represents the focusblock process configuration. Everything here is
// local plumbing; user-facing settings (default mode, session duration,
// parent unlock) live in the shared state file instead.
type Config struct {
	StatePath  string    `mapstructure:"state_path"`
	HistoryCap int       `mapstructure:"history_cap"`
	Agent      Agent     `mapstructure:"agent"`
	Intervals  Intervals `mapstructure:"intervals"`
}

// Agent describes how to reach the enforcement agent binary.
type Agent struct {
	Path           string   `mapstructure:"path"`
	Args           []string `mapstructure:"args"`
	CallTimeout    string   `mapstructure:"call_timeout"`
	ReconnectDelay string   `mapstructure:"reconnect_delay"`
}

// Intervals tunes the daemon's periodic loops.
type Intervals struct {
	Poll       string `mapstructure:"poll"`
	Schedule   string `mapstructure:"schedule"`
	Supervisor string `mapstructure:"supervisor"`
}

// CallTimeoutDuration returns the one-shot call timeout.
// Defaults to 10s when not explicitly set.
func (a *Agent) CallTimeoutDuration() time.Duration {
	return parseDuration(a.CallTimeout, 10*time.Second)
}

// ReconnectDelayDuration returns the persistent-connection retry delay.
// Defaults to 10s when not explicitly set.
func (a *Agent) ReconnectDelayDuration() time.Duration {
	return parseDuration(a.ReconnectDelay, 10*time.Second)
}

// PollDuration returns the reconciliation interval. Defaults to 15s.
func (i *Intervals) PollDuration() time.Duration {
	return parseDuration(i.Poll, 15*time.Second)
}

// ScheduleDuration returns the schedule check interval. Defaults to 1m.
func (i *Intervals) ScheduleDuration() time.Duration {
	return parseDuration(i.Schedule, time.Minute)
}

// SupervisorDuration returns the liveness check interval. Defaults to 30s.
func (i *Intervals) SupervisorDuration() time.Duration {
	return parseDuration(i.Supervisor, 30*time.Second)
}

// parseDuration parses a duration string, falling back on empty or invalid input.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Load loads the configuration from ~/.focusblock/config.yaml or returns defaults
func Load() (*Config, error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}

	// Set up viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	// Set defaults
	setDefaults(configDir)

	// Try to read config file, but don't fail if it doesn't exist
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred
			return nil, err
		}
		// Config file not found, use defaults
	}

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Expand ~ in paths
	cfg.StatePath, err = homedir.Expand(cfg.StatePath)
	if err != nil {
		return nil, err
	}
	cfg.Agent.Path, err = homedir.Expand(cfg.Agent.Path)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(configDir string) {
	viper.SetDefault("state_path", filepath.Join(configDir, "state.json"))
	viper.SetDefault("history_cap", 100)

	// The agent binary is resolved via PATH unless configured explicitly.
	viper.SetDefault("agent.path", "focus-blocker-native")
	viper.SetDefault("agent.args", []string{})
	viper.SetDefault("agent.call_timeout", "10s")
	viper.SetDefault("agent.reconnect_delay", "10s")

	viper.SetDefault("intervals.poll", "15s")
	viper.SetDefault("intervals.schedule", "1m")
	viper.SetDefault("intervals.supervisor", "30s")
}

// Dir returns the focusblock configuration directory path
func Dir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".focusblock"), nil
}

// EnsureDir creates the config directory if it doesn't exist
func EnsureDir() error {
	configDir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(configDir, 0755)
}
