package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fenilsonani/winsweep/internal/logging"
	"github.com/fenilsonani/winsweep/internal/platform"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/fenilsonani/winsweep/internal/security"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. WINSWEEP_DRY_RUN=true
const EnvPrefix = "WINSWEEP"

// Config represents the application configuration
type Config struct {
	Targets         []string            `yaml:"targets" mapstructure:"targets"`
	Host            HostConfig          `yaml:"host" mapstructure:"host"`
	Browsers        map[string][]string `yaml:"browsers" mapstructure:"browsers"`
	ExcludePatterns []string            `yaml:"exclude_patterns" mapstructure:"exclude_patterns"`
	ProtectedPaths  []string            `yaml:"protected_paths" mapstructure:"protected_paths"`
	DryRun          bool                `yaml:"dry_run" mapstructure:"dry_run"`
	Workers         int                 `yaml:"workers" mapstructure:"workers"`
	PruneEmptyDirs  bool                `yaml:"prune_empty_dirs" mapstructure:"prune_empty_dirs"`
	Logging         LoggingConfig       `yaml:"logging" mapstructure:"logging"`
	History         HistoryConfig       `yaml:"history" mapstructure:"history"`
	API             APIConfig           `yaml:"api" mapstructure:"api"`
	Launcher        LauncherConfig      `yaml:"launcher" mapstructure:"launcher"`
	Daemon          *DaemonConfig       `yaml:"daemon,omitempty" mapstructure:"daemon"`
}

// HostConfig overrides detected host locations; empty values keep detection
type HostConfig struct {
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
	UserProfile string `yaml:"user_profile" mapstructure:"user_profile"`
	WindowsDir  string `yaml:"windows_dir" mapstructure:"windows_dir"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// HistoryConfig holds the sweep history store settings
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Driver  string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	// Runs older than this are pruned by the daemon; 0 keeps everything
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"`
}

// APIConfig holds the local HTTP API settings
type APIConfig struct {
	Listen         string   `yaml:"listen" mapstructure:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LauncherConfig holds settings for external maintenance tools
type LauncherConfig struct {
	Drive string `yaml:"drive" mapstructure:"drive"`
}

// DaemonConfig holds daemon mode configuration
type DaemonConfig struct {
	Enabled   bool            `yaml:"enabled" mapstructure:"enabled"`
	PidFile   string          `yaml:"pid_file" mapstructure:"pid_file"`
	Schedules []SweepSchedule `yaml:"schedules" mapstructure:"schedules"`
}

// SweepSchedule defines a scheduled sweep
type SweepSchedule struct {
	Name     string   `yaml:"name" mapstructure:"name"`
	Schedule string   `yaml:"schedule" mapstructure:"schedule"` // Cron expression
	Targets  []string `yaml:"targets" mapstructure:"targets"`
	DryRun   bool     `yaml:"dry_run" mapstructure:"dry_run"`
}

// Load reads configuration from configPath layered over the defaults, then
// applies WINSWEEP_* environment overrides. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults, err := yaml.Marshal(GetDefault())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := v.MergeConfig(bytes.NewReader(data)); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Save saves configuration to a file
func Save(config *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Write renders the configuration as YAML
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := scanner.ParseTargets(c.Targets); err != nil {
		return fmt.Errorf("targets: %w", err)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}

	for _, pattern := range c.ExcludePatterns {
		if err := validateExcludePattern(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
	}

	for _, path := range c.ProtectedPaths {
		if !filepath.IsAbs(path) {
			return fmt.Errorf("protected path must be absolute: %s", path)
		}
	}

	for vendor, paths := range c.Browsers {
		for _, p := range paths {
			if err := security.ValidateGlobPattern(p); err != nil {
				return fmt.Errorf("browser %s: %w", vendor, err)
			}
		}
	}

	switch c.History.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown history driver: %s", c.History.Driver)
	}
	if c.History.Driver == "postgres" && c.History.DSN == "" {
		return fmt.Errorf("history dsn is required for postgres")
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history retention_days must be >= 0")
	}

	if c.Daemon != nil {
		seen := make(map[string]bool)
		for _, sched := range c.Daemon.Schedules {
			if sched.Name == "" {
				return fmt.Errorf("schedule name is required")
			}
			if seen[sched.Name] {
				return fmt.Errorf("duplicate schedule name: %s", sched.Name)
			}
			seen[sched.Name] = true
			if _, err := cron.ParseStandard(sched.Schedule); err != nil {
				return fmt.Errorf("schedule %s: invalid cron expression %q: %w", sched.Name, sched.Schedule, err)
			}
			if _, err := scanner.ParseTargets(sched.Targets); err != nil {
				return fmt.Errorf("schedule %s: %w", sched.Name, err)
			}
		}
	}

	return nil
}

func validateExcludePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("pattern is empty")
	}
	if strings.Contains(pattern, "..") {
		return fmt.Errorf("pattern contains directory traversal")
	}
	return nil
}

// EnabledTargets parses the configured target names
func (c *Config) EnabledTargets() []scanner.Target {
	targets, err := scanner.ParseTargets(c.Targets)
	if err != nil {
		return nil
	}
	return targets
}

// HostEnvironment detects the host and applies the configured overrides
func (c *Config) HostEnvironment() *platform.HostEnvironment {
	return platform.Detect(c.Overrides())
}

// Overrides converts the host and browser sections for platform detection
func (c *Config) Overrides() platform.Overrides {
	return platform.Overrides{
		TempDir:       c.Host.TempDir,
		UserProfile:   c.Host.UserProfile,
		WindowsDir:    c.Host.WindowsDir,
		BrowserCaches: c.Browsers,
	}
}

// LoggerOptions converts the logging section, writing to console as well
func (c *Config) LoggerOptions(console io.Writer) logging.Options {
	return logging.Options{
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Console:    console,
	}
}

// GetConfigDir returns the per-user configuration directory
func GetConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "winsweep"), nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "winsweep"), nil
}

// GetConfigPath returns the default config path
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigExists creates a default config file if it doesn't exist
func EnsureConfigExists() (string, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := Save(GetDefault(), configPath); err != nil {
			return "", err
		}
	}

	return configPath, nil
}
