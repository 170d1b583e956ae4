package config

import "path/filepath"

// GetDefault returns the default configuration
func GetDefault() *Config {
	return &Config{
		// Same selection as the quick clean.
		Targets: []string{"temp", "browsers", "thumbnails"},
		Host:    HostConfig{},
		ExcludePatterns: []string{
			"*.keep",
			"*\\important\\*",
			"*/important/*",
		},
		ProtectedPaths: []string{},
		DryRun:         false,
		Workers:        4,
		PruneEmptyDirs: true,
		Logging: LoggingConfig{
			Level:      "warn",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		History: HistoryConfig{
			Enabled:       true,
			Driver:        "sqlite",
			RetentionDays: 90,
		},
		API: APIConfig{
			Listen:         "127.0.0.1:8765",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Launcher: LauncherConfig{
			Drive: "C:",
		},
	}
}

// DefaultHistoryDSN places the sqlite database next to the config file
func DefaultHistoryDSN() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// DefaultLogFile places the log file next to the config file
func DefaultLogFile() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs", "winsweep.log"), nil
}
