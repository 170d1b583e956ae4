package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fenilsonani/winsweep/internal/scanner"
)

// =============================================================================
// GetDefault Tests
// =============================================================================

func TestGetDefault(t *testing.T) {
	cfg := GetDefault()

	if cfg == nil {
		t.Fatal("GetDefault returned nil")
	}

	targets := cfg.EnabledTargets()
	if len(targets) != len(scanner.QuickTargets()) {
		t.Errorf("expected quick-clean selection by default, got %v", targets)
	}
	for _, target := range targets {
		if target.Kind == scanner.Prefetch || target.Kind == scanner.DumpFiles {
			t.Errorf("expected %s to be disabled by default", target)
		}
	}
	if cfg.DryRun {
		t.Error("expected DryRun to be false by default")
	}
	if cfg.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Workers)
	}
	if !cfg.PruneEmptyDirs {
		t.Error("expected PruneEmptyDirs to be enabled by default")
	}
	if cfg.Daemon != nil {
		t.Error("expected no daemon section by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing", "config.yaml"))
	if err != nil {
		t.Fatalf("Load should not error for non-existent file: %v", err)
	}

	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.Workers != GetDefault().Workers {
		t.Errorf("expected default workers, got %d", cfg.Workers)
	}
}

func TestLoadValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
targets: [temp, prefetch, dumps, "browser:firefox"]
host:
  temp_dir: /sandbox/tmp
dry_run: true
workers: 8
exclude_patterns:
  - "*.log"
browsers:
  chrome:
    - AppData/Local/Chromium/User Data/Default/Cache
logging:
  level: debug
history:
  enabled: false
daemon:
  enabled: true
  schedules:
    - name: nightly
      schedule: "0 2 * * *"
      targets: [temp]
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.EnabledTargets()) != 4 {
		t.Errorf("expected 4 targets, got %v", cfg.Targets)
	}
	if cfg.Host.TempDir != "/sandbox/tmp" {
		t.Errorf("expected temp_dir override, got %q", cfg.Host.TempDir)
	}
	if !cfg.DryRun {
		t.Error("expected DryRun to be true")
	}
	if cfg.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Workers)
	}
	if len(cfg.ExcludePatterns) != 1 || cfg.ExcludePatterns[0] != "*.log" {
		t.Errorf("expected exclude patterns to be replaced, got %v", cfg.ExcludePatterns)
	}
	if len(cfg.Browsers["chrome"]) != 1 {
		t.Errorf("expected chrome override, got %v", cfg.Browsers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug logging, got %q", cfg.Logging.Level)
	}
	if cfg.History.Enabled {
		t.Error("expected history to be disabled")
	}
	if cfg.History.Driver != "sqlite" {
		t.Errorf("expected default driver to survive a partial section, got %q", cfg.History.Driver)
	}
	if cfg.Daemon == nil || len(cfg.Daemon.Schedules) != 1 {
		t.Fatalf("expected one schedule, got %+v", cfg.Daemon)
	}
	if cfg.Daemon.Schedules[0].Schedule != "0 2 * * *" {
		t.Errorf("unexpected schedule %q", cfg.Daemon.Schedules[0].Schedule)
	}
}

func TestLoadPartialConfig(t *testing.T) {
	configPath := writeConfig(t, `
dry_run: true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.DryRun {
		t.Error("expected DryRun to be true (overridden)")
	}
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("expected default max backups 3, got %d", cfg.Logging.MaxBackups)
	}
	if cfg.API.Listen != "127.0.0.1:8765" {
		t.Errorf("expected default listen address, got %q", cfg.API.Listen)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, `
workers: 2
`)
	t.Setenv("WINSWEEP_DRY_RUN", "true")
	t.Setenv("WINSWEEP_WORKERS", "6")
	t.Setenv("WINSWEEP_LOGGING_LEVEL", "error")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.DryRun {
		t.Error("expected WINSWEEP_DRY_RUN to enable dry run")
	}
	if cfg.Workers != 6 {
		t.Errorf("expected env to win over file, got %d workers", cfg.Workers)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("expected nested env override, got %q", cfg.Logging.Level)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	configPath := writeConfig(t, `
targets: [temp
dry_run: true
`)

	if _, err := Load(configPath); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"unknown target", "targets: [registry]\n", "unknown target"},
		{"unknown vendor", "targets: [\"browser:netscape\"]\n", "unknown browser vendor"},
		{"zero workers", "workers: 0\n", "workers"},
		{"traversal in exclude", "exclude_patterns: [\"../*\"]\n", "directory traversal"},
		{"relative protected path", "protected_paths: [relative/path]\n", "must be absolute"},
		{"unknown history driver", "history:\n  driver: mysql\n", "unknown history driver"},
		{"postgres without dsn", "history:\n  driver: postgres\n", "dsn is required"},
		{"bad cron", "daemon:\n  schedules:\n    - name: x\n      schedule: \"every day\"\n", "invalid cron"},
		{"duplicate schedule", "daemon:\n  schedules:\n    - name: x\n      schedule: \"@daily\"\n    - name: x\n      schedule: \"@hourly\"\n", "duplicate schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error %q does not mention %q", err, tt.errMsg)
			}
		})
	}
}

// =============================================================================
// Save Tests
// =============================================================================

func TestSaveAndLoadRoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")

	original := GetDefault()
	original.Targets = []string{"temp", "dumps"}
	original.DryRun = true
	original.Workers = 3
	original.Daemon = &DaemonConfig{
		Enabled: true,
		Schedules: []SweepSchedule{
			{Name: "weekly", Schedule: "@weekly", Targets: []string{"thumbnails"}},
		},
	}

	if err := Save(original, configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.Targets) != 2 || loaded.Targets[1] != "dumps" {
		t.Errorf("targets mismatch: %v", loaded.Targets)
	}
	if !loaded.DryRun || loaded.Workers != 3 {
		t.Errorf("dry_run/workers mismatch: %v/%d", loaded.DryRun, loaded.Workers)
	}
	if loaded.Daemon == nil || loaded.Daemon.Schedules[0].Name != "weekly" {
		t.Errorf("daemon mismatch: %+v", loaded.Daemon)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := GetDefault().Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "prune_empty_dirs: true") {
		t.Errorf("rendered config missing prune_empty_dirs:\n%s", buf.String())
	}
}

// =============================================================================
// Host Environment Tests
// =============================================================================

func TestHostEnvironmentOverrides(t *testing.T) {
	root := t.TempDir()
	cfg := GetDefault()
	cfg.Host = HostConfig{
		TempDir:     filepath.Join(root, "tmp"),
		UserProfile: filepath.Join(root, "profile"),
		WindowsDir:  filepath.Join(root, "Windows"),
	}

	env := cfg.HostEnvironment()
	if env.TempDir != cfg.Host.TempDir || env.UserProfile != cfg.Host.UserProfile || env.WindowsDir != cfg.Host.WindowsDir {
		t.Errorf("overrides not applied: %+v", env)
	}
	if len(env.BrowserCaches) == 0 {
		t.Error("expected default browser caches")
	}
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}

	if !filepath.IsAbs(path) {
		t.Error("GetConfigPath should return absolute path")
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("expected path to end with config.yaml, got %s", filepath.Base(path))
	}
	if filepath.Base(filepath.Dir(path)) != "winsweep" {
		t.Errorf("expected winsweep config directory, got %s", filepath.Dir(path))
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}
