//go:build windows

package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sys/windows/registry"
)

// SetAutostart registers or removes the running executable under the
// current user's Run key. Removing a value that is not there succeeds.
func SetAutostart(enabled bool) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE|registry.QUERY_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open Run key: %w", err)
	}
	defer key.Close()

	if !enabled {
		err := key.DeleteValue(AutostartValue)
		if err != nil && !errors.Is(err, registry.ErrNotExist) {
			return fmt.Errorf("failed to remove autostart entry: %w", err)
		}
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	if err := key.SetStringValue(AutostartValue, `"`+exe+`"`); err != nil {
		return fmt.Errorf("failed to write autostart entry: %w", err)
	}
	return nil
}

// AutostartEnabled reports whether the autostart value exists
func AutostartEnabled() (bool, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open Run key: %w", err)
	}
	defer key.Close()

	_, _, err = key.GetStringValue(AutostartValue)
	if errors.Is(err, registry.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read autostart entry: %w", err)
	}
	return true, nil
}

// runSources are the Run keys read for startup programs
var runSources = []struct {
	root  registry.Key
	scope Scope
}{
	{registry.CURRENT_USER, ScopeUser},
	{registry.LOCAL_MACHINE, ScopeMachine},
}

// ListStartupEntries reads the user and machine Run keys
func ListStartupEntries() ([]StartupEntry, error) {
	var entries []StartupEntry

	for _, src := range runSources {
		found, err := readRunKey(src.root, src.scope)
		if err != nil {
			// HKLM may be unreadable for standard users; skip it.
			continue
		}
		entries = append(entries, found...)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Scope != entries[j].Scope {
			return entries[i].Scope > entries[j].Scope
		}
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}

func readRunKey(root registry.Key, scope Scope) ([]StartupEntry, error) {
	key, err := registry.OpenKey(root, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	names, err := key.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}

	entries := make([]StartupEntry, 0, len(names))
	for _, name := range names {
		command, _, err := key.GetStringValue(name)
		if err != nil {
			continue
		}
		entries = append(entries, StartupEntry{Name: name, Command: command, Scope: scope})
	}
	return entries, nil
}
