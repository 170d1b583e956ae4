package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fenilsonani/winsweep/internal/platform"
	"github.com/fenilsonani/winsweep/internal/security"
)

const thumbcachePattern = "thumbcache_*.db"

// Resolve maps a target to the paths it sweeps: directory roots to walk or
// single files. Missing paths are omitted, and nothing outside env's roots is
// ever returned. The only I/O is existence checks and pattern expansion.
func Resolve(t Target, env *platform.HostEnvironment) ([]string, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}

	var candidates []string

	switch t.Kind {
	case TempFiles:
		candidates = append(candidates, env.TempDir)
		if env.AltTempDir != "" {
			candidates = append(candidates, env.AltTempDir)
		}
		candidates = append(candidates, filepath.Join(env.UserProfile, "AppData", "Local", "Temp"))
		if env.WindowsDir != "" {
			candidates = append(candidates, filepath.Join(env.WindowsDir, "Temp"))
		}

	case Prefetch:
		if env.WindowsDir != "" {
			candidates = append(candidates, filepath.Join(env.WindowsDir, "Prefetch"))
		}

	case DumpFiles:
		if env.WindowsDir != "" {
			candidates = append(candidates,
				filepath.Join(env.WindowsDir, "Minidump"),
				filepath.Join(env.WindowsDir, "MEMORY.DMP"),
			)
		}

	case ThumbnailCache:
		explorer := filepath.Join(env.UserProfile, "AppData", "Local", "Microsoft", "Windows", "Explorer")
		candidates = append(candidates, expand(explorer, thumbcachePattern)...)

	case BrowserCache:
		for _, rel := range env.BrowserCaches[t.Vendor] {
			candidates = append(candidates, expand(env.UserProfile, rel)...)
		}

	default:
		return nil, fmt.Errorf("unknown target kind: %d", t.Kind)
	}

	return existing(candidates, env.Roots()), nil
}

// existing filters candidates down to unique, present, non-link paths inside roots
func existing(candidates []string, roots []string) []string {
	seen := make(map[string]bool, len(candidates))
	paths := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		path := filepath.Clean(candidate)
		key := security.PathKey(path)
		if seen[key] {
			continue
		}
		seen[key] = true

		root, ok := security.EnclosingRoot(roots, path)
		if !ok {
			continue
		}
		if err := security.LinkFree(root, path); os.IsNotExist(err) || errors.Is(err, security.ErrUnsafePath) {
			continue
		}

		info, err := os.Lstat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			// Keep it: the sweep reports it as unreadable.
			paths = append(paths, path)
			continue
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			continue
		}
		paths = append(paths, path)
	}

	return paths
}

// expand joins rel onto base, matching any segment that holds a pattern
// against directory entries. base itself is never treated as a pattern.
func expand(base, rel string) []string {
	if !hasMeta(rel) {
		return []string{filepath.Join(base, rel)}
	}

	current := []string{base}
	for _, segment := range strings.FieldsFunc(rel, isSeparator) {
		var next []string
		for _, dir := range current {
			if !hasMeta(segment) {
				next = append(next, filepath.Join(dir, segment))
				continue
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if entry.Type()&(fs.ModeSymlink|fs.ModeIrregular) != 0 {
					continue
				}
				if ok, _ := filepath.Match(segment, entry.Name()); ok {
					next = append(next, filepath.Join(dir, entry.Name()))
				}
			}
		}
		current = next
	}

	sort.Strings(current)
	return current
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, `*?[`)
}

func isSeparator(r rune) bool {
	return r == '/' || r == filepath.Separator
}
