package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

var (
	// ErrOutsideRoots is returned for paths not under any declared root
	ErrOutsideRoots = errors.New("path is outside the declared roots")
	// ErrProtectedPath is returned for protected system locations
	ErrProtectedPath = errors.New("refusing to delete protected path")
	// ErrUnsafePath is returned for relative, unclean or malformed paths
	ErrUnsafePath = errors.New("unsafe path")
)

// PathValidator handles secure path validation for file operations
type PathValidator struct {
	protectedPaths []string
	roots          *ResolveCache
}

// NewPathValidator creates a new PathValidator with default protected paths
func NewPathValidator() *PathValidator {
	return &PathValidator{
		protectedPaths: DefaultProtectedPaths(),
		roots:          NewResolveCache(30 * time.Second),
	}
}

// DefaultProtectedPaths returns the system locations of the running OS
func DefaultProtectedPaths() []string {
	if runtime.GOOS == "windows" {
		drive := os.Getenv("SystemDrive")
		if drive == "" {
			drive = "C:"
		}
		windir := os.Getenv("SystemRoot")
		if windir == "" {
			windir = drive + `\Windows`
		}
		return []string{
			drive + `\`,
			windir,
			filepath.Join(windir, "System32"),
			filepath.Join(windir, "SysWOW64"),
			filepath.Join(windir, "WinSxS"),
			filepath.Join(windir, "Boot"),
			drive + `\Program Files`,
			drive + `\Program Files (x86)`,
			drive + `\ProgramData`,
			drive + `\Users`,
		}
	}
	return []string{
		"/",
		"/bin",
		"/boot",
		"/dev",
		"/etc",
		"/lib",
		"/lib64",
		"/proc",
		"/root",
		"/sbin",
		"/sys",
		"/usr",
		"/var",
		"/System",
		"/Applications",
		"/Library/System",
	}
}

// ValidateContained performs every check that must pass before a file under
// one of roots is deleted. It is the single source of truth for deletion safety.
// declared holds the host directories the roots were derived from; the
// file's parent must resolve inside the declared directory enclosing it.
// With no declared directories the roots themselves are used.
func (pv *PathValidator) ValidateContained(path string, roots, declared []string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: path must be absolute: %s", ErrUnsafePath, path)
	}
	if filepath.Clean(path) != path {
		return fmt.Errorf("%w: path contains suspicious elements: %s", ErrUnsafePath, path)
	}
	if strings.ContainsAny(path, "\x00\n\r") {
		return fmt.Errorf("%w: path contains control characters: %q", ErrUnsafePath, path)
	}

	root, ok := EnclosingRoot(roots, path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOutsideRoots, path)
	}

	if len(declared) == 0 {
		declared = roots
	}
	anchor, ok := EnclosingRoot(declared, path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOutsideRoots, path)
	}

	// The parent, or any directory above it, may have been swapped for a
	// link since enumeration.
	dir := filepath.Dir(path)
	if path != root {
		if err := pv.checkResolved(root, dir); err != nil {
			return err
		}
	}
	if path != anchor {
		if err := pv.checkResolved(anchor, dir); err != nil {
			return err
		}
	}

	return pv.checkProtectedPaths(path, path == root)
}

func (pv *PathValidator) checkResolved(root, dir string) error {
	resolvedDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("failed to resolve symlinks: %w", err)
	}
	resolvedRoot, err := pv.roots.Resolve(root)
	if err != nil {
		return fmt.Errorf("failed to resolve root: %w", err)
	}
	if !IsWithin(resolvedRoot, resolvedDir) {
		return fmt.Errorf("%w: %s resolves to %s", ErrOutsideRoots, dir, resolvedDir)
	}
	return nil
}

// checkProtectedPaths rejects protected paths and their direct children.
// Paths named explicitly as a root (e.g. a single dump file) only fail on an exact match.
func (pv *PathValidator) checkProtectedPaths(cleanPath string, declared bool) error {
	for _, protected := range pv.protectedPaths {
		if samePath(cleanPath, protected) {
			return fmt.Errorf("%w: %s", ErrProtectedPath, cleanPath)
		}
		if declared {
			continue
		}

		rel, err := filepath.Rel(protected, cleanPath)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		if !strings.ContainsRune(rel, filepath.Separator) {
			return fmt.Errorf("%w: critical system path: %s", ErrProtectedPath, cleanPath)
		}
	}

	return nil
}

// IsProtectedPath checks if a path is a protected system path or lies below one
func (pv *PathValidator) IsProtectedPath(path string) bool {
	cleanPath := filepath.Clean(path)
	for _, protected := range pv.protectedPaths {
		if IsWithin(protected, cleanPath) {
			return true
		}
	}
	return false
}

// AddProtectedPath adds a custom protected path
func (pv *PathValidator) AddProtectedPath(path string) {
	pv.protectedPaths = append(pv.protectedPaths, filepath.Clean(path))
}

// IsWithin reports whether path equals root or lies beneath it.
// The comparison is lexical and case-insensitive on Windows.
func IsWithin(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if samePath(root, path) {
		return true
	}

	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if runtime.GOOS == "windows" {
		return strings.HasPrefix(strings.ToLower(path), strings.ToLower(prefix))
	}
	return strings.HasPrefix(path, prefix)
}

// LinkFree returns an error if any directory strictly between root and path
// is a link, junction or other non-directory. path must lie below root.
func LinkFree(root, path string) error {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if !IsWithin(root, path) {
		return fmt.Errorf("%w: %s", ErrOutsideRoots, path)
	}
	if samePath(root, path) {
		return nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	parts := strings.Split(rel, string(filepath.Separator))

	current := root
	for _, part := range parts[:len(parts)-1] {
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: %s is not a plain directory", ErrUnsafePath, current)
		}
	}
	return nil
}

// EnclosingRoot returns the first root that contains path
func EnclosingRoot(roots []string, path string) (string, bool) {
	for _, root := range roots {
		if IsWithin(root, path) {
			return filepath.Clean(root), true
		}
	}
	return "", false
}

// PathKey normalizes a path for de-duplication
func PathKey(path string) string {
	path = filepath.Clean(path)
	if runtime.GOOS == "windows" {
		return strings.ToLower(path)
	}
	return path
}

func samePath(a, b string) bool {
	return PathKey(a) == PathKey(b)
}

// ValidateGlobPattern validates that a glob pattern is safe
func ValidateGlobPattern(pattern string) error {
	if strings.Contains(pattern, "..") {
		return fmt.Errorf("glob pattern contains directory traversal: %s", pattern)
	}

	if _, err := filepath.Match(pattern, "test"); err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}

	return nil
}
