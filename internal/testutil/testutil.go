// Package testutil provides a sandboxed Windows-style host tree for winsweep tests.
// All file operations use t.TempDir() for safe, isolated testing.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/fenilsonani/winsweep/internal/platform"
)

// TestFixture holds the sandbox layout
type TestFixture struct {
	T       *testing.T
	RootDir string // Root temp directory (auto-cleaned)

	TempDir    string // stands in for %TEMP%
	ProfileDir string // stands in for %USERPROFILE%
	WindowsDir string // stands in for %SystemRoot%
	OutsideDir string // never part of any root
}

// NewFixture creates the sandbox directories
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()

	root := t.TempDir()

	f := &TestFixture{
		T:          t,
		RootDir:    root,
		TempDir:    filepath.Join(root, "tmp"),
		ProfileDir: filepath.Join(root, "Users", "tester"),
		WindowsDir: filepath.Join(root, "Windows"),
		OutsideDir: filepath.Join(root, "outside"),
	}

	for _, dir := range []string{f.TempDir, f.ProfileDir, f.WindowsDir, f.OutsideDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	return f
}

// Env returns a HostEnvironment rooted in the sandbox with the stock browser layout
func (f *TestFixture) Env() *platform.HostEnvironment {
	return &platform.HostEnvironment{
		TempDir:       f.TempDir,
		UserProfile:   f.ProfileDir,
		WindowsDir:    f.WindowsDir,
		BrowserCaches: platform.DefaultBrowserCaches(),
	}
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file below the sandbox root and returns its path
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()
	return writeFile(f.T, filepath.Join(f.RootDir, relPath), content)
}

// CreateTempFile creates a file below TempDir
func (f *TestFixture) CreateTempFile(relPath string, content []byte) string {
	f.T.Helper()
	return writeFile(f.T, filepath.Join(f.TempDir, relPath), content)
}

// CreateProfileFile creates a file below ProfileDir
func (f *TestFixture) CreateProfileFile(relPath string, content []byte) string {
	f.T.Helper()
	return writeFile(f.T, filepath.Join(f.ProfileDir, relPath), content)
}

// CreateWindowsFile creates a file below WindowsDir
func (f *TestFixture) CreateWindowsFile(relPath string, content []byte) string {
	f.T.Helper()
	return writeFile(f.T, filepath.Join(f.WindowsDir, relPath), content)
}

// CreateOutsideFile creates a file that no target may touch
func (f *TestFixture) CreateOutsideFile(relPath string, content []byte) string {
	f.T.Helper()
	return writeFile(f.T, filepath.Join(f.OutsideDir, relPath), content)
}

// CreateFileWithAge creates a file and backdates its modification time
func (f *TestFixture) CreateFileWithAge(relPath string, content []byte, age time.Duration) string {
	f.T.Helper()

	path := f.CreateFile(relPath, content)
	past := time.Now().Add(-age)
	if err := os.Chtimes(path, past, past); err != nil {
		f.T.Fatalf("failed to set file time: %v", err)
	}
	return path
}

// CreateDir creates a directory below the sandbox root
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}
	return fullPath
}

// CreateSymlink creates linkPath pointing at target, skipping the test
// where the OS does not allow unprivileged links
func (f *TestFixture) CreateSymlink(target, linkPath string) string {
	f.T.Helper()

	if err := os.MkdirAll(filepath.Dir(linkPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", linkPath, err)
	}
	if err := os.Symlink(target, linkPath); err != nil {
		if runtime.GOOS == "windows" {
			f.T.Skipf("symlinks unavailable: %v", err)
		}
		f.T.Fatalf("failed to create symlink %s -> %s: %v", linkPath, target, err)
	}
	return linkPath
}

// MakeUnreadable removes all permissions from dir for the rest of the test.
// It skips when the OS or the current user ignores directory permissions.
func (f *TestFixture) MakeUnreadable(dir string) {
	f.T.Helper()

	if runtime.GOOS == "windows" {
		f.T.Skip("directory permissions are not enforced through chmod on Windows")
	}
	if os.Geteuid() == 0 {
		f.T.Skip("running as root bypasses directory permissions")
	}
	if err := os.Chmod(dir, 0); err != nil {
		f.T.Fatalf("failed to chmod %s: %v", dir, err)
	}
	f.T.Cleanup(func() { _ = os.Chmod(dir, 0755) })
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// FileExists checks if a path exists without following links
func (f *TestFixture) FileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// AssertFileExists fails the test if the file doesn't exist
func (f *TestFixture) AssertFileExists(path string) {
	f.T.Helper()
	if !f.FileExists(path) {
		f.T.Errorf("expected file to exist: %s", path)
	}
}

// AssertFileNotExists fails the test if the file exists
func (f *TestFixture) AssertFileNotExists(path string) {
	f.T.Helper()
	if f.FileExists(path) {
		f.T.Errorf("expected file to not exist: %s", path)
	}
}

// CountFiles returns the number of regular files below dir
func (f *TestFixture) CountFiles(dir string) int {
	f.T.Helper()

	count := 0
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			count++
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		f.T.Fatalf("failed to walk %s: %v", dir, err)
	}
	return count
}

// IsEmptyDir reports whether dir exists and has no entries
func (f *TestFixture) IsEmptyDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) == 0
}

func writeFile(t *testing.T, path string, content []byte) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to create file %s: %v", path, err)
	}
	return path
}
