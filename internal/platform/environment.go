package platform

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Browser vendors with a known cache layout
const (
	VendorChrome  = "chrome"
	VendorEdge    = "edge"
	VendorFirefox = "firefox"
	VendorOpera   = "opera"
	VendorBrave   = "brave"
)

// ErrInvalidEnvironment is matched by every EnvironmentError
var ErrInvalidEnvironment = errors.New("invalid host environment")

// EnvironmentError reports a HostEnvironment field that cannot be used
type EnvironmentError struct {
	Field  string
	Value  string
	Reason string
}

func (e *EnvironmentError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("host environment: %s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("host environment: %s %s: %q", e.Field, e.Reason, e.Value)
}

// Unwrap lets callers match with errors.Is(err, ErrInvalidEnvironment)
func (e *EnvironmentError) Unwrap() error {
	return ErrInvalidEnvironment
}

// HostEnvironment carries the roots a sweep is allowed to touch.
// It is built by callers and treated as read-only by the sweep engine.
type HostEnvironment struct {
	TempDir     string `json:"temp_dir"`
	UserProfile string `json:"user_profile"`
	// AltTempDir is %TMP% when it names a different directory than %TEMP%.
	AltTempDir string `json:"alt_temp_dir,omitempty"`
	// WindowsDir is optional; prefetch and dump targets resolve to nothing without it.
	WindowsDir string `json:"windows_dir,omitempty"`
	// BrowserCaches maps a vendor to cache directories relative to UserProfile.
	// Entries may contain * segments, e.g. Firefox profile names.
	BrowserCaches map[string][]string `json:"browser_caches"`
}

// DefaultBrowserCaches returns the stock cache locations per vendor
func DefaultBrowserCaches() map[string][]string {
	return map[string][]string{
		VendorChrome:  {filepath.Join("AppData", "Local", "Google", "Chrome", "User Data", "Default", "Cache")},
		VendorEdge:    {filepath.Join("AppData", "Local", "Microsoft", "Edge", "User Data", "Default", "Cache")},
		VendorFirefox: {filepath.Join("AppData", "Local", "Mozilla", "Firefox", "Profiles", "*.default-release", "cache2")},
		VendorOpera:   {filepath.Join("AppData", "Local", "Opera Software", "Opera Stable", "Cache")},
		VendorBrave:   {filepath.Join("AppData", "Local", "BraveSoftware", "Brave-Browser", "User Data", "Default", "Cache")},
	}
}

// KnownVendors returns the vendors with default cache paths, sorted
func KnownVendors() []string {
	vendors := make([]string, 0, 5)
	for v := range DefaultBrowserCaches() {
		vendors = append(vendors, v)
	}
	sort.Strings(vendors)
	return vendors
}

// Validate checks that every path the resolver depends on is usable.
// It performs no I/O.
func (e *HostEnvironment) Validate() error {
	if e == nil {
		return &EnvironmentError{Field: "environment", Reason: "is nil"}
	}
	if err := requireAbs("temp_dir", e.TempDir); err != nil {
		return err
	}
	if err := requireAbs("user_profile", e.UserProfile); err != nil {
		return err
	}
	if e.AltTempDir != "" && !filepath.IsAbs(e.AltTempDir) {
		return &EnvironmentError{Field: "alt_temp_dir", Value: e.AltTempDir, Reason: "must be absolute"}
	}
	if e.WindowsDir != "" && !filepath.IsAbs(e.WindowsDir) {
		return &EnvironmentError{Field: "windows_dir", Value: e.WindowsDir, Reason: "must be absolute"}
	}

	for vendor, rels := range e.BrowserCaches {
		field := "browser_caches." + vendor
		for _, rel := range rels {
			if rel == "" {
				return &EnvironmentError{Field: field, Reason: "contains an empty path"}
			}
			if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
				return &EnvironmentError{Field: field, Value: rel, Reason: "must be relative to the user profile"}
			}
			for _, part := range strings.FieldsFunc(rel, isSeparator) {
				if part == ".." {
					return &EnvironmentError{Field: field, Value: rel, Reason: "must not contain '..'"}
				}
			}
			if _, err := filepath.Match(rel, ""); err != nil {
				return &EnvironmentError{Field: field, Value: rel, Reason: "is not a valid pattern"}
			}
		}
	}

	return nil
}

// Roots returns the declared roots nothing may escape
func (e *HostEnvironment) Roots() []string {
	roots := []string{filepath.Clean(e.TempDir), filepath.Clean(e.UserProfile)}
	if e.AltTempDir != "" {
		roots = append(roots, filepath.Clean(e.AltTempDir))
	}
	if e.WindowsDir != "" {
		roots = append(roots, filepath.Clean(e.WindowsDir))
	}
	return roots
}

func requireAbs(field, path string) error {
	if path == "" {
		return &EnvironmentError{Field: field, Reason: "is required"}
	}
	if !filepath.IsAbs(path) {
		return &EnvironmentError{Field: field, Value: path, Reason: "must be absolute"}
	}
	return nil
}

func samePath(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func isSeparator(r rune) bool {
	return r == '/' || (runtime.GOOS == "windows" && r == '\\')
}
