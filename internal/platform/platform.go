package platform

import (
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
)

// Platform represents the operating system platform
type Platform string

const (
	Windows Platform = "windows"
	MacOS   Platform = "darwin"
	Linux   Platform = "linux"
	Unknown Platform = "unknown"
)

// ErrUnsupportedPlatform is returned for operations that only exist on Windows
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Info contains host information shown by the status views
type Info struct {
	OS       Platform `json:"os"`
	Arch     string   `json:"arch"`
	Username string   `json:"username"`
	// Build is the Windows build number, zero elsewhere.
	Build    uint32           `json:"build,omitempty"`
	Version  string           `json:"version"`
	Elevated bool             `json:"elevated"`
	Env      *HostEnvironment `json:"environment"`
}

// Current returns the running platform
func Current() Platform {
	switch runtime.GOOS {
	case "windows":
		return Windows
	case "darwin":
		return MacOS
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

// Overrides replace detected values when non-empty
type Overrides struct {
	TempDir       string
	UserProfile   string
	WindowsDir    string
	BrowserCaches map[string][]string
}

// Detect builds a HostEnvironment from the process environment.
// The result is not validated; callers pass it to the sweep engine which does.
func Detect(o Overrides) *HostEnvironment {
	env := &HostEnvironment{
		TempDir:       firstNonEmpty(o.TempDir, os.Getenv("TEMP"), os.Getenv("TMP"), os.TempDir()),
		UserProfile:   firstNonEmpty(o.UserProfile, os.Getenv("USERPROFILE"), homeDir()),
		WindowsDir:    firstNonEmpty(o.WindowsDir, os.Getenv("SystemRoot"), os.Getenv("WINDIR"), defaultWindowsDir()),
		BrowserCaches: DefaultBrowserCaches(),
	}

	for vendor, paths := range o.BrowserCaches {
		if len(paths) == 0 {
			delete(env.BrowserCaches, vendor)
			continue
		}
		env.BrowserCaches[vendor] = append([]string(nil), paths...)
	}

	if env.TempDir != "" {
		env.TempDir = filepath.Clean(env.TempDir)
	}
	// TMP only adds a root when TEMP came from the process environment too.
	if o.TempDir == "" {
		if tmp := os.Getenv("TMP"); filepath.IsAbs(tmp) && !samePath(tmp, env.TempDir) {
			env.AltTempDir = filepath.Clean(tmp)
		}
	}
	return env
}

// GetInfo returns host information together with the detected environment
func GetInfo(o Overrides) (*Info, error) {
	currentUser, err := user.Current()
	if err != nil {
		return nil, err
	}

	info := &Info{
		OS:       Current(),
		Arch:     runtime.GOARCH,
		Username: currentUser.Username,
		Env:      Detect(o),
	}
	fillHostInfo(info)
	return info, nil
}

func homeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
