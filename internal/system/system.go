// Package system wraps the Windows facilities winsweep drives besides file
// deletion: the autostart Run key, startup programs, services, external
// maintenance tools and a resource dashboard.
package system

import "errors"

// ErrUnsupported is returned by Windows-only operations on other platforms
var ErrUnsupported = errors.New("not supported on this platform")

const (
	// AutostartValue is the Run key value holding winsweep's command line
	AutostartValue = "WindowsOptimizerPro"

	runKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`
)

// Scope tells which hive a startup entry came from
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeMachine Scope = "machine"
)

// StartupEntry is a program launched at logon
type StartupEntry struct {
	Name    string `json:"name"`
	Command string `json:"command"`
	Scope   Scope  `json:"scope"`
}

// Service is an installed Windows service
type Service struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	State       string `json:"state"`
	StartMode   string `json:"start_mode"`
}
