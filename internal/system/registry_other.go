//go:build !windows

package system

// SetAutostart is only available on Windows
func SetAutostart(enabled bool) error {
	return ErrUnsupported
}

// AutostartEnabled is only available on Windows
func AutostartEnabled() (bool, error) {
	return false, ErrUnsupported
}

// ListStartupEntries is only available on Windows
func ListStartupEntries() ([]StartupEntry, error) {
	return nil, ErrUnsupported
}
