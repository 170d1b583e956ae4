//go:build !windows

package system

// ListServices is only available on Windows
func ListServices() ([]Service, error) {
	return nil, ErrUnsupported
}
