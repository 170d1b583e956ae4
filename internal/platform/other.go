//go:build !windows

package platform

import "os"

func defaultWindowsDir() string {
	return ""
}

func fillHostInfo(info *Info) {
	info.Version = runtimeVersion()
	info.Elevated = os.Geteuid() == 0
}

func runtimeVersion() string {
	if data, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
		return string(trimNewline(data))
	}
	return ""
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
