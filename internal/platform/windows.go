//go:build windows

package platform

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func defaultWindowsDir() string {
	return `C:\Windows`
}

func fillHostInfo(info *Info) {
	major, minor, build := windows.RtlGetNtVersionNumbers()
	// high bits carry a checked/free build flag
	build &= 0xFFFF
	info.Build = build
	info.Version = fmt.Sprintf("%d.%d.%d", major, minor, build)
	info.Elevated = windows.GetCurrentProcessToken().IsElevated()
}
