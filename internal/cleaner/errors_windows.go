//go:build windows

package cleaner

import (
	"syscall"

	"golang.org/x/sys/windows"
)

func isInUse(errno syscall.Errno) bool {
	switch errno {
	case windows.ERROR_SHARING_VIOLATION, windows.ERROR_LOCK_VIOLATION, windows.ERROR_USER_MAPPED_FILE:
		return true
	}
	return false
}

func isAccessDenied(errno syscall.Errno) bool {
	return errno == windows.ERROR_ACCESS_DENIED || errno == windows.ERROR_PRIVILEGE_NOT_HELD
}
