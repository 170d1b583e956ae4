//go:build windows

package cleaner

import "golang.org/x/sys/windows"

var (
	errnoInUse   = windows.ERROR_SHARING_VIOLATION
	errnoDenied  = windows.ERROR_ACCESS_DENIED
	errnoMissing = windows.ERROR_FILE_NOT_FOUND
)
