//go:build !windows

package cleaner

import "syscall"

var (
	errnoInUse   = syscall.EBUSY
	errnoDenied  = syscall.EACCES
	errnoMissing = syscall.ENOENT
)
