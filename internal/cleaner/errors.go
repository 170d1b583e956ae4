package cleaner

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/fenilsonani/winsweep/internal/security"
)

// FailureReason categorizes why a path was not deleted
type FailureReason int

const (
	ReasonPermissionDenied FailureReason = iota
	ReasonFileInUse
	ReasonVanished
	ReasonInvalidPath
	ReasonRootUnreadable
	ReasonDirectoryUnreadable
	ReasonUnknown
)

// String returns a human-readable failure reason
func (r FailureReason) String() string {
	switch r {
	case ReasonPermissionDenied:
		return "Permission denied"
	case ReasonFileInUse:
		return "File is in use"
	case ReasonVanished:
		return "File vanished before deletion"
	case ReasonInvalidPath:
		return "Invalid or unsafe path"
	case ReasonRootUnreadable:
		return "Root directory unreadable"
	case ReasonDirectoryUnreadable:
		return "Directory unreadable"
	case ReasonUnknown:
		return "Unknown error"
	default:
		return "Unspecified error"
	}
}

// MarshalText implements encoding.TextMarshaler
func (r FailureReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// PathFailure records one path that could not be swept
type PathFailure struct {
	Path   string        `json:"path" yaml:"path"`
	Reason FailureReason `json:"reason" yaml:"reason"`
	Err    error         `json:"-" yaml:"-"`
}

// Error implements the error interface
func (f *PathFailure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Path, f.Reason)
	}
	return fmt.Sprintf("%s: %s (%v)", f.Path, f.Reason, f.Err)
}

// Unwrap returns the underlying OS error
func (f *PathFailure) Unwrap() error {
	return f.Err
}

// Message returns the reason text shown to users
func (f *PathFailure) Message() string {
	switch f.Reason {
	case ReasonPermissionDenied:
		return fmt.Sprintf("Need elevated permissions to delete: %s", f.Path)
	case ReasonFileInUse:
		return fmt.Sprintf("File is being used: %s (close the application and try again)", f.Path)
	case ReasonVanished:
		return fmt.Sprintf("Already gone: %s", f.Path)
	case ReasonInvalidPath:
		return fmt.Sprintf("Refused unsafe path: %s", f.Path)
	case ReasonRootUnreadable:
		return fmt.Sprintf("Cannot list %s: %v", f.Path, f.Err)
	case ReasonDirectoryUnreadable:
		return fmt.Sprintf("Cannot list subdirectory %s: %v", f.Path, f.Err)
	default:
		return fmt.Sprintf("Error deleting %s: %v", f.Path, f.Err)
	}
}

// CategorizeError analyzes a deletion error and returns a PathFailure
func CategorizeError(path string, err error) *PathFailure {
	if err == nil {
		return nil
	}

	failure := &PathFailure{Path: path, Err: err, Reason: ReasonUnknown}

	switch {
	case errors.Is(err, security.ErrOutsideRoots),
		errors.Is(err, security.ErrProtectedPath),
		errors.Is(err, security.ErrUnsafePath):
		failure.Reason = ReasonInvalidPath
		return failure
	case os.IsNotExist(err):
		failure.Reason = ReasonVanished
		return failure
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch {
		case isInUse(errno):
			failure.Reason = ReasonFileInUse
		case errno == syscall.ENOENT:
			failure.Reason = ReasonVanished
		case isAccessDenied(errno):
			failure.Reason = ReasonPermissionDenied
		}
		return failure
	}

	if os.IsPermission(err) {
		failure.Reason = ReasonPermissionDenied
	}

	return failure
}

// GroupFailures groups failures by reason
func GroupFailures(failures []PathFailure) map[FailureReason][]PathFailure {
	grouped := make(map[FailureReason][]PathFailure)
	for _, f := range failures {
		grouped[f.Reason] = append(grouped[f.Reason], f)
	}
	return grouped
}

// FormatFailureSummary creates a user-friendly summary of failures
func FormatFailureSummary(failures []PathFailure) string {
	if len(failures) == 0 {
		return ""
	}

	grouped := GroupFailures(failures)
	reasons := make([]FailureReason, 0, len(grouped))
	for reason := range grouped {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	var b strings.Builder
	b.WriteString("Issues encountered:\n")
	for i, reason := range reasons {
		branch := "├─"
		if i == len(reasons)-1 {
			branch = "└─"
		}
		fmt.Fprintf(&b, "  %s %s: %d\n", branch, reason, len(grouped[reason]))
		if tip := reasonTip(reason); tip != "" {
			fmt.Fprintf(&b, "  │  └─ Tip: %s\n", tip)
		}
	}

	return b.String()
}

func reasonTip(reason FailureReason) string {
	switch reason {
	case ReasonPermissionDenied, ReasonRootUnreadable:
		return "Run from an elevated prompt"
	case ReasonFileInUse:
		return "Close applications and retry"
	default:
		return ""
	}
}
