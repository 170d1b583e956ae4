package system

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/fenilsonani/winsweep/internal/logging"
)

// LaunchError is returned when a program could not be started at all
type LaunchError struct {
	Executable string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Executable, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Launch runs executable and waits for it. A non-zero exit is reported
// through the status with a nil error; err is set only when the program
// could not be started or was interrupted by ctx.
func Launch(ctx context.Context, executable string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, executable, args...)
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, &LaunchError{Executable: executable, Err: err}
}

// Start launches executable without waiting and returns its process ID
func Start(executable string, args ...string) (int, error) {
	cmd := exec.Command(executable, args...)
	if err := cmd.Start(); err != nil {
		return 0, &LaunchError{Executable: executable, Err: err}
	}
	pid := cmd.Process.Pid
	// Reap the child in the background; its result is not needed.
	go func() { _ = cmd.Wait() }()
	return pid, nil
}

// Tool is a built-in Windows maintenance program
type Tool struct {
	Name        string
	Description string
	// Detached tools open their own window and are not waited for
	Detached bool
	args     func(drive string, auto bool) []string
}

// Command returns the executable and arguments for the given drive
func (t Tool) Command(drive string, auto bool) (string, []string) {
	if t.args == nil {
		return t.Name, nil
	}
	return t.Name, t.args(drive, auto)
}

var tools = map[string]Tool{
	"defrag": {
		Name:        "defrag",
		Description: "Defragment and optimize a drive",
		args:        func(drive string, _ bool) []string { return []string{drive, "/U", "/V"} },
	},
	"chkdsk": {
		Name:        "chkdsk",
		Description: "Check a drive for file system errors and fix them",
		args:        func(drive string, _ bool) []string { return []string{drive, "/F"} },
	},
	"cleanmgr": {
		Name:        "cleanmgr",
		Description: "Open Windows Disk Cleanup",
		Detached:    true,
		args: func(_ string, auto bool) []string {
			if auto {
				return []string{"/sagerun:1"}
			}
			return nil
		},
	},
	"perfmon": {
		Name:        "perfmon",
		Description: "Open Performance Monitor",
		Detached:    true,
	},
}

// LookupTool finds a tool by name
func LookupTool(name string) (Tool, error) {
	t, ok := tools[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Tool{}, fmt.Errorf("unknown tool %q (available: %s)", name, strings.Join(ToolNames(), ", "))
	}
	return t, nil
}

// ToolNames returns the known tool names, sorted
func ToolNames() []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Launcher runs maintenance tools against a configured drive
type Launcher struct {
	drive  string
	logger *logging.Logger
}

// NewLauncher creates a launcher for drive (e.g. "C:")
func NewLauncher(drive string, logger *logging.Logger) *Launcher {
	if drive == "" {
		drive = "C:"
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Launcher{drive: drive, logger: logger}
}

// Run starts the named tool. Detached tools return immediately with status 0.
func (l *Launcher) Run(ctx context.Context, name string, auto bool) (int, error) {
	tool, err := LookupTool(name)
	if err != nil {
		return -1, err
	}

	exe, args := tool.Command(l.drive, auto)
	l.logger.Info("launching %s %s", exe, strings.Join(args, " "))

	if tool.Detached {
		pid, err := Start(exe, args...)
		if err != nil {
			return -1, err
		}
		l.logger.Debug("%s started with pid %d", exe, pid)
		return 0, nil
	}

	status, err := Launch(ctx, exe, args...)
	if err != nil {
		l.logger.Error("%s failed: %v", exe, err)
		return status, err
	}
	if status != 0 {
		l.logger.Warn("%s exited with status %d", exe, status)
	}
	return status, nil
}
