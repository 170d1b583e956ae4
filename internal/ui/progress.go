package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/progress"
	"golang.org/x/term"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// LiveProgress redraws a two-line status block while a sweep runs
type LiveProgress struct {
	mu         sync.Mutex
	out        io.Writer
	latest     map[string]progress.SweepProgress
	current    string
	startTime  time.Time
	lastUpdate time.Time
	termWidth  int
	enabled    bool
	drawn      bool
}

// NewLiveProgress creates a display on f, disabled unless f is a terminal
func NewLiveProgress(f *os.File) *LiveProgress {
	width := 80
	enabled := term.IsTerminal(int(f.Fd()))
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		width = w
	}
	return newLiveProgress(f, width, enabled)
}

func newLiveProgress(out io.Writer, width int, enabled bool) *LiveProgress {
	return &LiveProgress{
		out:       out,
		latest:    make(map[string]progress.SweepProgress),
		startTime: time.Now(),
		termWidth: width,
		enabled:   enabled,
	}
}

// Follow renders updates from reporter until the returned stop func is called
func (lp *LiveProgress) Follow(reporter *progress.ProgressReporter) (stop func()) {
	updates := reporter.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for p := range updates {
			lp.Update(p)
		}
	}()

	return func() {
		reporter.Unsubscribe(updates)
		<-done
		lp.Finish()
	}
}

// Update records a snapshot and redraws at most ten times a second
func (lp *LiveProgress) Update(p progress.SweepProgress) {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	lp.latest[p.Target] = p
	if p.CurrentFile != "" {
		lp.current = p.CurrentFile
	}

	if !lp.enabled {
		return
	}
	now := time.Now()
	if now.Sub(lp.lastUpdate) < 100*time.Millisecond {
		return
	}
	lp.lastUpdate = now

	lp.render()
}

// render draws the block, moving back over the previous one first
func (lp *LiveProgress) render() {
	width := lp.termWidth - 2
	if lp.drawn {
		fmt.Fprint(lp.out, "\033[2A")
	}

	var deleted, failed int
	var freed int64
	for _, p := range lp.latest {
		deleted += p.Deleted
		failed += p.Failed
		freed += p.BytesFreed
	}

	elapsed := time.Since(lp.startTime).Round(time.Second)
	line1 := fmt.Sprintf("Sweeping %d targets | Deleted: %d | Failed: %d | Freed: %s | Time: %s",
		len(lp.latest), deleted, failed, humanize.IBytes(uint64(freed)), elapsed)
	fmt.Fprintf(lp.out, "\r\033[K%s\n", truncate(line1, width))

	spin := spinnerFrames[int(time.Now().UnixMilli()/100)%len(spinnerFrames)]
	line2 := spin + " " + tail(lp.current, width-2)
	fmt.Fprintf(lp.out, "\r\033[K%s\n", truncate(line2, width))

	lp.drawn = true
}

// Finish clears the status block
func (lp *LiveProgress) Finish() {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if !lp.enabled || !lp.drawn {
		return
	}
	fmt.Fprint(lp.out, "\033[2A\r\033[J")
	lp.drawn = false
}

// SetEnabled enables or disables live progress
func (lp *LiveProgress) SetEnabled(enabled bool) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.enabled = enabled
}

func truncate(s string, width int) string {
	if width < 4 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// tail keeps the end of a path, which holds the interesting part
func tail(s string, width int) string {
	if width < 4 || len(s) <= width {
		return s
	}
	return "..." + s[len(s)-(width-3):]
}

// PrintFailureTree prints each target's failures grouped by directory,
// listing at most maxFiles per directory
func PrintFailureTree(w io.Writer, outcomes []*cleaner.Outcome, maxFiles int) {
	for _, o := range outcomes {
		if len(o.Failed) == 0 {
			continue
		}

		fmt.Fprintf(w, "\n╭─ %s (%d failed)\n", o.Target.Description(), len(o.Failed))

		dirs := make(map[string][]cleaner.PathFailure)
		for _, f := range o.Failed {
			dir := filepath.Dir(f.Path)
			dirs[dir] = append(dirs[dir], f)
		}
		names := make([]string, 0, len(dirs))
		for dir := range dirs {
			names = append(names, dir)
		}
		sort.Strings(names)

		for i, dir := range names {
			last := i == len(names)-1
			connector, indent := "├", "│   "
			if last {
				connector, indent = "╰", "    "
			}
			fmt.Fprintf(w, "%s── %s\n", connector, dir)

			files := dirs[dir]
			shown := len(files)
			if maxFiles > 0 && shown > maxFiles {
				shown = maxFiles
			}
			for j := 0; j < shown; j++ {
				f := files[j]
				branch := "├"
				if j == shown-1 && shown == len(files) {
					branch = "╰"
				}
				fmt.Fprintf(w, "%s%s── %s (%s)\n", indent, branch, filepath.Base(f.Path), f.Reason)
			}
			if shown < len(files) {
				fmt.Fprintf(w, "%s╰── ... and %d more\n", indent, len(files)-shown)
			}
		}
	}

	fmt.Fprintln(w, strings.Repeat("═", 56))
}
