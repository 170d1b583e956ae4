package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fenilsonani/winsweep/internal/cleaner"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatTable   OutputFormat = "table"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatSummary OutputFormat = "summary"
)

// ParseFormat validates a format name
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML, FormatSummary:
		return f, nil
	case "":
		return FormatSummary, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Reporter handles report generation
type Reporter struct {
	writer io.Writer
	format OutputFormat
}

// New creates a new Reporter
func New(writer io.Writer, format OutputFormat) *Reporter {
	return &Reporter{
		writer: writer,
		format: format,
	}
}

// Report renders sweep outcomes
func (r *Reporter) Report(outcomes []*cleaner.Outcome) error {
	switch r.format {
	case FormatTable:
		return r.reportTable(outcomes)
	case FormatJSON:
		return r.reportJSON(outcomes)
	case FormatYAML:
		return r.reportYAML(outcomes)
	case FormatSummary:
		return r.reportSummary(outcomes)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

// Totals sums every outcome
type Totals struct {
	Attempted   int   `json:"attempted" yaml:"attempted"`
	Deleted     int   `json:"deleted" yaml:"deleted"`
	Failed      int   `json:"failed" yaml:"failed"`
	BytesFreed  int64 `json:"bytes_freed" yaml:"bytes_freed"`
	DirsRemoved int   `json:"dirs_removed" yaml:"dirs_removed"`
}

// Sum totals a set of outcomes
func Sum(outcomes []*cleaner.Outcome) Totals {
	var t Totals
	for _, o := range outcomes {
		t.Attempted += o.Attempted
		t.Deleted += o.Deleted
		t.Failed += len(o.Failed)
		t.BytesFreed += o.BytesFreed
		t.DirsRemoved += o.DirsRemoved
	}
	return t
}

// reportSummary generates a summary report
func (r *Reporter) reportSummary(outcomes []*cleaner.Outcome) error {
	totals := Sum(outcomes)

	fmt.Fprintf(r.writer, "=== Sweep Summary ===\n")
	if dryRun(outcomes) {
		fmt.Fprintf(r.writer, "(dry run: nothing was deleted)\n")
	}
	fmt.Fprintf(r.writer, "Files Deleted: %d of %d\n", totals.Deleted, totals.Attempted)
	fmt.Fprintf(r.writer, "Space Freed: %s\n", humanize.Bytes(uint64(totals.BytesFreed)))
	if totals.DirsRemoved > 0 {
		fmt.Fprintf(r.writer, "Empty Folders Removed: %d\n", totals.DirsRemoved)
	}
	fmt.Fprintf(r.writer, "\nBreakdown by Target:\n")

	var failures []cleaner.PathFailure
	for _, o := range outcomes {
		status := ""
		if o.Cancelled {
			status = " (cancelled)"
		}
		fmt.Fprintf(r.writer, "  %s: %d/%d deleted, %s%s\n",
			o.Target, o.Deleted, o.Attempted, humanize.Bytes(uint64(o.BytesFreed)), status)
		failures = append(failures, o.Failed...)
	}

	if len(failures) > 0 {
		fmt.Fprintf(r.writer, "\n%s", cleaner.FormatFailureSummary(failures))
	}

	return nil
}

// reportTable generates a table report
func (r *Reporter) reportTable(outcomes []*cleaner.Outcome) error {
	rule := strings.Repeat("-", 78)

	fmt.Fprintf(r.writer, "%-20s | %9s | %8s | %7s | %-12s | %s\n", "Target", "Attempted", "Deleted", "Failed", "Freed", "Time")
	fmt.Fprintf(r.writer, "%s\n", rule)

	for _, o := range outcomes {
		fmt.Fprintf(r.writer, "%-20s | %9d | %8d | %7d | %-12s | %s\n",
			o.Target,
			o.Attempted,
			o.Deleted,
			len(o.Failed),
			humanize.Bytes(uint64(o.BytesFreed)),
			o.Duration.Round(time.Millisecond))
	}

	totals := Sum(outcomes)
	fmt.Fprintf(r.writer, "%s\n", rule)
	fmt.Fprintf(r.writer, "Total: %d/%d files, %s\n", totals.Deleted, totals.Attempted, humanize.Bytes(uint64(totals.BytesFreed)))

	for _, o := range outcomes {
		for _, f := range o.Failed {
			path := f.Path
			if len(path) > 60 {
				path = "..." + path[len(path)-57:]
			}
			fmt.Fprintf(r.writer, "  ! %-60s %s\n", path, f.Reason)
		}
	}

	return nil
}

// FailureView is a failure as rendered in structured reports
type FailureView struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OutcomeView is one target's outcome in structured reports
type OutcomeView struct {
	Target      string        `json:"target" yaml:"target"`
	Attempted   int           `json:"attempted" yaml:"attempted"`
	Deleted     int           `json:"deleted" yaml:"deleted"`
	BytesFreed  int64         `json:"bytes_freed" yaml:"bytes_freed"`
	DirsRemoved int           `json:"dirs_removed" yaml:"dirs_removed"`
	Cancelled   bool          `json:"cancelled" yaml:"cancelled"`
	DurationMS  int64         `json:"duration_ms" yaml:"duration_ms"`
	Failed      []FailureView `json:"failed" yaml:"failed"`
}

// Document is the json and yaml report body
type Document struct {
	Timestamp           string        `json:"timestamp" yaml:"timestamp"`
	DryRun              bool          `json:"dry_run" yaml:"dry_run"`
	Totals              Totals        `json:"totals" yaml:"totals"`
	BytesFreedFormatted string        `json:"bytes_freed_formatted" yaml:"bytes_freed_formatted"`
	Outcomes            []OutcomeView `json:"outcomes" yaml:"outcomes"`
}

// NewDocument builds the structured report for outcomes
func NewDocument(outcomes []*cleaner.Outcome) Document {
	totals := Sum(outcomes)
	doc := Document{
		Timestamp:           time.Now().Format(time.RFC3339),
		DryRun:              dryRun(outcomes),
		Totals:              totals,
		BytesFreedFormatted: humanize.Bytes(uint64(totals.BytesFreed)),
		Outcomes:            make([]OutcomeView, 0, len(outcomes)),
	}

	for _, o := range outcomes {
		view := OutcomeView{
			Target:      o.Target.String(),
			Attempted:   o.Attempted,
			Deleted:     o.Deleted,
			BytesFreed:  o.BytesFreed,
			DirsRemoved: o.DirsRemoved,
			Cancelled:   o.Cancelled,
			DurationMS:  o.Duration.Milliseconds(),
			Failed:      make([]FailureView, 0, len(o.Failed)),
		}
		for _, f := range o.Failed {
			fv := FailureView{Path: f.Path, Reason: f.Reason.String()}
			if f.Err != nil {
				fv.Error = f.Err.Error()
			}
			view.Failed = append(view.Failed, fv)
		}
		doc.Outcomes = append(doc.Outcomes, view)
	}

	return doc
}

// reportJSON generates a JSON report
func (r *Reporter) reportJSON(outcomes []*cleaner.Outcome) error {
	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewDocument(outcomes))
}

// reportYAML generates a YAML report
func (r *Reporter) reportYAML(outcomes []*cleaner.Outcome) error {
	encoder := yaml.NewEncoder(r.writer)
	defer encoder.Close()
	return encoder.Encode(NewDocument(outcomes))
}

func dryRun(outcomes []*cleaner.Outcome) bool {
	for _, o := range outcomes {
		if o.DryRun {
			return true
		}
	}
	return false
}

// SaveToFile saves the report to a file
func SaveToFile(outcomes []*cleaner.Outcome, path string, format OutputFormat) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reporter := New(file, format)
	return reporter.Report(outcomes)
}
