package api

import (
	"github.com/fenilsonani/winsweep/internal/platform"
	"github.com/fenilsonani/winsweep/internal/reporter"
	"github.com/fenilsonani/winsweep/internal/system"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TargetResponse describes an enabled target and what it resolves to
type TargetResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Roots       []string `json:"roots"`
}

// SweepRequest is the body of POST /api/v1/sweep.
// Empty targets mean the configured targets; a nil DryRun keeps the configured mode.
type SweepRequest struct {
	Targets []string `json:"targets"`
	DryRun  *bool    `json:"dry_run"`
}

// SweepResponse carries the report and the history run ID, if recorded
type SweepResponse struct {
	RunID  string            `json:"run_id,omitempty"`
	Report reporter.Document `json:"report"`
}

// StatusResponse combines the resource dashboard with platform details
type StatusResponse struct {
	Dashboard *system.Dashboard `json:"dashboard"`
	Platform  *platform.Info    `json:"platform"`
}

// AutostartRequest is the body of PUT /api/v1/autostart
type AutostartRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// AutostartResponse reports the autostart state
type AutostartResponse struct {
	Enabled bool `json:"enabled"`
}
