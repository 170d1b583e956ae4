// Package ui holds the terminal front ends: the interactive sweep TUI and
// the live progress line used by non-interactive sweeps.
package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/logging"
	"github.com/fenilsonani/winsweep/internal/ui/models"
)

// RunInteractive starts the interactive TUI and returns the sweep outcomes,
// or nil when the user quit before sweeping
func RunInteractive(ctx context.Context, cfg *config.Config, logger *logging.Logger) ([]*cleaner.Outcome, error) {
	env := cfg.HostEnvironment()
	if err := env.Validate(); err != nil {
		return nil, err
	}

	m := models.NewAppModel(ctx, cfg, env, logger)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("error running interactive mode: %w", err)
	}

	app := final.(*models.AppModel)
	if app.Err() != nil {
		return nil, app.Err()
	}
	return app.Outcomes(), nil
}
