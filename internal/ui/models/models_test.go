package models

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/winsweep/internal/cleaner"
	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/fenilsonani/winsweep/internal/testutil"
)

var (
	tempTarget     = scanner.Target{Kind: scanner.TempFiles}
	prefetchTarget = scanner.Target{Kind: scanner.Prefetch}
	dumpTarget     = scanner.Target{Kind: scanner.DumpFiles}
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+a":
		return tea.KeyMsg{Type: tea.KeyCtrlA}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func preview() ([]*cleaner.Outcome, map[scanner.Target][]string) {
	outcomes := []*cleaner.Outcome{
		{Target: tempTarget, Attempted: 3, Deleted: 3, BytesFreed: 300},
		{Target: prefetchTarget},
		{Target: dumpTarget, Attempted: 1, Deleted: 1, BytesFreed: 1 << 20},
	}
	roots := map[scanner.Target][]string{
		tempTarget: {`C:\Temp`},
		dumpTarget: {`C:\Windows\Minidump`},
	}
	return outcomes, roots
}

func TestTargetViewHidesUnresolvedTargets(t *testing.T) {
	outcomes, roots := preview()
	m := NewTargetViewModel(outcomes, roots, []scanner.Target{tempTarget}, 100, 40)

	items := m.Items()
	require.Len(t, items, 2)
	assert.Equal(t, tempTarget, items[0].Target)
	assert.True(t, items[0].Selected)
	assert.Equal(t, 3, items[0].Files)
	assert.Equal(t, dumpTarget, items[1].Target)
	assert.False(t, items[1].Selected)
	assert.True(t, items[1].NeedsAdmin())

	view := m.View()
	assert.Contains(t, view, "Temporary files")
	assert.NotContains(t, view, "Prefetch")
}

func TestTargetViewSelection(t *testing.T) {
	outcomes, roots := preview()
	m := NewTargetViewModel(outcomes, roots, nil, 100, 40)

	m, _ = m.Update(key("x"))
	assert.True(t, m.Items()[0].Selected)
	assert.False(t, m.Items()[1].Selected)

	m, _ = m.Update(key("ctrl+a"))
	assert.True(t, m.Items()[1].Selected)

	m, _ = m.Update(key("ctrl+d"))
	for _, it := range m.Items() {
		assert.False(t, it.Selected)
	}

	_, cmd := m.Update(key("enter"))
	assert.Nil(t, cmd, "nothing selected, nothing to confirm")

	m, _ = m.Update(key("k"))
	m, _ = m.Update(key("x"))
	_, cmd = m.Update(key("enter"))
	require.NotNil(t, cmd)

	msg, ok := cmd().(TargetsSelectedMsg)
	require.True(t, ok)
	require.Len(t, msg.Items, 1)
	assert.Equal(t, tempTarget, msg.Items[0].Target)
}

func TestTargetViewInfoPanel(t *testing.T) {
	outcomes, roots := preview()
	m := NewTargetViewModel(outcomes, roots, nil, 100, 40)

	m, _ = m.Update(key("i"))
	assert.Contains(t, m.View(), `C:\Temp`)

	m, _ = m.Update(key("x"))
	assert.False(t, m.Items()[0].Selected, "keys go to the open panel")

	m, _ = m.Update(key("i"))
	assert.NotContains(t, m.View(), "Target Information")
}

func TestCalculateRiskLevel(t *testing.T) {
	tests := []struct {
		name  string
		items []TargetItem
		want  RiskLevel
	}{
		{"small temp", []TargetItem{{Target: tempTarget, Files: 10}}, RiskLow},
		{"many files", []TargetItem{{Target: tempTarget, Files: 600}}, RiskMedium},
		{"huge", []TargetItem{{Target: tempTarget, Files: 6000}}, RiskHigh},
		{"admin target", []TargetItem{{Target: dumpTarget, Files: 1}}, RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateRiskLevel(tt.items))
		})
	}
}

func TestConfirmView(t *testing.T) {
	items := []TargetItem{{Target: dumpTarget, Files: 1, Size: 10}}

	m := NewConfirmViewModel(items, false, 100, 40)
	assert.Equal(t, buttonCancel, m.cursor, "high risk defaults to cancel")
	assert.Contains(t, m.View(), "cannot be undone")

	dry := NewConfirmViewModel(items, true, 100, 40)
	assert.Equal(t, buttonYes, dry.cursor)
	assert.Contains(t, dry.View(), "Dry Run")

	_, cmd := m.Update(key("y"))
	require.NotNil(t, cmd)
	assert.IsType(t, ConfirmedMsg{}, cmd())

	_, cmd = m.Update(key("e"))
	require.NotNil(t, cmd)
	assert.IsType(t, ReviewSelectionMsg{}, cmd())

	m, _ = m.Update(key("h"))
	assert.Equal(t, buttonReview, m.cursor)
}

func TestSummaryView(t *testing.T) {
	outcomes := []*cleaner.Outcome{
		{Target: tempTarget, Attempted: 2, Deleted: 1, BytesFreed: 2048, Failed: []cleaner.PathFailure{
			{Path: `C:\Temp\locked.tmp`, Reason: cleaner.ReasonFileInUse},
		}},
		{Target: dumpTarget, Cancelled: true},
	}
	m := NewSummaryViewModel(outcomes, 100)

	view := m.View()
	assert.Contains(t, view, "Deleted 1 of 2 files")
	assert.Contains(t, view, "2.0 KiB")
	assert.Contains(t, view, "1 files could not be deleted")
	assert.Contains(t, view, "stopped before it finished")
	assert.NotContains(t, view, "locked.tmp")

	m, _ = m.Update(key("f"))
	assert.Contains(t, m.View(), "locked.tmp")
	assert.Contains(t, m.View(), "File is in use")

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func newApp(t *testing.T) (*AppModel, *testutil.TestFixture) {
	t.Helper()

	f := testutil.NewFixture(t)
	cfg := config.GetDefault()
	cfg.Targets = []string{"temp"}
	cfg.ExcludePatterns = nil

	return NewAppModel(context.Background(), cfg, f.Env(), nil), f
}

func TestScanMeasuresWithoutDeleting(t *testing.T) {
	app, f := newApp(t)
	file := f.CreateTempFile("a.tmp", []byte("abc"))

	app.Init()
	msg := app.scanView.performScan()

	done, ok := msg.(ScanCompleteMsg)
	require.True(t, ok)
	require.NoError(t, done.Err)
	f.AssertFileExists(file)

	assert.Equal(t, []string{f.TempDir}, done.Roots[tempTarget])
	for _, o := range done.Outcomes {
		if o.Target == tempTarget {
			assert.Equal(t, 1, o.Attempted)
			assert.Equal(t, int64(3), o.BytesFreed)
		}
	}
}

func TestAppFlow(t *testing.T) {
	app, f := newApp(t)
	file := f.CreateTempFile("a.tmp", []byte("abc"))

	app.Init()
	model, _ := app.Update(app.scanView.performScan())
	app = model.(*AppModel)
	require.Equal(t, ViewTargetSelection, app.state)
	assert.True(t, app.targetView.Items()[0].Selected, "configured targets start selected")

	_, cmd := app.Update(key("enter"))
	require.NotNil(t, cmd)
	model, _ = app.Update(cmd())
	app = model.(*AppModel)
	require.Equal(t, ViewConfirmation, app.state)

	model, _ = app.Update(key("?"))
	app = model.(*AppModel)
	assert.Equal(t, ViewHelp, app.state)
	assert.Contains(t, app.View(), "Help - Confirmation")
	model, _ = app.Update(key("z"))
	app = model.(*AppModel)
	assert.Equal(t, ViewConfirmation, app.state)

	model, _ = app.Update(ConfirmedMsg{})
	app = model.(*AppModel)
	require.Equal(t, ViewSweeping, app.state)

	_, cmd = app.Update(key("q"))
	assert.Nil(t, cmd, "q is ignored while sweeping")

	model, _ = app.Update(app.sweepView.performSweep())
	app = model.(*AppModel)
	require.Equal(t, ViewSummary, app.state)
	f.AssertFileNotExists(file)

	require.Len(t, app.Outcomes(), 1)
	assert.Equal(t, 1, app.Outcomes()[0].Deleted)
	assert.True(t, strings.Contains(app.View(), "Deleted 1 of 1 files"))
}

func TestAppShowsSweepErrors(t *testing.T) {
	app, _ := newApp(t)

	model, _ := app.Update(ScanCompleteMsg{Err: errors.New("boom")})
	app = model.(*AppModel)
	assert.Error(t, app.Err())
	assert.Contains(t, app.View(), "boom")
}

func TestCtrlCWhileSweepingCancels(t *testing.T) {
	app, _ := newApp(t)
	app.state = ViewSweeping

	_, cmd := app.Update(key("ctrl+c"))
	assert.Nil(t, cmd)
	assert.Error(t, app.ctx.Err())
}
