package cleaner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/winsweep/internal/config"
	"github.com/fenilsonani/winsweep/internal/platform"
	"github.com/fenilsonani/winsweep/internal/progress"
	"github.com/fenilsonani/winsweep/internal/scanner"
	"github.com/fenilsonani/winsweep/internal/testutil"
)

// failingRemover refuses paths with a given base name and delegates the rest
type failingRemover struct {
	name string
	err  error
}

func (r failingRemover) Remove(path string) error {
	if filepath.Base(path) == r.name {
		return &os.PathError{Op: "remove", Path: path, Err: r.err}
	}
	return os.Remove(path)
}

// cancellingRemover cancels the sweep after the first removal
type cancellingRemover struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (r *cancellingRemover) Remove(path string) error {
	r.once.Do(r.cancel)
	return os.Remove(path)
}

func newSweeper(t *testing.T, mutate func(*config.Config)) *Sweeper {
	t.Helper()

	cfg := config.GetDefault()
	cfg.ExcludePatterns = nil
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg)
}

func sweepOne(t *testing.T, s *Sweeper, target scanner.Target, env *platform.HostEnvironment) *Outcome {
	t.Helper()

	outcomes, err := s.Sweep(context.Background(), []scanner.Target{target}, env)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	return outcomes[0]
}

func assertAccounting(t *testing.T, o *Outcome) {
	t.Helper()
	assert.Equal(t, o.Attempted, o.Deleted+len(o.Failed), "attempted must equal deleted + failed for %s", o.Target)
}

// =============================================================================
// Sweep Tests
// =============================================================================

func TestSweepEmptyRoots(t *testing.T) {
	f := testutil.NewFixture(t)
	s := newSweeper(t, nil)

	outcome := sweepOne(t, s, scanner.Target{Kind: scanner.TempFiles}, f.Env())

	assert.Equal(t, 0, outcome.Attempted)
	assert.Equal(t, 0, outcome.Deleted)
	assert.Empty(t, outcome.Failed)
	assert.Equal(t, int64(0), outcome.BytesFreed)
	assert.False(t, outcome.Cancelled)
}

func TestSweepDeletesEverything(t *testing.T) {
	f := testutil.NewFixture(t)
	a := f.CreateTempFile("a.tmp", []byte("aaaa"))
	b := f.CreateTempFile("b.tmp", []byte("bb"))
	c := f.CreateTempFile(filepath.Join("sub", "c.tmp"), []byte("c"))

	s := newSweeper(t, nil)
	outcome := sweepOne(t, s, scanner.Target{Kind: scanner.TempFiles}, f.Env())

	assert.Equal(t, 3, outcome.Attempted)
	assert.Equal(t, 3, outcome.Deleted)
	assert.Empty(t, outcome.Failed)
	assert.Equal(t, int64(7), outcome.BytesFreed)
	assert.Equal(t, 1, outcome.DirsRemoved)
	assertAccounting(t, outcome)

	f.AssertFileNotExists(a)
	f.AssertFileNotExists(b)
	f.AssertFileNotExists(c)
	assert.True(t, f.IsEmptyDir(f.TempDir), "temp root should be empty")
	assert.Equal(t, 3, s.GetManifest().Len())
}

func TestSweepKeepsEmptyDirsWhenPruningDisabled(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateTempFile(filepath.Join("sub", "c.tmp"), []byte("c"))

	s := newSweeper(t, func(cfg *config.Config) { cfg.PruneEmptyDirs = false })
	outcome := sweepOne(t, s, scanner.Target{Kind: scanner.TempFiles}, f.Env())

	assert.Equal(t, 1, outcome.Deleted)
	assert.Equal(t, 0, outcome.DirsRemoved)
	assert.True(t, f.IsEmptyDir(filepath.Join(f.TempDir, "sub")))
}

func TestSweepRecordsFileInUse(t *testing.T) {
	f := testutil.NewFixture(t)
	a := f.CreateTempFile("a.tmp", []byte("a"))
	b := f.CreateTempFile("b.tmp", []byte("b"))
	c := f.CreateTempFile(filepath.Join("sub", "c.tmp"), []byte("c"))

	s := newSweeper(t, nil)
	s.SetRemover(failingRemover{name: "b.tmp", err: errnoInUse})

	outcome := sweepOne(t, s, scanner.Target{Kind: scanner.TempFiles}, f.Env())

	assert.Equal(t, 3, outcome.Attempted)
	assert.Equal(t, 2, outcome.Deleted)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, b, outcome.Failed[0].Path)
	assert.Equal(t, ReasonFileInUse, outcome.Failed[0].Reason)
	assertAccounting(t, outcome)

	f.AssertFileNotExists(a)
	f.AssertFileExists(b)
	f.AssertFileNotExists(c)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateTempFile("a.tmp", []byte("a"))
	f.CreateTempFile(filepath.Join("sub", "b.tmp"), []byte("b"))

	s := newSweeper(t, nil)
	target := scanner.Target{Kind: scanner.TempFiles}

	first := sweepOne(t, s, target, f.Env())
	assert.Equal(t, 2, first.Deleted)

	second := sweepOne(t, s, target, f.Env())
	assert.Equal(t, 0, second.Attempted)
	assert.Equal(t, 0, second.Deleted)
	assert.Empty(t, second.Failed)
}

func TestSweepUnreadableRootDoesNotAffectOtherTargets(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateTempFile("a.tmp", []byte("a"))
	dump := f.CreateWindowsFile(filepath.Join("Minidump", "crash.dmp"), []byte("dump"))
	f.MakeUnreadable(f.TempDir)

	s := newSweeper(t, nil)
	outcomes, err := s.Sweep(context.Background(), []scanner.Target{
		{Kind: scanner.TempFiles},
		{Kind: scanner.DumpFiles},
	}, f.Env())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	temp := outcomes[0]
	assert.Equal(t, scanner.TempFiles, temp.Target.Kind)
	assert.Equal(t, 0, temp.Deleted)
	require.NotEmpty(t, temp.Failed)
	assert.Equal(t, ReasonRootUnreadable, temp.Failed[0].Reason)
	assertAccounting(t, temp)

	dumps := outcomes[1]
	assert.Equal(t, 1, dumps.Deleted)
	assert.Empty(t, dumps.Failed)
	f.AssertFileNotExists(dump)
}

func TestSweepUnreadableSubdirectoryContinues(t *testing.T) {
	f := testutil.NewFixture(t)
	a := f.CreateTempFile("a.tmp", []byte("a"))
	f.CreateTempFile(filepath.Join("locked", "hidden.tmp"), []byte("h"))
	f.MakeUnreadable(filepath.Join(f.TempDir, "locked"))

	s := newSweeper(t, nil)
	outcome := sweepOne(t, s, scanner.Target{Kind: scanner.TempFiles}, f.Env())

	assert.Equal(t, 1, outcome.Deleted)
	require.Len(t, outcome.Failed, 1)
	assert.Equal(t, ReasonDirectoryUnreadable, outcome.Failed[0].Reason)
	assertAccounting(t, outcome)
	f.AssertFileNotExists(a)
}

func TestSweepNeverLeavesRoots(t *testing.T) {
	f := testutil.NewFixture(t)
	outside := f.CreateOutsideFile("precious.txt", []byte("keep me"))
	f.CreateOutsideFile(filepath.Join("dir", "nested.txt"), []byte("keep me too"))
	inside := f.CreateTempFile("junk.tmp", []byte("junk"))

	f.CreateSymlink(outside, filepath.Join(f.TempDir, "file-link"))
	f.CreateSymlink(filepath.Join(f.OutsideDir, "dir"), filepath.Join(f.TempDir, "dir-link"))

	s := newSweeper(t, nil)
	outcome := sweepOne(t, s, scanner.Target{Kind: scanner.TempFiles}, f.Env())

	assert.Equal(t, 1, outcome.Deleted)
	assert.Empty(t, outcome.Failed)
	f.AssertFileNotExists(inside)

	f.AssertFileExists(outside)
	f.AssertFileExists(filepath.Join(f.OutsideDir, "dir", "nested.txt"))
	// Links are skipped, not deleted
	f.AssertFileExists(filepath.Join(f.TempDir, "file-link"))
	f.AssertFileExists(filepath.Join(f.TempDir, "dir-link"))
}

func TestSweepLinkedRootIsIgnored(t *testing.T) {
	f := testutil.NewFixture(t)
	victim := f.CreateOutsideFile(filepath.Join("cache", "data.bin"), []byte("data"))

	cacheDir := filepath.Join(f.ProfileDir, "AppData", "Local", "Mozilla", "Firefox", "Profiles", "abc.default-release", "cache2")
	f.CreateSymlink(filepath.Join(f.OutsideDir, "cache"), cacheDir)

	s := newSweeper(t, nil)
	outcome := sweepOne(t, s, scanner.Browser(platform.VendorFirefox), f.Env())

	assert.Equal(t, 0, outcome.Attempted)
	f.AssertFileExists(victim)
}

func TestSweepLinkedAncestorIsIgnored(t *testing.T) {
	f := testutil.NewFixture(t)
	victim := f.CreateOutsideFile(filepath.Join("appdata", "Local", "Temp", "precious.txt"), []byte("keep me"))
	inside := f.CreateTempFile("junk.tmp", []byte("junk"))

	f.CreateSymlink(filepath.Join(f.OutsideDir, "appdata"), filepath.Join(f.ProfileDir, "AppData"))

	s := newSweeper(t, nil)
	outcome := sweepOne(t, s, scanner.Target{Kind: scanner.TempFiles}, f.Env())

	assert.Equal(t, 1, outcome.Deleted)
	assert.Empty(t, outcome.Failed)
	assertAccounting(t, outcome)
	f.AssertFileNotExists(inside)
	f.AssertFileExists(victim)
}

func TestSweepLinkedGlobMatchIsIgnored(t *testing.T) {
	f := testutil.NewFixture(t)
	victim := f.CreateOutsideFile(filepath.Join("profile", "cache2", "precious.bin"), []byte("keep me"))
	cached := f.CreateProfileFile(filepath.Join("AppData", "Local", "Mozilla", "Firefox", "Profiles", "real.default-release", "cache2", "entry.bin"), []byte("cache"))

	profiles := filepath.Join(f.ProfileDir, "AppData", "Local", "Mozilla", "Firefox", "Profiles")
	f.CreateSymlink(filepath.Join(f.OutsideDir, "profile"), filepath.Join(profiles, "x.default-release"))

	s := newSweeper(t, nil)
	outcome := sweepOne(t, s, scanner.Browser(platform.VendorFirefox), f.Env())

	assert.Equal(t, 1, outcome.Deleted)
	assertAccounting(t, outcome)
	f.AssertFileNotExists(cached)
	f.AssertFileExists(victim)
}

func TestDeleteFileRejectsLinkSwappedAncestor(t *testing.T) {
	f := testutil.NewFixture(t)
	victim := f.CreateOutsideFile(filepath.Join("appdata", "Local", "Temp", "precious.txt"), []byte("keep me"))

	// The sweep root as it would have resolved before AppData became a link
	root := filepath.Join(f.ProfileDir, "AppData", "Local", "Temp")
	f.CreateSymlink(filepath.Join(f.OutsideDir, "appdata"), filepath.Join(f.ProfileDir, "AppData"))

	s := newSweeper(t, nil)
	acc := &accumulator{outcome: &Outcome{Target: scanner.Target{Kind: scanner.TempFiles}, Failed: []PathFailure{}}}
	entry := scanner.Entry{Path: filepath.Join(root, "precious.txt"), Size: 7, Root: root}
	s.deleteFile(entry, []string{root}, f.Env().Roots(), acc)

	assert.Equal(t, 0, acc.outcome.Deleted)
	require.Len(t, acc.outcome.Failed, 1)
	assertAccounting(t, acc.outcome)
	f.AssertFileExists(victim)
}

func TestSweepExcludePatterns(t *testing.T) {
	f := testutil.NewFixture(t)
	keep := f.CreateTempFile("notes.keep", []byte("keep"))
	important := f.CreateTempFile(filepath.Join("important", "data.tmp"), []byte("important"))
	junk := f.CreateTempFile("junk.tmp", []byte("junk"))

	s := newSweeper(t, func(cfg *config.Config) {
		cfg.ExcludePatterns = config.GetDefault().ExcludePatterns
	})
	outcome := sweepOne(t, s, scanner.Target{Kind: scanner.TempFiles}, f.Env())

	assert.Equal(t, 1, outcome.Attempted)
	assert.Equal(t, 1, outcome.Deleted)
	f.AssertFileExists(keep)
	f.AssertFileExists(important)
	f.AssertFileNotExists(junk)
}

func TestSweepDryRun(t *testing.T) {
	f := testutil.NewFixture(t)
	a := f.CreateTempFile("a.tmp", []byte("12345"))
	b := f.CreateTempFile(filepath.Join("sub", "b.tmp"), []byte("123"))

	s := newSweeper(t, func(cfg *config.Config) { cfg.DryRun = true })
	outcome := sweepOne(t, s, scanner.Target{Kind: scanner.TempFiles}, f.Env())

	assert.True(t, outcome.DryRun)
	assert.Equal(t, 2, outcome.Attempted)
	assert.Equal(t, 2, outcome.Deleted)
	assert.Equal(t, int64(8), outcome.BytesFreed)
	assert.Equal(t, 0, outcome.DirsRemoved)

	f.AssertFileExists(a)
	f.AssertFileExists(b)
	assert.Equal(t, 0, s.GetManifest().Len())
}

func TestSweepSingleFileRoot(t *testing.T) {
	f := testutil.NewFixture(t)
	memory := f.CreateWindowsFile("MEMORY.DMP", []byte("full dump"))
	mini := f.CreateWindowsFile(filepath.Join("Minidump", "101626-01.dmp"), []byte("mini"))
	neighbour := f.CreateWindowsFile("win.ini", []byte("[fonts]"))

	s := newSweeper(t, nil)
	outcome := sweepOne(t, s, scanner.Target{Kind: scanner.DumpFiles}, f.Env())

	assert.Equal(t, 2, outcome.Deleted)
	assert.Empty(t, outcome.Failed)
	f.AssertFileNotExists(memory)
	f.AssertFileNotExists(mini)
	f.AssertFileExists(neighbour)
	assert.DirExists(t, filepath.Join(f.WindowsDir, "Minidump"), "the root itself is never removed")
}

func TestSweepCancellation(t *testing.T) {
	f := testutil.NewFixture(t)
	for i := 0; i < 200; i++ {
		f.CreateTempFile(fmt.Sprintf("file%03d.tmp", i), []byte("x"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newSweeper(t, func(cfg *config.Config) { cfg.Workers = 1 })
	s.SetRemover(&cancellingRemover{cancel: cancel})

	outcomes, err := s.Sweep(ctx, []scanner.Target{{Kind: scanner.TempFiles}}, f.Env())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	outcome := outcomes[0]
	assert.True(t, outcome.Cancelled)
	assert.Less(t, outcome.Attempted, 200)
	assert.GreaterOrEqual(t, outcome.Deleted, 1)
	assertAccounting(t, outcome)
	assert.Equal(t, 200-outcome.Deleted, f.CountFiles(f.TempDir))
}

func TestSweepAlreadyCancelled(t *testing.T) {
	f := testutil.NewFixture(t)
	file := f.CreateTempFile("a.tmp", []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newSweeper(t, nil)
	outcomes, err := s.Sweep(ctx, []scanner.Target{{Kind: scanner.TempFiles}}, f.Env())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)

	assert.True(t, outcomes[0].Cancelled)
	assert.Equal(t, 0, outcomes[0].Deleted)
	f.AssertFileExists(file)
}

func TestSweepEmptyTargetSet(t *testing.T) {
	f := testutil.NewFixture(t)
	file := f.CreateTempFile("a.tmp", []byte("a"))

	s := newSweeper(t, nil)
	outcomes, err := s.Sweep(context.Background(), nil, f.Env())

	require.NoError(t, err)
	assert.Empty(t, outcomes)
	f.AssertFileExists(file)
}

func TestSweepInvalidEnvironment(t *testing.T) {
	f := testutil.NewFixture(t)
	file := f.CreateTempFile("a.tmp", []byte("a"))

	tests := []struct {
		name string
		env  *platform.HostEnvironment
	}{
		{"nil environment", nil},
		{"relative temp dir", &platform.HostEnvironment{TempDir: "tmp", UserProfile: f.ProfileDir}},
		{"missing profile", &platform.HostEnvironment{TempDir: f.TempDir}},
	}

	s := newSweeper(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcomes, err := s.Sweep(context.Background(), scanner.AllTargets(), tt.env)

			require.Error(t, err)
			assert.True(t, errors.Is(err, platform.ErrInvalidEnvironment))
			var envErr *platform.EnvironmentError
			assert.True(t, errors.As(err, &envErr))
			assert.Nil(t, outcomes)
		})
	}

	f.AssertFileExists(file)
}

func TestSweepCollapsesDuplicatesAndKeepsOrder(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateTempFile("a.tmp", []byte("a"))

	s := newSweeper(t, nil)
	targets := []scanner.Target{
		{Kind: scanner.ThumbnailCache},
		{Kind: scanner.TempFiles},
		{Kind: scanner.ThumbnailCache},
		scanner.Browser(platform.VendorChrome),
	}

	outcomes, err := s.Sweep(context.Background(), targets, f.Env())
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, scanner.ThumbnailCache, outcomes[0].Target.Kind)
	assert.Equal(t, scanner.TempFiles, outcomes[1].Target.Kind)
	assert.Equal(t, "browser:chrome", outcomes[2].Target.String())
	assert.Equal(t, 1, outcomes[1].Deleted)
}

func TestSweepAllTargets(t *testing.T) {
	f := testutil.NewFixture(t)
	files := []string{
		f.CreateTempFile("a.tmp", []byte("a")),
		f.CreateProfileFile(filepath.Join("AppData", "Local", "Temp", "b.tmp"), []byte("b")),
		f.CreateWindowsFile(filepath.Join("Temp", "c.tmp"), []byte("c")),
		f.CreateWindowsFile(filepath.Join("Prefetch", "APP.EXE-1234.pf"), []byte("pf")),
		f.CreateWindowsFile(filepath.Join("Minidump", "mini.dmp"), []byte("dmp")),
		f.CreateProfileFile(filepath.Join("AppData", "Local", "Microsoft", "Windows", "Explorer", "thumbcache_256.db"), []byte("thumb")),
		f.CreateProfileFile(filepath.Join("AppData", "Local", "Google", "Chrome", "User Data", "Default", "Cache", "f_000001"), []byte("chrome")),
		f.CreateProfileFile(filepath.Join("AppData", "Local", "Microsoft", "Edge", "User Data", "Default", "Cache", "f_000002"), []byte("edge")),
	}
	iconcache := f.CreateProfileFile(filepath.Join("AppData", "Local", "Microsoft", "Windows", "Explorer", "iconcache_256.db"), []byte("icon"))

	s := newSweeper(t, nil)
	outcomes, err := s.Sweep(context.Background(), scanner.AllTargets(), f.Env())
	require.NoError(t, err)
	require.Len(t, outcomes, len(scanner.AllTargets()))

	total := 0
	for _, o := range outcomes {
		assertAccounting(t, o)
		assert.Empty(t, o.Failed, "unexpected failures for %s", o.Target)
		total += o.Deleted
	}
	assert.Equal(t, len(files), total)

	for _, file := range files {
		f.AssertFileNotExists(file)
	}
	f.AssertFileExists(iconcache)
}

func TestSweepReportsProgress(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateTempFile("a.tmp", []byte("abc"))

	pr := progress.NewProgressReporter()
	s := newSweeper(t, nil)
	s.SetProgressReporter(pr)
	assert.Same(t, pr, s.GetProgressReporter())

	sweepOne(t, s, scanner.Target{Kind: scanner.TempFiles}, f.Env())

	latest, ok := pr.Latest("temp")
	require.True(t, ok)
	assert.Equal(t, progress.PhaseComplete, latest.Phase)
	assert.Equal(t, 1, latest.Deleted)
	assert.Equal(t, int64(3), latest.BytesFreed)
}

func TestOutcomeSucceeded(t *testing.T) {
	assert.True(t, (&Outcome{Attempted: 2, Deleted: 2}).Succeeded())
	assert.False(t, (&Outcome{Attempted: 1, Failed: []PathFailure{{Path: "x"}}}).Succeeded())
	assert.False(t, (&Outcome{Cancelled: true}).Succeeded())
}

// =============================================================================
// DeletionManifest Tests
// =============================================================================

func TestDeletionManifest(t *testing.T) {
	m := NewDeletionManifest()
	m.Add("/path/file1", 100, "temp")
	m.Add("/path/file2", 200, "thumbnails")

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, int64(300), m.TotalSize)
	assert.Equal(t, "thumbnails", m.Files[1].Target)
}

func TestDeletionManifestSave(t *testing.T) {
	f := testutil.NewFixture(t)

	m := NewDeletionManifest()
	m.Add("/path/file1", 100, "temp")
	m.Add("/path/file2", 200, "dumps")

	manifestPath := filepath.Join(f.RootDir, "manifest.txt")
	require.NoError(t, m.Save(manifestPath))

	content, err := os.ReadFile(manifestPath)
	require.NoError(t, err)

	contentStr := string(content)
	for _, want := range []string{"Deletion Manifest", "/path/file1", "/path/file2", "Total Size: 300 bytes", "Total Files: 2"} {
		if !strings.Contains(contentStr, want) {
			t.Errorf("manifest should contain %q", want)
		}
	}
}

func TestDeletionManifestSaveError(t *testing.T) {
	m := NewDeletionManifest()
	err := m.Save(filepath.Join(t.TempDir(), "missing", "dir", "manifest.txt"))
	assert.Error(t, err)
}
