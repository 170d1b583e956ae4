package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fenilsonani/winsweep/internal/platform"
	"github.com/fenilsonani/winsweep/internal/security"
	"github.com/fenilsonani/winsweep/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMissingRootsContributeNothing(t *testing.T) {
	f := testutil.NewFixture(t)
	env := f.Env()
	env.TempDir = filepath.Join(f.RootDir, "does-not-exist")

	for _, target := range AllTargets() {
		t.Run(target.String(), func(t *testing.T) {
			paths, err := Resolve(target, env)
			require.NoError(t, err)
			assert.Empty(t, paths)
		})
	}
}

func TestResolveTempFiles(t *testing.T) {
	f := testutil.NewFixture(t)
	localTemp := f.CreateDir(filepath.Join("Users", "tester", "AppData", "Local", "Temp"))
	winTemp := f.CreateDir(filepath.Join("Windows", "Temp"))

	paths, err := Resolve(Target{Kind: TempFiles}, f.Env())
	require.NoError(t, err)
	assert.Equal(t, []string{f.TempDir, localTemp, winTemp}, paths)
}

func TestResolveDeduplicatesTempRoots(t *testing.T) {
	f := testutil.NewFixture(t)
	localTemp := f.CreateDir(filepath.Join("Users", "tester", "AppData", "Local", "Temp"))

	env := f.Env()
	env.TempDir = localTemp + string(filepath.Separator)

	paths, err := Resolve(Target{Kind: TempFiles}, env)
	require.NoError(t, err)
	assert.Equal(t, []string{localTemp}, paths)
}

func TestResolveWindowsTargets(t *testing.T) {
	f := testutil.NewFixture(t)
	prefetch := f.CreateDir(filepath.Join("Windows", "Prefetch"))
	minidump := f.CreateDir(filepath.Join("Windows", "Minidump"))
	memory := f.CreateWindowsFile("MEMORY.DMP", []byte("dump"))

	paths, err := Resolve(Target{Kind: Prefetch}, f.Env())
	require.NoError(t, err)
	assert.Equal(t, []string{prefetch}, paths)

	paths, err = Resolve(Target{Kind: DumpFiles}, f.Env())
	require.NoError(t, err)
	assert.Equal(t, []string{minidump, memory}, paths)

	env := f.Env()
	env.WindowsDir = ""
	paths, err = Resolve(Target{Kind: DumpFiles}, env)
	require.NoError(t, err)
	assert.Empty(t, paths, "no windows dir means no dump roots")
}

func TestResolveThumbnailCache(t *testing.T) {
	f := testutil.NewFixture(t)
	explorer := filepath.Join("AppData", "Local", "Microsoft", "Windows", "Explorer")
	a := f.CreateProfileFile(filepath.Join(explorer, "thumbcache_256.db"), []byte("x"))
	b := f.CreateProfileFile(filepath.Join(explorer, "thumbcache_idx.db"), []byte("x"))
	f.CreateProfileFile(filepath.Join(explorer, "iconcache_16.db"), []byte("x"))

	paths, err := Resolve(Target{Kind: ThumbnailCache}, f.Env())
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, paths)
}

func TestResolveBrowserCache(t *testing.T) {
	f := testutil.NewFixture(t)
	chrome := f.CreateDir(filepath.Join("Users", "tester", "AppData", "Local", "Google", "Chrome", "User Data", "Default", "Cache"))
	profiles := filepath.Join("Users", "tester", "AppData", "Local", "Mozilla", "Firefox", "Profiles")
	ff1 := f.CreateDir(filepath.Join(profiles, "abcd.default-release", "cache2"))
	ff2 := f.CreateDir(filepath.Join(profiles, "wxyz.default-release", "cache2"))
	f.CreateDir(filepath.Join(profiles, "old.default", "cache2"))

	paths, err := Resolve(Browser(platform.VendorChrome), f.Env())
	require.NoError(t, err)
	assert.Equal(t, []string{chrome}, paths)

	paths, err = Resolve(Browser(platform.VendorFirefox), f.Env())
	require.NoError(t, err)
	assert.Equal(t, []string{ff1, ff2}, paths)

	paths, err = Resolve(Browser("netscape"), f.Env())
	require.NoError(t, err)
	assert.Empty(t, paths, "a vendor without paths resolves to nothing")
}

func TestResolveNeverLeavesRoots(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateOutsideFile("keep.txt", []byte("keep"))
	env := f.Env()

	for _, target := range AllTargets() {
		paths, err := Resolve(target, env)
		require.NoError(t, err)
		for _, p := range paths {
			_, ok := security.EnclosingRoot(env.Roots(), p)
			assert.True(t, ok, "%s resolved %s outside the roots", target, p)
		}
	}
}

func TestResolveDropsLinkedRoots(t *testing.T) {
	f := testutil.NewFixture(t)
	cacheDir := filepath.Join(f.ProfileDir, "AppData", "Local", "Google", "Chrome", "User Data", "Default", "Cache")
	f.CreateSymlink(f.OutsideDir, cacheDir)

	paths, err := Resolve(Browser(platform.VendorChrome), f.Env())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestResolveDropsPathsThroughLinkedAncestors(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateOutsideFile(filepath.Join("appdata", "Local", "Temp", "keep.txt"), []byte("keep"))
	f.CreateOutsideFile(filepath.Join("appdata", "Local", "Microsoft", "Windows", "Explorer", "thumbcache_32.db"), []byte("keep"))
	f.CreateSymlink(filepath.Join(f.OutsideDir, "appdata"), filepath.Join(f.ProfileDir, "AppData"))
	env := f.Env()

	paths, err := Resolve(Target{Kind: TempFiles}, env)
	require.NoError(t, err)
	assert.Equal(t, []string{f.TempDir}, paths)

	paths, err = Resolve(Target{Kind: ThumbnailCache}, env)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestResolveSkipsLinkedGlobMatches(t *testing.T) {
	f := testutil.NewFixture(t)
	profiles := filepath.Join("AppData", "Local", "Mozilla", "Firefox", "Profiles")
	cache := f.CreateProfileFile(filepath.Join(profiles, "a.default-release", "cache2", "entry"), []byte("x"))
	f.CreateOutsideFile(filepath.Join("profile", "cache2", "keep.bin"), []byte("keep"))
	f.CreateSymlink(filepath.Join(f.OutsideDir, "profile"), filepath.Join(f.ProfileDir, profiles, "b.default-release"))

	paths, err := Resolve(Browser(platform.VendorFirefox), f.Env())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Dir(cache)}, paths)
}

func TestResolveAltTempDir(t *testing.T) {
	f := testutil.NewFixture(t)
	alt := f.CreateDir("tmp2")
	env := f.Env()
	env.AltTempDir = alt

	paths, err := Resolve(Target{Kind: TempFiles}, env)
	require.NoError(t, err)
	assert.Equal(t, []string{f.TempDir, alt}, paths)

	env.AltTempDir = f.TempDir
	paths, err = Resolve(Target{Kind: TempFiles}, env)
	require.NoError(t, err)
	assert.Equal(t, []string{f.TempDir}, paths, "a TMP equal to TEMP is swept once")
}

func TestResolveInvalidEnvironment(t *testing.T) {
	_, err := Resolve(Target{Kind: TempFiles}, &platform.HostEnvironment{TempDir: "relative", UserProfile: "/x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, platform.ErrInvalidEnvironment))
}

func TestWalkSkipsLinksAndReportsDirectories(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateTempFile("a.tmp", []byte("a"))
	f.CreateTempFile(filepath.Join("sub", "c.tmp"), []byte("ccc"))
	f.CreateOutsideFile("secret.txt", []byte("secret"))
	f.CreateSymlink(f.OutsideDir, filepath.Join(f.TempDir, "linkdir"))
	f.CreateSymlink(filepath.Join(f.OutsideDir, "secret.txt"), filepath.Join(f.TempDir, "link.txt"))

	var seen []string
	var sizes int64
	dirs, err := Walk(context.Background(), f.TempDir, func(e Entry) error {
		seen = append(seen, e.Path)
		sizes += e.Size
		assert.Equal(t, f.TempDir, e.Root)
		return nil
	}, func(we WalkError) {
		t.Errorf("unexpected walk error: %v", we.Err)
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(f.TempDir, "a.tmp"),
		filepath.Join(f.TempDir, "sub", "c.tmp"),
	}, seen)
	assert.Equal(t, int64(4), sizes)
	assert.Equal(t, []string{filepath.Join(f.TempDir, "sub")}, dirs)
}

func TestWalkUnreadableRoot(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateTempFile("a.tmp", []byte("a"))
	f.MakeUnreadable(f.TempDir)

	var walkErrs []WalkError
	_, err := Walk(context.Background(), f.TempDir, func(Entry) error { return nil }, func(we WalkError) {
		walkErrs = append(walkErrs, we)
	})

	require.NoError(t, err)
	require.Len(t, walkErrs, 1)
	assert.True(t, walkErrs[0].IsRoot)
	assert.True(t, os.IsPermission(walkErrs[0].Err))
}

func TestWalkCancelled(t *testing.T) {
	f := testutil.NewFixture(t)
	f.CreateTempFile("a.tmp", []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	visited := 0
	_, err := Walk(ctx, f.TempDir, func(Entry) error { visited++; return nil }, func(WalkError) {})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, visited)
}
