package release

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/imagecompressor/tools/config"
	"github.com/imagecompressor/tools/installer"
	"github.com/imagecompressor/tools/layout"
	"github.com/imagecompressor/tools/runner"
	"github.com/imagecompressor/tools/util"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVersion = "2.1.0"

type fixture struct {
	layout   *layout.Layout
	rec      *runner.Recorder
	release  *Release
	compiler string
}

func touch(t *testing.T, path string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("MZ"), 0755))
}

func hasArg(c runner.Command, arg string) bool {
	for _, a := range c.Args {
		if a == arg {
			return true
		}
	}
	return false
}

// newFixture builds a project with sources, tools and stale leftovers,
// plus a recorder that fakes the freeze tool and the installer compiler.
func newFixture(t *testing.T) *fixture {
	compiler := filepath.Join(t.TempDir(), "ISCC.exe")
	touch(t, compiler)

	c := config.Default()
	c.Installer.Compiler = compiler
	l, err := layout.New(t.TempDir(), c)
	require.NoError(t, err)

	touch(t, l.EntryPoint())
	touch(t, l.Icon())
	for _, tool := range l.ToolPaths() {
		touch(t, tool)
	}

	touch(t, filepath.Join(l.BuildDir(), "old", "warn.txt"))
	touch(t, filepath.Join(l.DistDir(), "portable", "old.exe"))
	touch(t, filepath.Join(l.InstallerDir(), "old-setup.exe"))
	touch(t, filepath.Join(l.ReleaseDir(), "old-portable.exe"))
	touch(t, filepath.Join(l.Root, "compressor.spec"))

	rec := &runner.Recorder{}
	f := &fixture{layout: l, rec: rec, compiler: compiler}
	rec.Hook = func(cmd runner.Command) error {
		switch {
		case cmd.Name == compiler:
			touch(t, filepath.Join(l.InstallerDir(), installer.BaseName(c, testVersion)+".exe"))
		case hasArg(cmd, "--onefile"):
			touch(t, l.PortableExe())
		case hasArg(cmd, "--onedir"):
			touch(t, l.FolderExe())
			for _, tool := range c.Tools {
				touch(t, filepath.Join(l.FolderDir(), layout.ToolsDirName, tool))
			}
		}
		return nil
	}
	f.release = New(l, rec, rec, testVersion)
	return f
}

func TestRunSuccess(t *testing.T) {
	f := newFixture(t)
	var phases []Phase
	f.release.OnPhase = func(p Phase) { phases = append(phases, p) }

	m, err := f.release.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Phases, phases)

	entries, err := os.ReadDir(f.layout.ReleaseDir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"compressor-2.1.0-portable.exe", "compressor-2.1.0-setup.exe"}, names)

	for _, gone := range []string{
		f.layout.BuildDir(),
		f.layout.DistDir(),
		f.layout.InstallerDir(),
		filepath.Join(f.layout.Root, "compressor.spec"),
	} {
		_, err := os.Stat(gone)
		assert.True(t, os.IsNotExist(err), gone)
	}

	assert.Equal(t, "compressor", m.Name)
	assert.Equal(t, testVersion, m.Version)
	require.Len(t, m.Artifacts, 2)
	assert.Equal(t, "portable", m.Artifacts[0].Kind)
	assert.Equal(t, "installer", m.Artifacts[1].Kind)
	for _, a := range m.Artifacts {
		assert.Equal(t, int64(2), a.Size)
		assert.Contains(t, a.SRI, "sha512-")
	}

	require.Len(t, f.rec.Commands, 3)
	assert.Equal(t, f.compiler, f.rec.Commands[2].Name)
}

func TestCleanRunsBeforeFirstCommand(t *testing.T) {
	f := newFixture(t)
	hook := f.rec.Hook
	checked := false
	f.rec.Hook = func(cmd runner.Command) error {
		if !checked {
			checked = true
			for _, stale := range []string{
				filepath.Join(f.layout.BuildDir(), "old"),
				filepath.Join(f.layout.DistDir(), "portable", "old.exe"),
				filepath.Join(f.layout.InstallerDir(), "old-setup.exe"),
				f.layout.ReleaseDir(),
				filepath.Join(f.layout.Root, "compressor.spec"),
			} {
				_, err := os.Stat(stale)
				assert.True(t, os.IsNotExist(err), stale)
			}
		}
		return hook(cmd)
	}

	_, err := f.release.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, checked)
}

func TestFolderFailureStopsPipeline(t *testing.T) {
	f := newFixture(t)
	hook := f.rec.Hook
	f.rec.Hook = func(cmd runner.Command) error {
		if hasArg(cmd, "--onedir") {
			return &runner.ExitError{Command: cmd, Code: 3}
		}
		return hook(cmd)
	}

	_, err := f.release.Run(context.Background())
	require.Error(t, err)

	var pe *PhaseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PhaseFolder, pe.Phase)
	assert.Equal(t, 3, runner.ExitCode(err))

	for _, cmd := range f.rec.Commands {
		assert.NotEqual(t, f.compiler, cmd.Name)
	}
	assert.Len(t, f.rec.Commands, 2)

	// partial artifacts are left for inspection
	_, err = os.Stat(f.layout.PortableExe())
	assert.NoError(t, err)
}

func TestMissingFolderIsCritical(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, p := range []Phase{PhaseClean, PhasePortable} {
		require.NoError(t, f.release.RunPhase(ctx, p))
	}

	err := f.release.RunPhase(ctx, PhaseInstaller)
	require.Error(t, err)
	assert.Equal(t, layout.ErrFolderMissing, errors.Cause(err))
	assert.Equal(t, 1, runner.ExitCode(err))
	for _, cmd := range f.rec.Commands {
		assert.NotEqual(t, f.compiler, cmd.Name)
	}
}

func TestCollectRejectsExtraFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, p := range []Phase{PhaseClean, PhasePortable, PhaseFolder, PhaseInstaller} {
		require.NoError(t, f.release.RunPhase(ctx, p))
	}
	touch(t, filepath.Join(f.layout.ReleaseDir(), "notes.txt"))

	err := f.release.RunPhase(ctx, PhaseCollect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect phase failed")
}

func TestCollectWithoutBuild(t *testing.T) {
	f := newFixture(t)
	err := f.release.RunPhase(context.Background(), PhaseCollect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build phases have not run")
}

func TestTarballPackager(t *testing.T) {
	c := config.Default()
	c.TargetOS = "linux"
	c.Installer.Kind = config.InstallerTarball
	l, err := layout.New(t.TempDir(), c)
	require.NoError(t, err)

	rel := New(l, &runner.Recorder{}, &runner.Recorder{}, testVersion)
	assert.Equal(t, "compressor-2.1.0-portable", rel.PortableName())
	_, ok := rel.Packager.(*installer.Compiler)
	assert.False(t, ok)
}

func TestBanner(t *testing.T) {
	err := &PhaseError{
		Phase: PhaseInstaller,
		Err:   errors.Wrap(layout.ErrFolderMissing, "dist/compressor"),
	}
	banner := Banner(err)
	assert.Contains(t, banner, "BUILD FAILED: installer phase")
	assert.Contains(t, banner, "dist/compressor")
	assert.Contains(t, banner, layout.ErrFolderMissing.Error())
	assert.NotContains(t, banner, "cause:")

	multi := Banner(&PhaseError{
		Phase: PhaseFolder,
		Err:   &runner.ExitError{Command: runner.Command{Name: "pyinstaller"}, Code: 1, Output: "ERROR: Unable to find module PIL\n"},
	})
	assert.Contains(t, multi, " pyinstaller exited with code 1:\n ERROR: Unable to find module PIL\n")

	assert.Contains(t, Banner(errors.New("boom")), "BUILD FAILED: release\n boom\n")
}

func TestFailingToolOutputReachesOperator(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	tool := filepath.Join(t.TempDir(), "pyinstaller")
	require.NoError(t, os.WriteFile(tool, []byte("#!/bin/sh\necho 'ERROR: Unable to find module PIL' >&2\nexit 1\n"), 0755))

	c := config.Default()
	c.Freeze.Command = tool
	l, err := layout.New(t.TempDir(), c)
	require.NoError(t, err)
	touch(t, l.EntryPoint())
	touch(t, l.Icon())
	for _, p := range l.ToolPaths() {
		touch(t, p)
	}

	var logs bytes.Buffer
	ctx := util.ContextWithEntries(util.GetStandardEntries("", log.New(&logs, "", 0))...)
	rel := New(l, runner.Exec{}, runner.Exec{}, testVersion)

	_, err = rel.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, logs.String(), "portable: | ERROR: Unable to find module PIL\n")
	assert.Contains(t, Banner(err), "ERROR: Unable to find module PIL")
	assert.Equal(t, 1, runner.ExitCode(err))
}

func TestMoveFileKeepsContentAndMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "compressor.exe")
	require.NoError(t, os.WriteFile(src, []byte("MZ payload"), 0755))

	dest := filepath.Join(dir, "copy.exe")
	require.NoError(t, copyFile(src, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "MZ payload", string(data))

	moved := filepath.Join(dir, "moved.exe")
	require.NoError(t, moveFile(src, moved))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	info, err := os.Stat(moved)
	require.NoError(t, err)
	assert.Equal(t, int64(len("MZ payload")), info.Size())
}
