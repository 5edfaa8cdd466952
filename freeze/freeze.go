// Package freeze bundles the entry point and its auxiliary tools into a
// standalone executable.
package freeze

import (
	"context"
	"os"
	"path/filepath"

	"github.com/imagecompressor/tools/layout"
	"github.com/imagecompressor/tools/runner"
	"github.com/imagecompressor/tools/util"

	"github.com/pkg/errors"
)

// Mode selects the freeze output layout.
type Mode int

const (
	// Portable produces a single self-contained executable.
	Portable Mode = iota
	// Folder produces a directory distribution, consumed by the installer.
	Folder
)

func (m Mode) String() string {
	switch m {
	case Portable:
		return "portable"
	case Folder:
		return "folder"
	default:
		return "unknown"
	}
}

// Freezer invokes the freeze tool for a layout.
type Freezer struct {
	Layout *layout.Layout
	Runner runner.Runner

	// Separator splits source and destination in --add-binary values.
	// The freeze tool expects the target platform's path list separator.
	Separator string
}

// New creates a Freezer using the target platform's separator.
func New(l *layout.Layout, r runner.Runner) *Freezer {
	sep := ":"
	if l.Config.IsWindows() {
		sep = ";"
	}
	return &Freezer{Layout: l, Runner: r, Separator: sep}
}

// DistPath is the --distpath for a mode.
func (f *Freezer) DistPath(m Mode) string {
	if m == Portable {
		return f.Layout.PortableDir()
	}
	return f.Layout.DistDir()
}

// Output is the executable a successful run of mode leaves behind.
func (f *Freezer) Output(m Mode) string {
	if m == Portable {
		return f.Layout.PortableExe()
	}
	return f.Layout.FolderExe()
}

// Args builds the freeze tool command line for a mode. Both modes embed
// the same auxiliary tools under tools/ so the entry point finds them
// next to itself at runtime.
func (f *Freezer) Args(m Mode) []string {
	l := f.Layout
	args := []string{"--noconfirm", "--clean"}
	if m == Portable {
		args = append(args, "--onefile")
	} else {
		args = append(args, "--onedir")
	}
	args = append(args,
		"--windowed",
		"--name", l.Config.Name,
		"--icon", l.Icon(),
	)
	for _, tool := range l.ToolPaths() {
		args = append(args, "--add-binary", tool+f.Separator+layout.ToolsDirName)
	}
	args = append(args, l.Config.Freeze.ExtraArgs...)
	args = append(args,
		"--distpath", f.DistPath(m),
		"--workpath", l.BuildDir(),
		"--specpath", l.Root,
		l.EntryPoint(),
	)
	return args
}

// Command is the freeze tool invocation for a mode.
func (f *Freezer) Command(m Mode) runner.Command {
	return runner.Command{
		Name: f.Layout.Config.Freeze.Command,
		Args: f.Args(m),
		Dir:  f.Layout.Root,
	}
}

// Run freezes the entry point in mode and checks the expected output exists.
func (f *Freezer) Run(ctx context.Context, m Mode) (string, error) {
	l := f.Layout
	if _, err := os.Stat(l.EntryPoint()); err != nil {
		return "", errors.Wrapf(err, "entry point %s", filepath.Base(l.EntryPoint()))
	}
	if err := l.CheckTools(ctx); err != nil {
		return "", err
	}

	util.Infof(ctx, "freezing %s (%s)\n", filepath.Base(l.EntryPoint()), m)
	if err := f.Runner.Run(ctx, f.Command(m)); err != nil {
		return "", errors.Wrapf(err, "%s freeze failed", m)
	}

	out := f.Output(m)
	if _, err := os.Stat(out); err != nil {
		return "", errors.Wrapf(err, "%s freeze produced no executable", m)
	}
	if m == Folder {
		if err := l.CheckBundle(ctx); err != nil {
			return "", err
		}
	}
	util.Infof(ctx, "built %s\n", out)
	return out, nil
}
