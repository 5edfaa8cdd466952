// Package installer turns the folder distribution into a Windows setup
// executable with "Open With" file associations.
package installer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/imagecompressor/tools/layout"
	"github.com/imagecompressor/tools/runner"
	"github.com/imagecompressor/tools/util"

	"github.com/pkg/errors"
)

var (
	// ErrCompilerMissing is returned when no installer compiler can be found.
	ErrCompilerMissing = errors.New("installer compiler (ISCC) not found")

	// ErrFolderMissing is returned when the folder distribution the
	// installer packages does not exist.
	ErrFolderMissing = layout.ErrFolderMissing
)

// DefaultCompilerPaths are the usual Inno Setup install locations.
var DefaultCompilerPaths = []string{
	`C:\Program Files (x86)\Inno Setup 6\ISCC.exe`,
	`C:\Program Files\Inno Setup 6\ISCC.exe`,
}

// Compiler invokes the installer compiler for a layout.
type Compiler struct {
	Layout  *layout.Layout
	Runner  runner.Runner
	Version string

	lookPath func(string) (string, error)
}

// NewCompiler creates a Compiler for version.
func NewCompiler(l *layout.Layout, r runner.Runner, version string) *Compiler {
	return &Compiler{Layout: l, Runner: r, Version: version, lookPath: exec.LookPath}
}

// ScriptPath is where the rendered installer definition is written.
func (c *Compiler) ScriptPath() string {
	return filepath.Join(c.Layout.BuildDir(), c.Layout.Config.Name+".iss")
}

// Output is the setup executable a successful compile produces.
func (c *Compiler) Output() string {
	return filepath.Join(c.Layout.InstallerDir(), BaseName(c.Layout.Config, c.Version)+".exe")
}

// Resolve finds the compiler: the configured path or command, then ISCC on
// the PATH, then the default install locations.
func (c *Compiler) Resolve() (string, error) {
	candidates := []string{}
	if configured := c.Layout.Config.Installer.Compiler; configured != "" {
		candidates = append(candidates, configured)
	} else {
		candidates = append(candidates, "iscc", "ISCC.exe")
		candidates = append(candidates, DefaultCompilerPaths...)
	}

	for _, candidate := range candidates {
		if strings.ContainsAny(candidate, `/\`) {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
			continue
		}
		if p, err := c.lookPath(candidate); err == nil {
			return p, nil
		}
	}
	return "", errors.Wrapf(ErrCompilerMissing, "looked for %s", strings.Join(candidates, ", "))
}

// Command is the compiler invocation for the script at path.
func (c *Compiler) Command(compiler, script string) runner.Command {
	return runner.Command{
		Name: compiler,
		Args: []string{"/D" + RootDefine + "=" + c.Layout.Root, "/Q", script},
		Dir:  c.Layout.Root,
	}
}

// Compile checks its preconditions, renders the script and compiles it.
// It returns the path of the setup executable.
func (c *Compiler) Compile(ctx context.Context) (string, error) {
	compiler, err := c.Resolve()
	if err != nil {
		return "", err
	}

	if err := c.Layout.CheckFolder(); err != nil {
		return "", err
	}

	script := c.ScriptPath()
	if err := os.MkdirAll(filepath.Dir(script), 0755); err != nil {
		return "", errors.Wrap(err, "could not create build directory")
	}
	if err := os.WriteFile(script, []byte(Script(c.Layout.Config, c.Version)), 0644); err != nil {
		return "", errors.Wrap(err, "could not write installer script")
	}
	util.Debugf(ctx, "wrote %s\n", script)

	if err := c.Runner.Run(ctx, c.Command(compiler, script)); err != nil {
		return "", errors.Wrap(err, "installer compilation failed")
	}

	out := c.Output()
	if _, err := os.Stat(out); err != nil {
		return "", errors.Wrapf(err, "compiler produced no %s", filepath.Base(out))
	}
	util.Infof(ctx, "built %s\n", out)
	return out, nil
}

// Package compiles the installer; it lets a Compiler stand in as the
// release packaging step.
func (c *Compiler) Package(ctx context.Context) (string, error) {
	return c.Compile(ctx)
}
