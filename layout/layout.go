// Package layout knows where the release pipeline reads its inputs and
// writes its outputs, relative to the project root.
package layout

import (
	"context"
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"

	"github.com/imagecompressor/tools/config"
	"github.com/imagecompressor/tools/util"

	"github.com/agnivade/levenshtein"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

const (
	BuildDirName     = "build"
	DistDirName      = "dist"
	PortableDirName  = "portable"
	InstallerDirName = "InstallerOutput"
	ReleaseDirName   = "RELEASE"
	ToolsDirName     = "tools"
)

// ErrFolderMissing is returned when the folder distribution consumed by the
// packaging step does not exist.
var ErrFolderMissing = errors.New("folder distribution not found")

// StalePatterns match leftovers of earlier freeze runs in the project root.
var StalePatterns = []string{"*.spec"}

// Layout resolves the fixed project-root-relative paths of a release.
type Layout struct {
	Root   string
	Config *config.Config
}

// New creates a layout rooted at root; root is made absolute.
func New(root string, c *config.Config) (*Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "could not resolve root %s", root)
	}
	return &Layout{Root: abs, Config: c}, nil
}

func (l *Layout) BuildDir() string     { return filepath.Join(l.Root, BuildDirName) }
func (l *Layout) DistDir() string      { return filepath.Join(l.Root, DistDirName) }
func (l *Layout) PortableDir() string  { return filepath.Join(l.DistDir(), PortableDirName) }
func (l *Layout) FolderDir() string    { return filepath.Join(l.DistDir(), l.Config.Name) }
func (l *Layout) InstallerDir() string { return filepath.Join(l.Root, InstallerDirName) }
func (l *Layout) ReleaseDir() string   { return filepath.Join(l.Root, ReleaseDirName) }
func (l *Layout) ToolsDir() string     { return filepath.Join(l.Root, ToolsDirName) }
func (l *Layout) Icon() string         { return filepath.Join(l.Root, l.Config.Icon) }
func (l *Layout) EntryPoint() string   { return filepath.Join(l.Root, l.Config.EntryPoint) }

// CheckFolder ensures the folder distribution exists.
func (l *Layout) CheckFolder() error {
	if info, err := os.Stat(l.FolderDir()); err != nil || !info.IsDir() {
		return errors.Wrapf(ErrFolderMissing, "%s does not exist", l.FolderDir())
	}
	return nil
}

// CheckBundle ensures the folder distribution carries every auxiliary tool
// in a tools/ directory, wherever the freeze tool nested it.
func (l *Layout) CheckBundle(ctx context.Context) error {
	files, err := util.ListFiles(ctx, l.FolderDir())
	if err != nil {
		return errors.Wrapf(err, "could not list %s", l.FolderDir())
	}

	bundled := make(map[string]bool)
	for _, f := range files {
		if path.Base(path.Dir(f)) == ToolsDirName {
			bundled[path.Base(f)] = true
		}
	}
	for _, t := range l.Config.Tools {
		if !bundled[t] {
			return errors.Errorf("folder distribution is missing %s/%s", ToolsDirName, t)
		}
	}
	util.Debugf(ctx, "folder distribution holds %d files\n", len(files))
	return nil
}

// PortableExe is where the single-file freeze leaves the executable.
func (l *Layout) PortableExe() string {
	return filepath.Join(l.PortableDir(), l.Config.ExeName())
}

// FolderExe is the executable inside the folder distribution.
func (l *Layout) FolderExe() string {
	return filepath.Join(l.FolderDir(), l.Config.ExeName())
}

// ToolPaths returns the absolute paths of the auxiliary tools.
func (l *Layout) ToolPaths() []string {
	paths := make([]string, 0, len(l.Config.Tools))
	for _, t := range l.Config.Tools {
		paths = append(paths, filepath.Join(l.ToolsDir(), t))
	}
	return paths
}

// MissingToolError reports an auxiliary tool absent from tools/.
type MissingToolError struct {
	Tool    string
	Closest string
}

func (e MissingToolError) Error() string {
	msg := fmt.Sprintf("auxiliary tool %s not found in %s/", e.Tool, ToolsDirName)
	if e.Closest != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", e.Closest)
	}
	return msg
}

// CheckTools ensures every auxiliary tool exists as a regular file.
func (l *Layout) CheckTools(ctx context.Context) error {
	for _, p := range l.ToolPaths() {
		info, err := os.Stat(p)
		if err == nil && info.Mode().IsRegular() {
			util.Debugf(ctx, "found tool %s\n", p)
			continue
		}
		return MissingToolError{
			Tool:    filepath.Base(p),
			Closest: l.closestTool(filepath.Base(p)),
		}
	}
	return nil
}

func (l *Layout) closestTool(target string) string {
	names, err := godirwalk.ReadDirnames(l.ToolsDir(), nil)
	if err != nil {
		return ""
	}
	var closest string
	minDist := math.MaxInt32
	for _, n := range names {
		if dist := levenshtein.ComputeDistance(target, n); dist < minDist {
			closest = n
			minDist = dist
		}
	}
	return closest
}

// Clean unconditionally removes every output of a previous run, including
// RELEASE/ and stale .spec files. Absent entries are skipped.
func (l *Layout) Clean(ctx context.Context) ([]string, error) {
	return l.remove(ctx, l.BuildDir(), l.DistDir(), l.InstallerDir(), l.ReleaseDir())
}

// CleanIntermediates removes everything Clean does except RELEASE/.
func (l *Layout) CleanIntermediates(ctx context.Context) ([]string, error) {
	return l.remove(ctx, l.BuildDir(), l.DistDir(), l.InstallerDir())
}

func (l *Layout) remove(ctx context.Context, dirs ...string) ([]string, error) {
	stale, err := util.MatchEntries(ctx, l.Root, StalePatterns...)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0)
	for _, p := range append(dirs, stale...) {
		if _, err := os.Lstat(p); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return removed, errors.Wrapf(err, "could not remove %s", p)
		}
		util.Debugf(ctx, "removed %s\n", p)
		removed = append(removed, p)
	}
	return removed, nil
}
