// Package release sequences the release pipeline: clean, portable freeze,
// folder freeze, installer, collect. Phases run one at a time in that order
// and the first failure stops the sequence.
package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/imagecompressor/tools/archive"
	"github.com/imagecompressor/tools/config"
	"github.com/imagecompressor/tools/freeze"
	"github.com/imagecompressor/tools/installer"
	"github.com/imagecompressor/tools/layout"
	"github.com/imagecompressor/tools/runner"
	"github.com/imagecompressor/tools/sri"
	"github.com/imagecompressor/tools/util"

	"github.com/pkg/errors"
)

// Phase names a step of the pipeline.
type Phase string

const (
	PhaseClean     Phase = "clean"
	PhasePortable  Phase = "portable"
	PhaseFolder    Phase = "folder"
	PhaseInstaller Phase = "installer"
	PhaseCollect   Phase = "collect"
)

// Phases is the strict execution order.
var Phases = []Phase{PhaseClean, PhasePortable, PhaseFolder, PhaseInstaller, PhaseCollect}

// PhaseError identifies the phase that stopped the pipeline.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %s", e.Phase, e.Err)
}

// Cause lets errors.Cause reach the underlying failure, such as a
// *runner.ExitError carrying the tool's exit code.
func (e *PhaseError) Cause() error {
	return e.Err
}

// Packager turns the folder distribution into the distributable installer.
type Packager interface {
	Package(ctx context.Context) (string, error)
}

// Artifact is one file of a finished release.
type Artifact struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Path string `json:"-"`
	Size int64  `json:"size"`
	SRI  string `json:"sri"`
}

// Manifest describes a finished release.
type Manifest struct {
	Name      string     `json:"name"`
	Version   string     `json:"version"`
	Artifacts []Artifact `json:"artifacts"`
}

// Release runs the pipeline for one version.
type Release struct {
	Layout   *layout.Layout
	Version  string
	Freezer  *freeze.Freezer
	Packager Packager

	// OnPhase, when set, is called before each phase starts.
	OnPhase func(Phase)

	portable  string
	installer string
}

// New wires a release for l. Freeze commands go through freezeRunner and
// installer commands through r; they differ when freezing in a sandbox.
func New(l *layout.Layout, r, freezeRunner runner.Runner, version string) *Release {
	var p Packager
	if l.Config.Installer.Kind == config.InstallerTarball {
		p = &archive.Packager{Layout: l, Version: version}
	} else {
		p = installer.NewCompiler(l, r, version)
	}
	return &Release{
		Layout:   l,
		Version:  version,
		Freezer:  freeze.New(l, freezeRunner),
		Packager: p,
	}
}

// PortableName is the release file name of the portable executable.
func (r *Release) PortableName() string {
	return r.Layout.Config.Name + "-" + r.Version + "-portable" + r.Layout.Config.ExeExt()
}

// Run executes every phase in order. On failure the returned error is a
// *PhaseError and artifacts from the phases that ran are left in place.
func (r *Release) Run(ctx context.Context) (*Manifest, error) {
	for _, p := range Phases {
		if err := r.RunPhase(ctx, p); err != nil {
			return nil, err
		}
	}
	return r.Manifest()
}

// RunPhase executes a single phase.
func (r *Release) RunPhase(ctx context.Context, p Phase) error {
	ctx = util.WithPrefix(ctx, string(p))
	if r.OnPhase != nil {
		r.OnPhase(p)
	}
	util.Infof(ctx, "starting\n")

	var err error
	switch p {
	case PhaseClean:
		var removed []string
		if removed, err = r.Layout.Clean(ctx); err == nil {
			util.Infof(ctx, "removed %d stale entries\n", len(removed))
		}
	case PhasePortable:
		r.portable, err = r.Freezer.Run(ctx, freeze.Portable)
	case PhaseFolder:
		_, err = r.Freezer.Run(ctx, freeze.Folder)
	case PhaseInstaller:
		r.installer, err = r.Packager.Package(ctx)
	case PhaseCollect:
		err = r.collect(ctx)
	default:
		err = errors.Errorf("unknown phase %q", p)
	}

	if err != nil {
		return &PhaseError{Phase: p, Err: err}
	}
	return nil
}

func (r *Release) collect(ctx context.Context) error {
	if r.portable == "" || r.installer == "" {
		return errors.New("nothing to collect; the build phases have not run")
	}

	dir := r.Layout.ReleaseDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "could not create release directory")
	}

	portable := filepath.Join(dir, r.PortableName())
	setup := filepath.Join(dir, filepath.Base(r.installer))
	for _, mv := range [][2]string{{r.portable, portable}, {r.installer, setup}} {
		util.Infof(ctx, "%s -> %s\n", mv[0], mv[1])
		if err := moveFile(mv[0], mv[1]); err != nil {
			return err
		}
	}
	r.portable, r.installer = portable, setup

	if _, err := r.Layout.CleanIntermediates(ctx); err != nil {
		return err
	}
	return r.verify()
}

// verify enforces that RELEASE/ holds exactly the two artifacts.
func (r *Release) verify() error {
	entries, err := os.ReadDir(r.Layout.ReleaseDir())
	if err != nil {
		return errors.Wrap(err, "could not list release directory")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	want := []string{filepath.Base(r.portable), filepath.Base(r.installer)}
	sort.Strings(want)
	if len(names) != 2 || names[0] != want[0] || names[1] != want[1] {
		return errors.Errorf("release directory holds %v, want %v", names, want)
	}
	return nil
}

// Manifest describes the collected artifacts.
func (r *Release) Manifest() (*Manifest, error) {
	m := &Manifest{Name: r.Layout.Config.Name, Version: r.Version}
	for _, a := range []struct{ kind, path string }{
		{"portable", r.portable},
		{"installer", r.installer},
	} {
		info, err := os.Stat(a.path)
		if err != nil {
			return nil, errors.Wrapf(err, "missing %s artifact", a.kind)
		}
		sum, err := sri.CalculateFileSRI(a.path)
		if err != nil {
			return nil, err
		}
		m.Artifacts = append(m.Artifacts, Artifact{
			Kind: a.kind,
			Name: filepath.Base(a.path),
			Path: a.path,
			Size: info.Size(),
			SRI:  sum,
		})
	}
	return m, nil
}
