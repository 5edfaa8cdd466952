// Package archive packages the folder distribution for targets without a
// setup executable.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/imagecompressor/tools/layout"
	"github.com/imagecompressor/tools/util"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// TarGz writes src as a gzip-compressed tar to w. Entries are named
// prefix/<path relative to src> and written in lexical order.
func TarGz(ctx context.Context, src, prefix string, w io.Writer) error {
	// tar > gzip > w
	zr, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zr)

	err = godirwalk.Walk(src, &godirwalk.Options{
		Callback: func(file string, de *godirwalk.Dirent) error {
			fi, err := os.Lstat(file)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(src, file)
			if err != nil {
				return err
			}

			var link string
			if de.IsSymlink() {
				if link, err = os.Readlink(file); err != nil {
					return err
				}
			}
			header, err := tar.FileInfoHeader(fi, link)
			if err != nil {
				return err
			}

			// must provide real name
			// (see https://golang.org/src/archive/tar/common.go?#L626)
			header.Name = filepath.ToSlash(filepath.Join(prefix, rel))
			if fi.IsDir() {
				header.Name += "/"
			}

			if err := tw.WriteHeader(header); err != nil {
				return err
			}
			if !fi.Mode().IsRegular() {
				return nil
			}

			data, err := os.Open(file)
			if err != nil {
				return err
			}
			defer data.Close()
			if _, err := io.Copy(tw, data); err != nil {
				return err
			}
			util.Debugf(ctx, "archive: add %s\n", header.Name)
			return nil
		},
	})
	if err != nil {
		return errors.Wrapf(err, "could not archive %s", src)
	}

	// produce tar
	if err := tw.Close(); err != nil {
		return err
	}
	// produce gzip
	return zr.Close()
}

// Packager archives the folder distribution into InstallerOutput/.
type Packager struct {
	Layout  *layout.Layout
	Version string
}

// Output is the archive a successful Package writes.
func (p *Packager) Output() string {
	c := p.Layout.Config
	name := c.Name + "-" + p.Version + "-" + c.TargetOS + "-" + c.TargetArch + ".tar.gz"
	return filepath.Join(p.Layout.InstallerDir(), name)
}

// Package writes the archive, returning its path.
func (p *Packager) Package(ctx context.Context) (string, error) {
	if err := p.Layout.CheckFolder(); err != nil {
		return "", err
	}

	out := p.Output()
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", errors.Wrap(err, "could not create output directory")
	}
	f, err := os.Create(out)
	if err != nil {
		return "", errors.Wrap(err, "could not create archive")
	}
	defer f.Close()

	if err := TarGz(ctx, p.Layout.FolderDir(), p.Layout.Config.Name, f); err != nil {
		return "", err
	}
	if err := f.Sync(); err != nil {
		return "", errors.Wrap(err, "could not sync")
	}
	util.Infof(ctx, "built %s\n", out)
	return out, nil
}
