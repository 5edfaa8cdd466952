package util

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

// MatchEntries returns the absolute paths of the entries directly inside dir
// whose name matches one of the glob patterns. A missing dir yields no matches.
func MatchEntries(ctx context.Context, dir string, patterns ...string) ([]string, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %q", p)
		}
		globs = append(globs, g)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			Debugf(ctx, "match %s in %s but doesn't exists", patterns, dir)
			return nil, nil
		}
		return nil, errors.Wrapf(err, "could not read %s", dir)
	}

	list := make([]string, 0)
	for _, e := range entries {
		for _, g := range globs {
			if g.Match(e.Name()) {
				list = append(list, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	return list, nil
}

// ListFiles lists every regular file below base as slash-separated paths
// relative to base, in lexical order.
// It utilizes the fast godirwalk library found here: https://github.com/karrick/godirwalk
func ListFiles(ctx context.Context, base string) ([]string, error) {
	list := make([]string, 0)

	if _, err := os.Stat(base); os.IsNotExist(err) {
		Debugf(ctx, "list %s but doesn't exists", base)
		return list, nil
	}

	err := godirwalk.Walk(base, &godirwalk.Options{
		Callback: func(fp string, de *godirwalk.Dirent) error {
			rel, err := filepath.Rel(base, fp)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			if !de.IsDir() && rel != "." && !strings.HasPrefix(rel, "../") {
				list = append(list, rel)
			}
			return nil
		},
		FollowSymbolicLinks: true,
	})

	return list, err
}
