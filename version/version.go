// Package version decides which version a release is stamped with.
package version

import (
	"context"
	"sort"
	"strings"

	"github.com/imagecompressor/tools/util"

	"github.com/blang/semver"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
)

// Fallback is used outside a tagged git repository.
const Fallback = "0.0.0-dev"

// Detect returns configured when set, otherwise the highest semver tag of
// the git repository at root with any "v" prefix removed, otherwise Fallback.
func Detect(ctx context.Context, root, configured string) (string, error) {
	if configured != "" {
		return strings.TrimPrefix(configured, "v"), nil
	}

	tags, err := Tags(root)
	if err != nil {
		if errors.Cause(err) == git.ErrRepositoryNotExists {
			util.Debugf(ctx, "%s is not a git repository, using %s\n", root, Fallback)
			return Fallback, nil
		}
		return "", err
	}
	util.Debugf(ctx, "found tags in git: %s\n", tags)

	sort.Sort(ByVersion(tags))
	if len(tags) == 0 {
		return Fallback, nil
	}
	v, err := semver.ParseTolerant(tags[0])
	if err != nil {
		util.Debugf(ctx, "no semver tag, using %s\n", Fallback)
		return Fallback, nil
	}
	return v.String(), nil
}

// Tags lists the tag names of the git repository at root.
func Tags(root string) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", root)
	}

	iter, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "could not list tags")
	}

	tags := make([]string, 0)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		tags = append(tags, ref.Name().Short())
		return nil
	})
	return tags, err
}
