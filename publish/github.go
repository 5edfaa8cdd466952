package publish

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/imagecompressor/tools/release"
	"github.com/imagecompressor/tools/util"

	"github.com/google/go-github/github"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

type releasesAPI interface {
	GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*github.RepositoryRelease, *github.Response, error)
	CreateRelease(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, *github.Response, error)
	UploadReleaseAsset(ctx context.Context, owner, repo string, id int64, opt *github.UploadOptions, file *os.File) (*github.ReleaseAsset, *github.Response, error)
}

// GitHub attaches artifacts to the v<version> release of a repository.
type GitHub struct {
	Owner string
	Repo  string

	api releasesAPI
}

// NewGitHub authenticates with GH_TOKEN against repo, given as owner/name.
func NewGitHub(ctx context.Context, repo string) (*GitHub, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	token := os.Getenv("GH_TOKEN")
	if token == "" {
		return nil, errors.New("GH_TOKEN is required to publish to GitHub")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	return &GitHub{Owner: owner, Repo: name, api: client.Repositories}, nil
}

func splitRepo(repo string) (string, string, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("invalid GitHub repository %q, want owner/name", repo)
	}
	return parts[0], parts[1], nil
}

func (g *GitHub) Name() string { return "github" }

// Tag is the release tag for version.
func Tag(version string) string {
	return "v" + strings.TrimPrefix(version, "v")
}

func (g *GitHub) Publish(ctx context.Context, m *release.Manifest) error {
	rel, err := g.release(ctx, m)
	if err != nil {
		return err
	}

	for _, a := range m.Artifacts {
		if err := g.upload(ctx, rel.GetID(), a); err != nil {
			return err
		}
		util.Infof(ctx, "attached %s to %s\n", a.Name, rel.GetTagName())
	}
	return nil
}

// release finds the release for m's tag, creating it when missing.
func (g *GitHub) release(ctx context.Context, m *release.Manifest) (*github.RepositoryRelease, error) {
	tag := Tag(m.Version)
	rel, resp, err := g.api.GetReleaseByTag(ctx, g.Owner, g.Repo, tag)
	if err == nil {
		util.Debugf(ctx, "reusing release %s\n", tag)
		return rel, nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return nil, errors.Wrapf(err, "could not look up release %s", tag)
	}

	rel, _, err = g.api.CreateRelease(ctx, g.Owner, g.Repo, &github.RepositoryRelease{
		TagName: github.String(tag),
		Name:    github.String(m.Name + " " + m.Version),
		Body:    github.String(releaseNotes(m)),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not create release %s", tag)
	}
	util.Infof(ctx, "created release %s\n", tag)
	return rel, nil
}

func releaseNotes(m *release.Manifest) string {
	var b strings.Builder
	for _, a := range m.Artifacts {
		b.WriteString("- `" + a.Name + "` " + a.SRI + "\n")
	}
	return b.String()
}

func (g *GitHub) upload(ctx context.Context, id int64, a release.Artifact) error {
	f, err := os.Open(a.Path)
	if err != nil {
		return errors.Wrapf(err, "could not open %s", a.Name)
	}
	defer f.Close()

	if _, _, err := g.api.UploadReleaseAsset(ctx, g.Owner, g.Repo, id, &github.UploadOptions{Name: a.Name}, f); err != nil {
		return errors.Wrapf(err, "could not upload %s", a.Name)
	}
	return nil
}
