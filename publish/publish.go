// Package publish distributes the artifacts of a collected release.
// Every publisher is optional and is only built when configured.
package publish

import (
	"context"

	"github.com/imagecompressor/tools/config"
	"github.com/imagecompressor/tools/release"
	"github.com/imagecompressor/tools/util"

	"github.com/pkg/errors"
)

// Publisher sends a finished release somewhere.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, m *release.Manifest) error
}

// FromConfig builds the publishers enabled in c.
func FromConfig(ctx context.Context, c *config.Config) ([]Publisher, error) {
	var pubs []Publisher
	p := c.Publish

	if p.GCSBucket != "" {
		gcs, err := NewGCS(ctx, p.GCSBucket)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, gcs)
	}
	if p.GitHubRepo != "" {
		gh, err := NewGitHub(ctx, p.GitHubRepo)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, gh)
	}
	if p.PubSubProject != "" && p.PubSubTopic != "" {
		n, err := NewNotify(ctx, p.PubSubProject, p.PubSubTopic)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, n)
	}
	return pubs, nil
}

// Run hands m to each publisher in turn and stops at the first failure.
func Run(ctx context.Context, pubs []Publisher, m *release.Manifest) error {
	if len(pubs) == 0 {
		util.Infof(ctx, "no publishers configured\n")
		return nil
	}
	for _, p := range pubs {
		pctx := util.WithPrefix(ctx, "publish:"+p.Name())
		util.Infof(pctx, "publishing %s %s\n", m.Name, m.Version)
		if err := p.Publish(pctx, m); err != nil {
			return errors.Wrapf(err, "%s publish failed", p.Name())
		}
	}
	return nil
}
