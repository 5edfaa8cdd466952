package publish

import (
	"context"
	"io"
	"os"
	"path"

	"github.com/imagecompressor/tools/release"
	"github.com/imagecompressor/tools/util"

	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"cloud.google.com/go/storage"
)

// GCS uploads artifacts to a Cloud Storage bucket under <name>/<version>/.
type GCS struct {
	Bucket string

	open func(ctx context.Context, object string, meta map[string]string) io.WriteCloser
}

func getStorageClient(ctx context.Context) (*storage.Client, error) {
	if file := os.Getenv("GCS_CREDENTIALS"); file != "" {
		return storage.NewClient(ctx, option.WithCredentialsFile(file))
	}
	return storage.NewClient(ctx)
}

// NewGCS connects to bucket with GCS_CREDENTIALS, or the default
// credentials when it is unset.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := getStorageClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not create storage client")
	}
	bkt := client.Bucket(bucket)

	return &GCS{
		Bucket: bucket,
		open: func(ctx context.Context, object string, meta map[string]string) io.WriteCloser {
			w := bkt.Object(object).NewWriter(ctx)
			w.ContentType = "application/octet-stream"
			w.Metadata = meta
			return w
		},
	}, nil
}

func (g *GCS) Name() string { return "gcs" }

// ObjectName is the object an artifact is stored under.
func ObjectName(m *release.Manifest, a release.Artifact) string {
	return path.Join(m.Name, m.Version, a.Name)
}

func (g *GCS) Publish(ctx context.Context, m *release.Manifest) error {
	for _, a := range m.Artifacts {
		name := ObjectName(m, a)
		if err := g.upload(ctx, name, a, map[string]string{
			"version":   m.Version,
			"kind":      a.Kind,
			"integrity": a.SRI,
		}); err != nil {
			return err
		}
		util.Infof(ctx, "uploaded gs://%s/%s\n", g.Bucket, name)
	}
	return nil
}

func (g *GCS) upload(ctx context.Context, object string, a release.Artifact, meta map[string]string) error {
	f, err := os.Open(a.Path)
	if err != nil {
		return errors.Wrapf(err, "could not open %s", a.Name)
	}
	defer f.Close()

	w := g.open(ctx, object, meta)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return errors.Wrapf(err, "could not upload %s", object)
	}
	return errors.Wrapf(w.Close(), "could not finalize %s", object)
}
