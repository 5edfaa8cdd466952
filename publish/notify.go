package publish

import (
	"context"
	"encoding/json"

	"github.com/imagecompressor/tools/release"
	"github.com/imagecompressor/tools/util"

	"cloud.google.com/go/pubsub"
	"github.com/pkg/errors"
)

// Notify announces a release on a Pub/Sub topic. The message body is the
// JSON manifest.
type Notify struct {
	Topic string

	send func(ctx context.Context, data []byte) (string, error)
}

// NewNotify connects to topic in project.
func NewNotify(ctx context.Context, project, topic string) (*Notify, error) {
	client, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, errors.Wrap(err, "could not create pubsub client")
	}
	t := client.Topic(topic)

	return &Notify{
		Topic: topic,
		send: func(ctx context.Context, data []byte) (string, error) {
			defer t.Stop()
			res := t.Publish(ctx, &pubsub.Message{
				Data:       data,
				Attributes: map[string]string{"event": "release"},
			})
			// blocks until the server assigns an ID
			return res.Get(ctx)
		},
	}, nil
}

func (n *Notify) Name() string { return "pubsub" }

func (n *Notify) Publish(ctx context.Context, m *release.Manifest) error {
	bytes, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "could not marshal manifest")
	}
	id, err := n.send(ctx, bytes)
	if err != nil {
		return errors.Wrapf(err, "could not publish to %s", n.Topic)
	}
	util.Infof(ctx, "published message %s\n", id)
	return nil
}
