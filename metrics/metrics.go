package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/imagecompressor/tools/util"

	"github.com/pkg/errors"
)

const (
	DEFAULT_METRICS_ENDPOINT = "https://metrics.imagecompressor.dev/inc"
)

type IncMetricPayload struct {
	Name   string                 `json:"name"`
	Labels IncMetricPayloadLabels `json:"labels"`
}

type IncMetricPayloadLabels struct {
	Type    *string `json:"type"`
	Version string  `json:"version,omitempty"`
}

// Client reports release counters. A client without a token is disabled
// and every call is a no-op.
type Client struct {
	Endpoint string
	Token    string
	HTTP     *http.Client
}

// FromEnv configures a client from METRICS_ENDPOINT and METRICS_TOKEN.
func FromEnv() *Client {
	return &Client{
		Endpoint: util.GetEnvOr("METRICS_ENDPOINT", DEFAULT_METRICS_ENDPOINT),
		Token:    os.Getenv("METRICS_TOKEN"),
		HTTP:     &http.Client{},
	}
}

// Enabled reports whether metrics are sent.
func (c *Client) Enabled() bool {
	return c != nil && c.Token != ""
}

func (c *Client) ReleaseStarted(version string) error {
	return c.sendMetrics(&IncMetricPayload{
		Name:   "release_started",
		Labels: IncMetricPayloadLabels{Version: version},
	})
}

func (c *Client) ReleaseFailed(version, phase string) error {
	return c.sendMetrics(&IncMetricPayload{
		Name: "release_failed",
		Labels: IncMetricPayloadLabels{
			Type:    &phase,
			Version: version,
		},
	})
}

func (c *Client) ReleaseSucceeded(version string) error {
	return c.sendMetrics(&IncMetricPayload{
		Name:   "release_succeeded",
		Labels: IncMetricPayloadLabels{Version: version},
	})
}

func (c *Client) sendMetrics(payload *IncMetricPayload) error {
	if !c.Enabled() {
		return nil
	}

	json, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshall payload")
	}

	req, err := http.NewRequest("POST", c.Endpoint, bytes.NewBuffer(json))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != 201 {
		return errors.Errorf("metrics endpoint returned %s", resp.Status)
	}
	return nil
}
