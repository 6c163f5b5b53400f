// Package pubsub wraps the Pub/Sub v2 client used to hand checkout
// submissions to fulfilment.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoTopic           = errors.New("pubsub checkout topic is required")
	errNotConnected      = errors.New("pubsub client not initialized")
)

// ErrTopicNotFound is returned when the configured topic is missing.
var ErrTopicNotFound = errors.New("pubsub topic does not exist")

// TopicName is a fully qualified projects/<p>/topics/<t> resource.
type TopicName string

// ResolveTopic qualifies a bare topic id with the project. Already
// qualified names pass through unchanged.
func ResolveTopic(projectID, topic string) (TopicName, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errNoTopic
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return TopicName(topic), nil
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return "", errProjectIDRequired
	}
	return TopicName("projects/" + projectID + "/topics/" + topic), nil
}

type Client struct {
	client   *pubsub.Client
	checkout TopicName
	cfg      config.PubSubConfig
}

// NewClient dials Pub/Sub with explicit credentials when configured and
// falls back to application default credentials otherwise.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	checkout, err := ResolveTopic(gcp.ProjectID, cfg.CheckoutTopic)
	if err != nil {
		return nil, err
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{client: psClient, checkout: checkout, cfg: cfg}

	if cfg.VerifyTopic {
		if err := c.topicExists(ctx, checkout); err != nil {
			_ = psClient.Close()
			return nil, err
		}
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"topic":          string(checkout),
			"topic_verified": cfg.VerifyTopic,
		}), "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(gcp.CredentialsJSON))}
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(gcp.ApplicationCredentials)}
	}
	return nil
}

func (c *Client) topicExists(ctx context.Context, topic TopicName) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: string(topic)})
	switch {
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%w: %s", ErrTopicNotFound, topic)
	case err != nil:
		return fmt.Errorf("checking topic %s: %w", topic, err)
	}
	return nil
}

// CheckoutPublisher returns the publisher for checkout submissions with the
// configured batching applied.
func (c *Client) CheckoutPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	pub := c.client.Publisher(string(c.checkout))
	pub.PublishSettings = publishSettings(c.cfg)
	return pub
}

// publishSettings keeps batching short: a shopper is waiting on the result.
func publishSettings(cfg config.PubSubConfig) pubsub.PublishSettings {
	settings := pubsub.DefaultPublishSettings
	if cfg.PublishDelay > 0 {
		settings.DelayThreshold = cfg.PublishDelay
	}
	if cfg.PublishTimeout > 0 {
		settings.Timeout = cfg.PublishTimeout
	}
	return settings
}

// Ping checks the checkout topic is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotConnected
	}
	return c.topicExists(ctx, c.checkout)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
