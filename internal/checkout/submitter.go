package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/internal/offers"
	pkgcheckout "github.com/angelmondragon/sweetshop-backend/pkg/checkout"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
)

const (
	defaultPublishTimeout = 15 * time.Second
	submissionEventType   = "checkout.submitted"
)

// Submission is the priced checkout handed to the external order step.
type Submission struct {
	ID          string                      `json:"id"`
	SessionID   string                      `json:"session_id"`
	Items       []cart.LineItem             `json:"items"`
	Promo       *offers.AppliedPromo        `json:"promo,omitempty"`
	Totals      Totals                      `json:"totals"`
	Delivery    pkgcheckout.DeliveryDetails `json:"delivery"`
	SubmittedAt time.Time                   `json:"submitted_at"`
}

// Submitter forwards a submission and returns an external reference for it.
type Submitter interface {
	Name() string
	Submit(ctx context.Context, sub Submission) (string, error)
}

// LogSubmitter only records the submission in the structured log.
type LogSubmitter struct {
	logg *logger.Logger
}

func NewLogSubmitter(logg *logger.Logger) (*LogSubmitter, error) {
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &LogSubmitter{logg: logg}, nil
}

func (s *LogSubmitter) Name() string { return "log" }

func (s *LogSubmitter) Submit(ctx context.Context, sub Submission) (string, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"submission_id":  sub.ID,
		"item_count":     len(sub.Items),
		"subtotal":       sub.Totals.Subtotal,
		"discount":       sub.Totals.DiscountAmount,
		"total":          sub.Totals.Total,
		"payment_method": sub.Delivery.PaymentMethod.String(),
	})
	if sub.Promo != nil {
		ctx = s.logg.WithField(ctx, "promo_code", sub.Promo.Code)
	}
	s.logg.Info(ctx, "checkout submitted")
	return sub.ID, nil
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PubSubSubmitter publishes each submission as JSON to the checkout topic.
type PubSubSubmitter struct {
	pub     publisher
	logg    *logger.Logger
	timeout time.Duration
}

// NewPubSubSubmitter wraps a Pub/Sub publisher handle.
func NewPubSubSubmitter(p *gcppubsub.Publisher, logg *logger.Logger) (*PubSubSubmitter, error) {
	if p == nil {
		return nil, errors.New("publisher is required")
	}
	return newPubSubSubmitter(&gcpPublisher{Publisher: p}, logg)
}

func newPubSubSubmitter(pub publisher, logg *logger.Logger) (*PubSubSubmitter, error) {
	if pub == nil {
		return nil, errors.New("publisher is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &PubSubSubmitter{pub: pub, logg: logg, timeout: defaultPublishTimeout}, nil
}

func (s *PubSubSubmitter) Name() string { return "pubsub" }

func (s *PubSubSubmitter) Submit(ctx context.Context, sub Submission) (string, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("encode submission: %w", err)
	}
	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_id":     sub.ID,
			"event_type":   submissionEventType,
			"submitted_at": sub.SubmittedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	result := s.pub.Publish(publishCtx, msg)
	if result == nil {
		return "", errors.New("publisher returned nil result")
	}
	serverID, err := result.Get(publishCtx)
	if err != nil {
		return "", fmt.Errorf("publish submission: %w", err)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"submission_id": sub.ID,
		"message_id":    serverID,
	}), "checkout submission published")
	return serverID, nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
