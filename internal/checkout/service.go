package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/sweetshop-backend/internal/cart"
	"github.com/angelmondragon/sweetshop-backend/internal/offers"
	"github.com/angelmondragon/sweetshop-backend/internal/session"
	pkgcheckout "github.com/angelmondragon/sweetshop-backend/pkg/checkout"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	"github.com/angelmondragon/sweetshop-backend/pkg/metrics"
	"github.com/google/uuid"
)

// ReasonPromoNoLongerValid marks a submit rejected because the applied promo lapsed.
const ReasonPromoNoLongerValid = "PROMO_NO_LONGER_VALID"

// Service prices the session cart and hands completed checkouts to a Submitter.
type Service interface {
	Quote(ctx context.Context, sessionID string) (Quote, error)
	ApplyPromo(ctx context.Context, sessionID, code string) (Quote, error)
	RemovePromo(ctx context.Context, sessionID string) (Quote, error)
	Submit(ctx context.Context, sessionID string, details pkgcheckout.DeliveryDetails) (Receipt, error)
}

// Quote is the priced view of a session.
type Quote struct {
	Items      []cart.LineItem      `json:"items"`
	ItemCount  int                  `json:"item_count"`
	PromoState enums.PromoState     `json:"promo_state"`
	Promo      *offers.AppliedPromo `json:"promo,omitempty"`
	Totals     Totals               `json:"totals"`
}

// Receipt confirms a submission.
type Receipt struct {
	SubmissionID string    `json:"submission_id"`
	Reference    string    `json:"reference"`
	Totals       Totals    `json:"totals"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type ServiceParams struct {
	Sessions  session.Store
	Offers    offers.Source
	Submitter Submitter
	Logger    *logger.Logger
	Pricing   Pricing
	Metrics   *metrics.CheckoutMetrics
	Clock     func() time.Time
}

type service struct {
	sessions  session.Store
	offers    offers.Source
	submitter Submitter
	logg      *logger.Logger
	pricing   Pricing
	metrics   *metrics.CheckoutMetrics
	now       func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if params.Offers == nil {
		return nil, errors.New("offer source is required")
	}
	if params.Submitter == nil {
		return nil, errors.New("submitter is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Pricing.DeliveryFee < 0 {
		return nil, errors.New("delivery fee must not be negative")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		sessions:  params.Sessions,
		offers:    params.Offers,
		submitter: params.Submitter,
		logg:      params.Logger,
		pricing:   params.Pricing,
		metrics:   params.Metrics,
		now:       clock,
	}, nil
}

func (s *service) Quote(ctx context.Context, sessionID string) (Quote, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return Quote{}, err
	}
	return s.quote(sess), nil
}

// ApplyPromo evaluates code against the live offers and records it on the
// session. Only one promo may be applied at a time.
func (s *service) ApplyPromo(ctx context.Context, sessionID, code string) (Quote, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return Quote{}, err
	}
	if sess.Promo.State() == enums.PromoStateApplied {
		s.metrics.IncPromo("already_applied")
		return Quote{}, pkgerrors.New(pkgerrors.CodeStateConflict, "remove the applied promo code first").
			WithDetails(map[string]any{"applied_code": sess.Promo.Current().Code})
	}
	if offers.NormalizeCode(code) == "" {
		s.metrics.IncPromo(offers.ReasonEmptyCode)
		return Quote{}, offers.AsAPIError(offers.ErrEmptyCode)
	}

	now := s.now()
	active, err := s.activeOffers(ctx, now)
	if err != nil {
		return Quote{}, err
	}
	promo, err := sess.Promo.Apply(code, active, sess.Cart, now)
	if err != nil {
		s.metrics.IncPromo(offers.Reason(err))
		return Quote{}, offers.AsAPIError(err)
	}
	if err := s.save(ctx, sessionID, sess); err != nil {
		return Quote{}, err
	}
	s.metrics.IncPromo("applied")
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"promo_code":       promo.Code,
		"discount_percent": promo.DiscountPercent,
	}), "promo applied")
	return s.quote(sess), nil
}

func (s *service) RemovePromo(ctx context.Context, sessionID string) (Quote, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return Quote{}, err
	}
	if sess.Promo.State() == enums.PromoStateNone {
		return s.quote(sess), nil
	}
	sess.Promo.Remove()
	if err := s.save(ctx, sessionID, sess); err != nil {
		return Quote{}, err
	}
	return s.quote(sess), nil
}

// Submit validates the delivery details, re-checks any applied promo and
// forwards the priced cart. The session is discarded once the submitter
// accepts it.
func (s *service) Submit(ctx context.Context, sessionID string, details pkgcheckout.DeliveryDetails) (Receipt, error) {
	if err := requireSession(sessionID); err != nil {
		return Receipt{}, err
	}
	if err := pkgcheckout.ValidateDelivery(details); err != nil {
		return Receipt{}, err
	}
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return Receipt{}, err
	}
	if sess.Cart.IsEmpty() {
		return Receipt{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	now := s.now()
	if current := sess.Promo.Current(); current != nil {
		if err := s.revalidatePromo(ctx, sessionID, &sess, current.Code, now); err != nil {
			return Receipt{}, err
		}
	}

	totals := s.pricing.ComputeTotal(sess.Cart, sess.Promo.Current())
	sub := Submission{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Items:       sess.Cart.Items(),
		Promo:       sess.Promo.Current(),
		Totals:      totals,
		Delivery:    details.Normalize(),
		SubmittedAt: now.UTC(),
	}

	started := time.Now()
	ref, err := s.submitter.Submit(ctx, sub)
	s.metrics.ObserveSubmit(s.submitter.Name(), time.Since(started), totals.Total, err)
	if err != nil {
		return Receipt{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit checkout")
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "submission_id", sub.ID), "failed to discard session after submit", err)
	}
	return Receipt{
		SubmissionID: sub.ID,
		Reference:    ref,
		Totals:       totals,
		SubmittedAt:  sub.SubmittedAt,
	}, nil
}

// revalidatePromo re-runs the evaluator for the applied code. A promo that
// lapsed is dropped from the session and the submit is rejected so the
// shopper sees the new total first.
func (s *service) revalidatePromo(ctx context.Context, sessionID string, sess *session.Session, code string, now time.Time) error {
	active, err := s.activeOffers(ctx, now)
	if err != nil {
		return err
	}
	promo, err := offers.ApplyPromoCode(code, active, sess.Cart, now)
	if err == nil {
		sess.Promo.Applied = &promo
		return nil
	}
	if offers.Reason(err) == "" {
		return err
	}

	sess.Promo.Remove()
	if saveErr := s.save(ctx, sessionID, *sess); saveErr != nil {
		return saveErr
	}
	return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "applied promo code is no longer valid").
		WithDetails(map[string]any{"reason": ReasonPromoNoLongerValid, "promo_reason": offers.Reason(err), "code": code})
}

func (s *service) activeOffers(ctx context.Context, now time.Time) ([]offers.Offer, error) {
	active, err := s.offers.ListActive(ctx, now)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "offers unavailable")
	}
	return active, nil
}

func (s *service) quote(sess session.Session) Quote {
	promo := sess.Promo.Current()
	return Quote{
		Items:      sess.Cart.Items(),
		ItemCount:  sess.Cart.ItemCount(),
		PromoState: sess.Promo.State(),
		Promo:      promo,
		Totals:     s.pricing.ComputeTotal(sess.Cart, promo),
	}
}

func (s *service) load(ctx context.Context, sessionID string) (session.Session, error) {
	if err := requireSession(sessionID); err != nil {
		return session.Session{}, err
	}
	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return session.Session{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	return sess, nil
}

func (s *service) save(ctx context.Context, sessionID string, sess session.Session) error {
	if err := s.sessions.Save(ctx, sessionID, sess); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
	}
	return nil
}

func requireSession(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	return nil
}
