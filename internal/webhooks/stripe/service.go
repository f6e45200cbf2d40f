package stripewebhook

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/metrics"
	"github.com/stripe/stripe-go/v84"
)

// Reconciler applies payment outcomes. Implemented by payments.Service.
type Reconciler interface {
	MarkSucceeded(ctx context.Context, intentID string) (bool, error)
	MarkFailed(ctx context.Context, intentID, reason string) (bool, error)
}

type ServiceParams struct {
	Payments Reconciler
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
}

// Service routes verified gateway events to payment reconciliation.
type Service struct {
	payments Reconciler
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment reconciler required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	return &Service{
		payments: params.Payments,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// HandleEvent reconciles one event. Unknown kinds, payloads without a payment
// intent id and unmatched intents are acknowledged without error; only processing failures are returned so the
// gateway redelivers.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event required")
	}
	kind := Classify(event.Type)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
		"event_kind": kind.String(),
	})

	if kind == KindUnknown {
		s.metrics.IncWebhookEvent(kind.String(), metrics.OutcomeIgnored)
		s.logg.Info(ctx, "stripe event ignored")
		return nil
	}

	intent, err := intentFromEvent(event)
	if err != nil {
		s.metrics.IncWebhookEvent(kind.String(), metrics.OutcomeIgnored)
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "stripe event ignored: no usable payment intent")
		return nil
	}
	ctx = s.logg.WithPaymentIntentID(ctx, intent.ID)

	var applied bool
	switch kind {
	case KindPaymentSucceeded:
		applied, err = s.payments.MarkSucceeded(ctx, intent.ID)
	case KindPaymentFailed, KindPaymentCanceled:
		applied, err = s.payments.MarkFailed(ctx, intent.ID, failureReason(kind, intent))
	default:
		return fmt.Errorf("unhandled event kind %s", kind)
	}
	if err != nil {
		s.metrics.IncWebhookEvent(kind.String(), metrics.OutcomeFailure)
		return err
	}

	outcome := metrics.OutcomeSuccess
	if !applied {
		outcome = metrics.OutcomeIgnored
	}
	s.metrics.IncWebhookEvent(kind.String(), outcome)
	s.logg.Info(s.logg.WithField(ctx, "applied", applied), "stripe event processed")
	return nil
}
