package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/shopfront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/shopfront-backend/pkg/errors"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	stripeclient "github.com/angelmondragon/shopfront-backend/pkg/stripe"
)

const maxPayloadBytes = 1 << 16

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type stripeWebhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type eventVerifier interface {
	HasWebhookSecret() bool
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// StripeWebhook verifies and reconciles payment intent events. The guard only
// short-circuits redeliveries; reconciliation itself is idempotent, so a nil
// guard is allowed.
func StripeWebhook(svc StripeWebhookService, verifier eventVerifier, guard stripeWebhookGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if verifier == nil || !verifier.HasWebhookSecret() {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, stripeclient.ErrWebhookSecretMissing, "webhook secret not configured"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook payload exceeds 64KiB").
					WithDetails(map[string]any{"limitBytes": tooLarge.Limit}))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}

		event, err := verifier.ConstructEvent(payload, sigHeader)
		if err != nil {
			if errors.Is(err, stripeclient.ErrWebhookSecretMissing) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "webhook secret not configured"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeSignatureInvalid, err, "webhook signature verification failed"))
			return
		}

		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{
				"stripe_event_id":   event.ID,
				"stripe_event_type": string(event.Type),
			})
		}

		if guard != nil {
			alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if alreadyProcessed {
				if logg != nil {
					logg.Info(ctx, "stripe.webhook.duplicate")
				}
				responses.WriteSuccess(w, map[string]bool{"received": true})
				return
			}
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if guard != nil {
				if relErr := guard.Release(ctx, event.ID); relErr != nil && logg != nil {
					logg.Error(ctx, "stripe.webhook.release_failed", relErr)
				}
			}
			if pkgerrors.As(err) == nil {
				err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "process webhook event")
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, "stripe.webhook.processed")
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
