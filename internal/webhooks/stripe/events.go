package stripewebhook

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"
)

// EventKind is the reconciliation action an event maps to.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindPaymentSucceeded
	KindPaymentFailed
	KindPaymentCanceled
)

func (k EventKind) String() string {
	switch k {
	case KindPaymentSucceeded:
		return "payment_succeeded"
	case KindPaymentFailed:
		return "payment_failed"
	case KindPaymentCanceled:
		return "payment_canceled"
	default:
		return "unknown"
	}
}

// Classify maps a gateway event type onto an EventKind.
func Classify(eventType stripe.EventType) EventKind {
	switch eventType {
	case stripe.EventTypePaymentIntentSucceeded:
		return KindPaymentSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		return KindPaymentFailed
	case stripe.EventTypePaymentIntentCanceled:
		return KindPaymentCanceled
	default:
		return KindUnknown
	}
}

// intentFromEvent decodes the payment intent carried by event.
func intentFromEvent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, fmt.Errorf("event %s has no data", event.ID)
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	if intent.ID == "" {
		return nil, fmt.Errorf("event %s carries no payment intent id", event.ID)
	}
	return &intent, nil
}

// failureReason picks the most specific human-readable reason for a failed or
// canceled intent.
func failureReason(kind EventKind, intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError != nil {
		if intent.LastPaymentError.Msg != "" {
			return intent.LastPaymentError.Msg
		}
		if intent.LastPaymentError.Code != "" {
			return string(intent.LastPaymentError.Code)
		}
	}
	if kind == KindPaymentCanceled {
		if intent.CancellationReason != "" {
			return "canceled: " + string(intent.CancellationReason)
		}
		return "payment canceled"
	}
	return "payment failed"
}
