package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentProvider is implemented by one adapter per external payment network.
// Adapters that cannot perform an operation return an error built with
// Unsupported instead of silently succeeding.
type PaymentProvider interface {
	Provider() Provider

	// Create registers the payment with the network, stamps ProviderID and
	// returns the approval target the payer is redirected to.
	Create(ctx context.Context, payment *Payment) (string, error)
	Execute(ctx context.Context, payment *Payment) (Status, error)
	// Refund returns amount to the payer, or everything when amount is nil.
	Refund(ctx context.Context, payment *Payment, amount *decimal.Decimal) error
	Cancel(ctx context.Context, payment *Payment) (Status, error)
	StatusFromWebhook(ctx context.Context, payment *Payment, webhook *Webhook) (Status, error)
	WebhookReference(webhook *Webhook) (*WebhookReference, error)

	SuccessURL() string
	CancelURL() string
	SetSuccessURL(url string)
	SetCancelURL(url string)
	SetSandbox(sandbox bool)
}

// WebhookReferenceResolver is implemented by adapters whose deliveries can
// name a payment only through a related provider object, e.g. a Stripe
// dispute that only carries the payment intent.
type WebhookReferenceResolver interface {
	// ResolveWebhookReference fills ref.PaymentID from the provider. It leaves
	// ref unchanged when the provider cannot tell.
	ResolveWebhookReference(ctx context.Context, ref *WebhookReference) error
}

// Credentials holds the provider secrets keyed by name, e.g. client_id.
type Credentials map[string]string

// Options carries adapter specific tuning. The gateway never looks inside.
type Options map[string]any

func (o Options) String(key string) string {
	s, _ := o[key].(string)
	return s
}

func (o Options) Strings(key string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func (o Options) StringMap(key string) map[string]any {
	switch v := o[key].(type) {
	case map[string]any:
		return v
	case map[string]string:
		out := make(map[string]any, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out
	default:
		return nil
	}
}
