package payment

import (
	"context"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
)

// StripeAPI is the subset of the Stripe API the adapter needs.
type StripeAPI interface {
	NewCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CapturePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	NewRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error)
}

type stripeClient struct {
	sessions *session.Client
	intents  *paymentintent.Client
	refunds  *refund.Client
}

// NewStripeClient builds a client bound to one secret key, so several
// gateways with different accounts can live in one process. Network retries
// are disabled, callers decide whether to retry.
func NewStripeClient(secretKey, apiBase string, httpClient *http.Client) StripeAPI {
	config := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
	}

	if apiBase != "" {
		config.URL = stripe.String(apiBase)
	}

	if httpClient != nil {
		config.HTTPClient = httpClient
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, config)

	return &stripeClient{
		sessions: &session.Client{B: backend, Key: secretKey},
		intents:  &paymentintent.Client{B: backend, Key: secretKey},
		refunds:  &refund.Client{B: backend, Key: secretKey},
	}
}

func (c *stripeClient) NewCheckoutSession(
	ctx context.Context,
	params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {

	params.Context = ctx
	return c.sessions.New(params)
}

func (c *stripeClient) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	return c.sessions.Get(id, params)
}

func (c *stripeClient) ExpireCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx

	return c.sessions.Expire(id, params)
}

func (c *stripeClient) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	return c.intents.Get(id, params)
}

func (c *stripeClient) CapturePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	return c.intents.Capture(id, params)
}

func (c *stripeClient) CancelPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	return c.intents.Cancel(id, params)
}

func (c *stripeClient) NewRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	params.Context = ctx
	return c.refunds.New(params)
}
