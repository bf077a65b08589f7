package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/metinatakli/payment-gateway/internal/payment"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/metinatakli/payment-gateway/internal/gateway"

var requiredCredentials = map[domain.Provider][]string{
	domain.ProviderOffline: nil,
	domain.ProviderPayPal:  {"client_id", "client_secret"},
	domain.ProviderStripe:  {"secret_key", "webhook_secret"},
}

// Gateway is the provider agnostic facade. It checks the preconditions every
// adapter shares and delegates the rest.
//
// A Gateway may be used from many goroutines as long as the setters are not
// called concurrently with operations. Operations on the same Payment must be
// serialised by the caller.
type Gateway struct {
	provider domain.PaymentProvider
	logger   *slog.Logger
	tracer   trace.Tracer
	counter  metric.Int64Counter
}

type config struct {
	logger     *slog.Logger
	httpClient *http.Client
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithHTTPClient sets the client used for provider API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// New validates the provider tag and its credentials and builds the adapter.
func New(provider string, credentials domain.Credentials, options domain.Options, opts ...Option) (*Gateway, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	tag, err := domain.ParseProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, err.Error())
	}

	for _, key := range requiredCredentials[tag] {
		if credentials[key] == "" {
			return nil, fmt.Errorf("%w: %s requires credential %q", domain.ErrInvalidCredentials, tag, key)
		}
	}

	logger := cfg.logger.With("provider", tag.String())

	var adapter domain.PaymentProvider

	switch tag {
	case domain.ProviderPayPal:
		adapter = payment.NewPayPalPaymentProvider(credentials, options, cfg.httpClient, logger)
	case domain.ProviderStripe:
		adapter = payment.NewStripePaymentProvider(credentials, options, cfg.httpClient, logger)
	default:
		adapter = payment.NewOfflinePaymentProvider(logger)
	}

	return newGateway(adapter, logger), nil
}

// NewWithProvider wraps an already built adapter.
func NewWithProvider(provider domain.PaymentProvider, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	return newGateway(provider, logger)
}

func newGateway(provider domain.PaymentProvider, logger *slog.Logger) *Gateway {
	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"payment_gateway.operations",
		metric.WithDescription("Number of payment gateway operations by provider, operation and outcome"),
	)
	if err != nil {
		logger.Warn("failed to create operation counter", "error", err)
	}

	return &Gateway{
		provider: provider,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
		counter:  counter,
	}
}

func (g *Gateway) Provider() domain.Provider {
	return g.provider.Provider()
}

func (g *Gateway) SuccessURL() string {
	return g.provider.SuccessURL()
}

func (g *Gateway) CancelURL() string {
	return g.provider.CancelURL()
}

func (g *Gateway) SetSuccessURL(url string) {
	g.provider.SetSuccessURL(url)
}

func (g *Gateway) SetCancelURL(url string) {
	g.provider.SetCancelURL(url)
}

func (g *Gateway) SetSandbox(sandbox bool) {
	g.provider.SetSandbox(sandbox)
}

// Create registers the payment with the provider and returns the URL the payer
// has to visit. payment.Provider and payment.ProviderID are stamped.
func (g *Gateway) Create(ctx context.Context, payment *domain.Payment) (approvalURL string, err error) {
	ctx, end := g.start(ctx, "create", payment)
	defer func() { end(err) }()

	if g.provider.SuccessURL() == "" {
		return "", fmt.Errorf("%w: success url must be set before create", domain.ErrInvalidOptions)
	}

	if g.provider.CancelURL() == "" {
		return "", fmt.Errorf("%w: cancel url must be set before create", domain.ErrInvalidOptions)
	}

	payment.Provider = g.provider.Provider()

	return g.provider.Create(ctx, payment)
}

// Execute finalizes the payment after the payer approved it.
func (g *Gateway) Execute(ctx context.Context, payment *domain.Payment) (status domain.Status, err error) {
	ctx, end := g.start(ctx, "execute", payment)
	defer func() { end(err) }()

	err = g.requireProviderID(payment, "execute")
	if err != nil {
		return "", err
	}

	previous := payment.Status

	status, err = g.provider.Execute(ctx, payment)
	if err != nil {
		return "", err
	}

	payment.Status = status
	g.logTransition(ctx, "execute", payment, previous)

	return status, nil
}

// Refund returns amount to the payer. A nil amount refunds everything.
func (g *Gateway) Refund(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) (err error) {
	ctx, end := g.start(ctx, "refund", payment)
	defer func() { end(err) }()

	if g.provider.Provider().AssignsProviderID() {
		err = g.requireProviderID(payment, "refund")
		if err != nil {
			return err
		}

		err = validateRefundAmount(payment, amount)
		if err != nil {
			return err
		}
	}

	previous := payment.Status

	err = g.provider.Refund(ctx, payment, amount)
	if err != nil {
		return err
	}

	g.logTransition(ctx, "refund", payment, previous)

	return nil
}

// Cancel abandons a payment that has not been captured yet.
func (g *Gateway) Cancel(ctx context.Context, payment *domain.Payment) (status domain.Status, err error) {
	ctx, end := g.start(ctx, "cancel", payment)
	defer func() { end(err) }()

	err = g.requireProviderID(payment, "cancel")
	if err != nil {
		return "", err
	}

	previous := payment.Status

	status, err = g.provider.Cancel(ctx, payment)
	if err != nil {
		return "", err
	}

	payment.Status = status
	g.logTransition(ctx, "cancel", payment, previous)

	return status, nil
}

// StatusFromWebhook verifies a delivery and applies the status it implies to
// the payment. Deliveries about other payments or irrelevant events leave the
// status unchanged.
func (g *Gateway) StatusFromWebhook(
	ctx context.Context,
	payment *domain.Payment,
	webhook *domain.Webhook) (status domain.Status, err error) {

	ctx, end := g.start(ctx, "getStatusFromWebhook", payment)
	defer func() { end(err) }()

	err = g.requireProviderID(payment, "getStatusFromWebhook")
	if err != nil {
		return "", err
	}

	previous := payment.Status

	status, err = g.provider.StatusFromWebhook(ctx, payment, webhook)
	if err != nil {
		return "", err
	}

	payment.Status = status
	g.logTransition(ctx, "getStatusFromWebhook", payment, previous)

	return status, nil
}

// WebhookReference reads which payment a delivery is about without verifying
// it. The result is only good for looking the payment up.
func (g *Gateway) WebhookReference(webhook *domain.Webhook) (*domain.WebhookReference, error) {
	return g.provider.WebhookReference(webhook)
}

// ResolveWebhookReference asks the provider which payment a delivery is about
// when the local lookup found nothing. Providers without a way to tell leave
// ref as is.
func (g *Gateway) ResolveWebhookReference(ctx context.Context, ref *domain.WebhookReference) error {
	resolver, ok := g.provider.(domain.WebhookReferenceResolver)
	if !ok {
		return nil
	}

	return resolver.ResolveWebhookReference(ctx, ref)
}

func (g *Gateway) requireProviderID(payment *domain.Payment, op string) error {
	if payment.ProviderID == "" && g.provider.Provider().AssignsProviderID() {
		return fmt.Errorf("%w: %s requires a provider id, create the payment first", domain.ErrInvalidOptions, op)
	}

	return nil
}

func validateRefundAmount(payment *domain.Payment, amount *decimal.Decimal) error {
	if amount == nil {
		return nil
	}

	if !amount.IsPositive() {
		return fmt.Errorf("%w: refund amount must be positive", domain.ErrInvalidOptions)
	}

	if amount.GreaterThan(payment.Amount) {
		return fmt.Errorf("%w: refund amount %s exceeds payment amount %s",
			domain.ErrInvalidOptions, amount.String(), payment.Amount.String())
	}

	return nil
}

func (g *Gateway) start(ctx context.Context, op string, payment *domain.Payment) (context.Context, func(error)) {
	provider := g.provider.Provider().String()

	ctx, span := g.tracer.Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("payment.id", payment.ID),
			attribute.String("payment.provider", provider),
		),
	)

	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = outcomeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			g.logger.WarnContext(ctx, "payment operation failed",
				"op", op,
				"payment_id", payment.ID,
				"error", err)
		}

		span.SetAttributes(attribute.String("payment.status", payment.Status.String()))
		span.End()

		if g.counter != nil {
			g.counter.Add(ctx, 1, metric.WithAttributes(
				attribute.String("provider", provider),
				attribute.String("op", op),
				attribute.String("outcome", outcome),
			))
		}
	}
}

func (g *Gateway) logTransition(ctx context.Context, op string, payment *domain.Payment, previous domain.Status) {
	if payment.Status == previous {
		return
	}

	g.logger.InfoContext(ctx, "payment status changed",
		"op", op,
		"payment_id", payment.ID,
		"provider_id", payment.ProviderID,
		"from", previous.String(),
		"to", payment.Status.String())
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidOptions):
		return "invalid_options"
	case errors.Is(err, domain.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, domain.ErrGateway):
		return "gateway_error"
	default:
		return "error"
	}
}
