package payment

import (
	"context"
	"log/slog"

	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

// OfflinePaymentProvider handles manual payments (cash, invoice, bank
// transfer) that a human confirms out of band. It never contacts a network.
type OfflinePaymentProvider struct {
	settings
}

func NewOfflinePaymentProvider(logger *slog.Logger) *OfflinePaymentProvider {
	return &OfflinePaymentProvider{
		settings: newSettings(nil, nil, logger),
	}
}

func (o *OfflinePaymentProvider) Provider() domain.Provider {
	return domain.ProviderOffline
}

// Create returns the configured success URL verbatim.
func (o *OfflinePaymentProvider) Create(ctx context.Context, payment *domain.Payment) (string, error) {
	return o.successUrl, nil
}

// Execute marks the payment as awaiting manual confirmation.
func (o *OfflinePaymentProvider) Execute(ctx context.Context, payment *domain.Payment) (domain.Status, error) {
	payment.Status = domain.StatusPending
	return payment.Status, nil
}

func (o *OfflinePaymentProvider) Refund(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) error {
	return domain.Unsupported(domain.ProviderOffline, "refund")
}

func (o *OfflinePaymentProvider) Cancel(ctx context.Context, payment *domain.Payment) (domain.Status, error) {
	payment.Status = payment.Status.Transition(domain.StatusCancelled)
	return payment.Status, nil
}

func (o *OfflinePaymentProvider) StatusFromWebhook(
	ctx context.Context,
	payment *domain.Payment,
	webhook *domain.Webhook) (domain.Status, error) {

	return "", domain.Unsupported(domain.ProviderOffline, "getStatusFromWebhook")
}

func (o *OfflinePaymentProvider) WebhookReference(webhook *domain.Webhook) (*domain.WebhookReference, error) {
	return nil, domain.Unsupported(domain.ProviderOffline, "getStatusFromWebhook")
}
