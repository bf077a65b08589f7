package mocks

import (
	"context"

	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockPaymentProvider keeps its redirect URLs as plain fields, only the
// network operations go through mock.Mock.
type MockPaymentProvider struct {
	mock.Mock
	domain.PaymentProvider

	Tag        domain.Provider
	successUrl string
	cancelUrl  string
	sandbox    bool
}

func (m *MockPaymentProvider) Provider() domain.Provider {
	return m.Tag
}

func (m *MockPaymentProvider) Create(ctx context.Context, payment *domain.Payment) (string, error) {
	args := m.Called(ctx, payment)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) Execute(ctx context.Context, payment *domain.Payment) (domain.Status, error) {
	args := m.Called(ctx, payment)
	return args.Get(0).(domain.Status), args.Error(1)
}

func (m *MockPaymentProvider) Refund(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) error {
	args := m.Called(ctx, payment, amount)
	return args.Error(0)
}

func (m *MockPaymentProvider) Cancel(ctx context.Context, payment *domain.Payment) (domain.Status, error) {
	args := m.Called(ctx, payment)
	return args.Get(0).(domain.Status), args.Error(1)
}

func (m *MockPaymentProvider) StatusFromWebhook(
	ctx context.Context,
	payment *domain.Payment,
	webhook *domain.Webhook) (domain.Status, error) {

	args := m.Called(ctx, payment, webhook)
	return args.Get(0).(domain.Status), args.Error(1)
}

func (m *MockPaymentProvider) WebhookReference(webhook *domain.Webhook) (*domain.WebhookReference, error) {
	args := m.Called(webhook)
	ref, _ := args.Get(0).(*domain.WebhookReference)
	return ref, args.Error(1)
}

func (m *MockPaymentProvider) ResolveWebhookReference(ctx context.Context, ref *domain.WebhookReference) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockPaymentProvider) SuccessURL() string {
	return m.successUrl
}

func (m *MockPaymentProvider) CancelURL() string {
	return m.cancelUrl
}

func (m *MockPaymentProvider) SetSuccessURL(url string) {
	m.successUrl = url
}

func (m *MockPaymentProvider) SetCancelURL(url string) {
	m.cancelUrl = url
}

func (m *MockPaymentProvider) SetSandbox(sandbox bool) {
	m.sandbox = sandbox
}
