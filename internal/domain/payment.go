package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrencyCode = "EUR"

type Customer struct {
	Name  string
	Email string
}

// Payment is one attempted transaction. It is mutated in place by the gateway:
// Provider and ProviderID on create, Status on every later operation. Callers
// must not share one Payment between concurrent operations.
type Payment struct {
	ID           string
	Provider     Provider
	ProviderID   string
	Amount       decimal.Decimal
	CurrencyCode string
	Description  string
	Metadata     map[string]string
	Status       Status
	Customer     Customer
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewPayment(id string, amount decimal.Decimal) *Payment {
	return &Payment{
		ID:           id,
		Amount:       amount,
		CurrencyCode: DefaultCurrencyCode,
		Metadata:     map[string]string{},
		Status:       StatusOpen,
	}
}

// IsFullRefund reports whether refunding amount returns the whole payment.
// A nil amount always means a full refund.
func (p *Payment) IsFullRefund(amount *decimal.Decimal) bool {
	return amount == nil || amount.GreaterThanOrEqual(p.Amount)
}

// PaymentFilters narrows a payment listing. Zero values match everything.
type PaymentFilters struct {
	Pagination
	Provider Provider
	Status   Status
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetById(ctx context.Context, id string) (*Payment, error)
	GetByProviderId(ctx context.Context, provider Provider, providerID string) (*Payment, error)
	Update(ctx context.Context, payment *Payment) error
	GetAll(ctx context.Context, filters PaymentFilters) ([]*Payment, *PageMetadata, error)
}
