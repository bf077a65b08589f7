package domain

import (
	"context"
	"time"
)

type StatusChangedEvent struct {
	PaymentID  string    `json:"paymentId"`
	Provider   Provider  `json:"provider"`
	ProviderID string    `json:"providerId"`
	Previous   Status    `json:"previousStatus"`
	Current    Status    `json:"status"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currencyCode"`
	OccurredAt time.Time `json:"occurredAt"`

	// RefundedAmount is set for refunds when the refunded amount is known.
	RefundedAmount string `json:"refundedAmount,omitempty"`
}

func NewStatusChangedEvent(payment *Payment, previous Status) StatusChangedEvent {
	return StatusChangedEvent{
		PaymentID:  payment.ID,
		Provider:   payment.Provider,
		ProviderID: payment.ProviderID,
		Previous:   previous,
		Current:    payment.Status,
		Amount:     payment.Amount.StringFixed(2),
		Currency:   payment.CurrencyCode,
		OccurredAt: time.Now().UTC(),
	}
}

type EventPublisher interface {
	Publish(ctx context.Context, event StatusChangedEvent) error
}
