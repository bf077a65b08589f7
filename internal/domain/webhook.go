package domain

import (
	"fmt"
	"io"
	"net/http"
)

const maxWebhookBytes = 1 << 20

// Webhook is one raw delivery from a payment provider. Payload must be the
// exact bytes received, signatures are computed over them.
type Webhook struct {
	Payload []byte
	Header  http.Header
}

func NewWebhookFromRequest(r *http.Request) (*Webhook, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook body: %w", err)
	}

	if len(payload) > maxWebhookBytes {
		return nil, fmt.Errorf("webhook body must not be larger than %d bytes", maxWebhookBytes)
	}

	return &Webhook{
		Payload: payload,
		Header:  r.Header.Clone(),
	}, nil
}

// WebhookReference identifies the payment a delivery is about. It is read from
// the unverified payload and only used to look the payment up.
type WebhookReference struct {
	EventType   string
	PaymentID   string
	ProviderIDs []string
}
