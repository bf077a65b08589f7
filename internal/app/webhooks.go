package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/metinatakli/payment-gateway/api"
	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/metinatakli/payment-gateway/internal/gateway"
)

// WebhookHandler applies a provider delivery to the payment it is about.
// Deliveries for payments this service does not know are acknowledged so the
// provider stops redelivering them. Every failure answers with a non 2xx
// status so the provider retries.
func (app *Application) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	provider, err := domain.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	gw, err := app.gatewayFor(provider)
	if err != nil {
		app.notFoundResponseWithErr(w, r, err)
		return
	}

	webhook, err := domain.NewWebhookFromRequest(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ref, err := gw.WebhookReference(webhook)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupported) {
			app.unprocessableEntityResponse(w, r, err)
			return
		}

		app.badRequestResponse(w, r, err)
		return
	}

	logger = logger.With("provider", provider.String(), "event_type", ref.EventType)

	payment, err := app.findWebhookPayment(r.Context(), gw, ref)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			logger.Info("webhook for unknown payment ignored",
				"payment_id", ref.PaymentID,
				"provider_ids", ref.ProviderIDs)

			app.writeWebhookResponse(w, r, api.WebhookResponse{Ignored: true})
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	payment, err = app.updatePayment(r, payment.ID, nil,
		func(ctx context.Context, gw *gateway.Gateway, payment *domain.Payment) error {
			_, err := gw.StatusFromWebhook(ctx, payment, webhook)
			return err
		})
	if err != nil {
		logger.Warn("failed to apply webhook", "error", err)
		app.paymentErrorResponse(w, r, err)
		return
	}

	app.writeWebhookResponse(w, r, api.WebhookResponse{Status: payment.Status.String()})
}

// findWebhookPayment looks the payment up by the id round-tripped through the
// provider, then by every provider resource id the delivery mentions. When
// neither is known locally the provider is asked for the payment id.
func (app *Application) findWebhookPayment(
	ctx context.Context,
	gw *gateway.Gateway,
	ref *domain.WebhookReference) (*domain.Payment, error) {

	payment, err := app.lookupWebhookPayment(ctx, gw.Provider(), ref)
	if !errors.Is(err, domain.ErrRecordNotFound) || ref.PaymentID != "" {
		return payment, err
	}

	err = gw.ResolveWebhookReference(ctx, ref)
	if err != nil {
		return nil, err
	}

	if ref.PaymentID == "" {
		return nil, domain.ErrRecordNotFound
	}

	return app.lookupWebhookPayment(ctx, gw.Provider(), &domain.WebhookReference{PaymentID: ref.PaymentID})
}

func (app *Application) lookupWebhookPayment(
	ctx context.Context,
	provider domain.Provider,
	ref *domain.WebhookReference) (*domain.Payment, error) {

	if ref.PaymentID != "" {
		payment, err := app.paymentRepo.GetById(ctx, ref.PaymentID)
		switch {
		case err == nil && payment.Provider == provider:
			return payment, nil
		case err != nil && !errors.Is(err, domain.ErrRecordNotFound):
			return nil, err
		}
	}

	for _, providerID := range ref.ProviderIDs {
		if providerID == "" {
			continue
		}

		payment, err := app.paymentRepo.GetByProviderId(ctx, provider, providerID)
		if err == nil {
			return payment, nil
		}

		if !errors.Is(err, domain.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, domain.ErrRecordNotFound
}

func (app *Application) writeWebhookResponse(w http.ResponseWriter, r *http.Request, resp api.WebhookResponse) {
	err := app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
