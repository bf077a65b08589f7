package integration_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type WebhookTestSuite struct {
	BaseSuite
}

func TestWebhookSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(WebhookTestSuite))
}

func (s *WebhookTestSuite) TestStripeWebhook() {
	completed := stripeEvent("checkout.session.completed",
		`{"id":"cs_seed_2","object":"checkout.session","payment_status":"paid","payment_intent":"pi_seed_2"}`)
	refunded := stripeEvent("charge.refunded",
		`{"id":"ch_1","object":"charge","amount_refunded":1999,"payment_intent":"pi_seed_1"}`)
	unknown := stripeEvent("payment_intent.succeeded",
		`{"id":"pi_unknown","object":"payment_intent","status":"succeeded","metadata":{"payment_id":"unknown"}}`)

	scenarios := []Scenario{
		{
			Name:           "returns 400 for a delivery with a bad signature",
			Method:         http.MethodPost,
			URL:            "/webhooks/stripe",
			Body:           jsonBody(completed),
			Headers:        signedStripeHeaders(completed, "whsec_wrong"),
			ExpectedStatus: http.StatusBadRequest,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				s.resetPayments(t)
			},
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				payment, err := app.Repo.GetById(context.Background(), TestSeedOpenPayment)
				require.NoError(t, err)
				assert.Equal(t, domain.StatusOpen, payment.Status)
			},
		},
		{
			Name:             "acknowledges deliveries for unknown payments",
			Method:           http.MethodPost,
			URL:              "/webhooks/stripe",
			Body:             jsonBody(unknown),
			Headers:          signedStripeHeaders(unknown, TestWebhookSecret),
			ExpectedStatus:   http.StatusOK,
			ExpectedResponse: `{"ignored": true}`,
		},
		{
			Name:             "completes a payment found by its checkout session",
			Method:           http.MethodPost,
			URL:              "/webhooks/stripe",
			Body:             jsonBody(completed),
			Headers:          signedStripeHeaders(completed, TestWebhookSecret),
			ExpectedStatus:   http.StatusOK,
			ExpectedResponse: `{"status": "succeeded"}`,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				s.resetPayments(t)
			},
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				payment, err := app.Repo.GetByProviderId(context.Background(), domain.ProviderStripe, "pi_seed_2")
				require.NoError(t, err)
				assert.Equal(t, TestSeedOpenPayment, payment.ID)
				assert.Equal(t, "pi_seed_2", payment.ProviderID)
				assert.Equal(t, domain.StatusSucceeded, payment.Status)

				waitForEmails(t, app, 1)
				email := app.Mailer.GetSentEmails()[0]
				assert.Equal(t, TestCustomerEmail, email.Recipient)
				assert.Equal(t, "complete", email.Data.(map[string]any)["statusText"])

				events := app.Publisher.Published()
				require.Len(t, events, 1)
				assert.Equal(t, domain.StatusSucceeded, events[0].Current)
			},
		},
		{
			Name:             "keeps the status when a delivery is repeated",
			Method:           http.MethodPost,
			URL:              "/webhooks/stripe",
			Body:             jsonBody(completed),
			Headers:          signedStripeHeaders(completed, TestWebhookSecret),
			ExpectedStatus:   http.StatusOK,
			ExpectedResponse: `{"status": "succeeded"}`,
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				assert.Len(t, app.Publisher.Published(), 1)
			},
		},
		{
			Name:             "refunds a payment found by its payment intent",
			Method:           http.MethodPost,
			URL:              "/webhooks/stripe",
			Body:             jsonBody(refunded),
			Headers:          signedStripeHeaders(refunded, TestWebhookSecret),
			ExpectedStatus:   http.StatusOK,
			ExpectedResponse: `{"status": "refunded"}`,
			BeforeTestFunc: func(t testing.TB, app *TestApp) {
				s.resetPayments(t)
			},
			AfterTestFunc: func(t testing.TB, app *TestApp, res *http.Response) {
				payment, err := app.Repo.GetById(context.Background(), TestSeedStripePayment)
				require.NoError(t, err)
				assert.Equal(t, domain.StatusRefunded, payment.Status)

				waitForEmails(t, app, 1)
				assert.Equal(t, "19.99", app.Mailer.GetSentEmails()[0].Data.(map[string]any)["refundedAmount"])
			},
		},
		{
			Name:             "returns 404 for a provider that is not enabled",
			Method:           http.MethodPost,
			URL:              "/webhooks/paypal",
			Body:             jsonBody(`{}`),
			ExpectedStatus:   http.StatusNotFound,
			ExpectedResponse: `{"message": "payment provider is not enabled: paypal"}`,
		},
		{
			Name:             "returns 422 for offline payments",
			Method:           http.MethodPost,
			URL:              "/webhooks/offline",
			Body:             jsonBody(`{}`),
			ExpectedStatus:   http.StatusUnprocessableEntity,
			ExpectedResponse: `{"message": "offline getStatusFromWebhook: getStatusFromWebhook is not possible with offline provider"}`,
		},
	}

	for _, scenario := range scenarios {
		scenario.Run(s.T(), s.app)
	}
}
