package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
)

const (
	checkoutSessionPrefix = "cs_"
	paymentIntentPrefix   = "pi_"
	stripeSignatureHeader = "Stripe-Signature"
	metadataPaymentID     = "payment_id"

	captureMethodAutomatic = "automatic"
	captureMethodManual    = "manual"
)

const (
	stripeEventPaymentIntentSucceeded      = "payment_intent.succeeded"
	stripeEventPaymentIntentFailed         = "payment_intent.payment_failed"
	stripeEventPaymentIntentProcessing     = "payment_intent.processing"
	stripeEventPaymentIntentCanceled       = "payment_intent.canceled"
	stripeEventPaymentIntentRequiresAction = "payment_intent.requires_action"
	stripeEventPaymentIntentCapturable     = "payment_intent.amount_capturable_updated"
	stripeEventCheckoutCompleted           = "checkout.session.completed"
	stripeEventCheckoutAsyncSucceeded      = "checkout.session.async_payment_succeeded"
	stripeEventCheckoutAsyncFailed         = "checkout.session.async_payment_failed"
	stripeEventCheckoutExpired             = "checkout.session.expired"
	stripeEventDisputeCreated              = "charge.dispute.created"
	stripeEventRefundCreated               = "refund.created"
	stripeEventChargeRefunded              = "charge.refunded"
)

// manualCaptureMethods are the payment method types that support placing a
// hold and capturing later.
var manualCaptureMethods = map[string]bool{
	"card":              true,
	"link":              true,
	"paypal":            true,
	"klarna":            true,
	"affirm":            true,
	"afterpay_clearpay": true,
	"cashapp":           true,
	"amazon_pay":        true,
	"revolut_pay":       true,
	"mobilepay":         true,
}

// StripePaymentProvider uses hosted checkout sessions to collect payments and
// the payment intent behind a session to follow its lifecycle.
type StripePaymentProvider struct {
	settings
	httpClient *http.Client
	api        StripeAPI

	once   sync.Once
	client StripeAPI
}

func NewStripePaymentProvider(
	credentials domain.Credentials,
	options domain.Options,
	httpClient *http.Client,
	logger *slog.Logger) *StripePaymentProvider {

	return &StripePaymentProvider{
		settings:   newSettings(credentials, options, logger),
		httpClient: httpClient,
	}
}

func (s *StripePaymentProvider) WithAPI(api StripeAPI) *StripePaymentProvider {
	s.api = api
	return s
}

func (s *StripePaymentProvider) Provider() domain.Provider {
	return domain.ProviderStripe
}

func (s *StripePaymentProvider) Create(ctx context.Context, payment *domain.Payment) (string, error) {
	metadata := make(map[string]string, len(payment.Metadata)+1)
	for k, v := range payment.Metadata {
		metadata[k] = v
	}
	metadata[metadataPaymentID] = payment.ID

	name := payment.Description
	if name == "" {
		name = "Payment " + payment.ID
	}

	methodTypes := s.options.Strings("payment_method_types")

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(payment.CurrencyCode)),
					UnitAmount: stripe.Int64(toMinorUnits(payment.Amount, payment.CurrencyCode)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(s.successUrl),
		CancelURL:         stripe.String(s.cancelUrl),
		ClientReferenceID: stripe.String(payment.ID),
		Metadata:          metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			CaptureMethod: stripe.String(captureMethod(methodTypes)),
			Metadata:      metadata,
		},
	}

	if payment.Customer.Email != "" {
		params.CustomerEmail = stripe.String(payment.Customer.Email)
	}

	if len(methodTypes) > 0 {
		params.PaymentMethodTypes = stripe.StringSlice(methodTypes)
	}

	checkoutSession, err := s.stripe().NewCheckoutSession(ctx, params)
	if err != nil {
		return "", s.wrap("create", err)
	}

	payment.ProviderID = checkoutSession.ID
	return checkoutSession.URL, nil
}

// Execute resolves the payment intent behind the payment, captures it when
// funds are only on hold, and maps its status.
func (s *StripePaymentProvider) Execute(ctx context.Context, payment *domain.Payment) (domain.Status, error) {
	intentID, status, err := s.resolvePaymentIntent(ctx, payment, "execute")
	if err != nil {
		return "", err
	}

	if intentID == "" {
		payment.Status = payment.Status.Transition(status)
		return payment.Status, nil
	}

	intent, err := s.stripe().GetPaymentIntent(ctx, intentID)
	if err != nil {
		return "", s.wrap("execute", err)
	}

	if intent.Status == stripe.PaymentIntentStatusRequiresCapture {
		_, err = s.stripe().CapturePaymentIntent(ctx, intentID)
		if err != nil {
			return "", s.wrap("execute", err)
		}

		payment.Status = domain.StatusSucceeded
		return payment.Status, nil
	}

	payment.Status = payment.Status.Transition(mapStripeStatus(string(intent.Status)))
	return payment.Status, nil
}

func (s *StripePaymentProvider) Refund(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) error {
	intentID, _, err := s.resolvePaymentIntent(ctx, payment, "refund")
	if err != nil {
		return err
	}

	if intentID == "" {
		return domain.NewGatewayError(domain.ProviderStripe, "refund", "payment intent not found", nil)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Metadata:      map[string]string{metadataPaymentID: payment.ID},
	}

	if amount != nil {
		params.Amount = stripe.Int64(toMinorUnits(*amount, payment.CurrencyCode))
	}

	result, err := s.stripe().NewRefund(ctx, params)
	if err != nil {
		return s.wrap("refund", err)
	}

	if result.Status == stripe.RefundStatusFailed || result.Status == stripe.RefundStatusCanceled {
		return domain.NewGatewayError(
			domain.ProviderStripe,
			"refund",
			fmt.Sprintf("error during refund: status %q", result.Status),
			nil,
		)
	}

	payment.Status = refundStatus(payment, amount)
	return nil
}

// Cancel expires a checkout session that has not been paid yet, or cancels
// the payment intent behind it.
func (s *StripePaymentProvider) Cancel(ctx context.Context, payment *domain.Payment) (domain.Status, error) {
	if strings.HasPrefix(payment.ProviderID, checkoutSessionPrefix) {
		checkoutSession, err := s.stripe().GetCheckoutSession(ctx, payment.ProviderID)
		if err != nil {
			return "", s.wrap("cancel", err)
		}

		if checkoutSession.PaymentIntent == nil || checkoutSession.PaymentIntent.ID == "" {
			if checkoutSession.Status == stripe.CheckoutSessionStatusOpen {
				_, err = s.stripe().ExpireCheckoutSession(ctx, checkoutSession.ID)
				if err != nil {
					return "", s.wrap("cancel", err)
				}
			}

			payment.Status = domain.StatusCancelled
			return payment.Status, nil
		}

		payment.ProviderID = checkoutSession.PaymentIntent.ID
	}

	_, err := s.stripe().CancelPaymentIntent(ctx, payment.ProviderID)
	if err != nil {
		return "", s.wrap("cancel", err)
	}

	payment.Status = domain.StatusCancelled
	return payment.Status, nil
}

// StatusFromWebhook verifies the delivery signature and trusts the object
// embedded in the verified event. The API is only called to resolve a
// checkout session id, or an unpaid session, to its payment intent.
func (s *StripePaymentProvider) StatusFromWebhook(
	ctx context.Context,
	payment *domain.Payment,
	webhook *domain.Webhook) (domain.Status, error) {

	event, err := stripewebhook.ConstructEventWithOptions(
		webhook.Payload,
		webhook.Header.Get(stripeSignatureHeader),
		s.credentials["webhook_secret"],
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return "", domain.NewGatewayError(
			domain.ProviderStripe,
			"getStatusFromWebhook",
			err.Error(),
			fmt.Errorf("%w: %w", domain.ErrWebhookVerification, err),
		)
	}

	if event.Data == nil {
		return "", domain.NewGatewayError(domain.ProviderStripe, "getStatusFromWebhook", "event has no data", nil)
	}

	status, err := s.statusFromEvent(ctx, payment, string(event.Type), event.Data.Raw)
	if err != nil {
		var gatewayErr *domain.GatewayError
		if errors.As(err, &gatewayErr) {
			return "", err
		}

		return "", domain.NewGatewayError(domain.ProviderStripe, "getStatusFromWebhook", err.Error(), err)
	}

	return payment.Status.Transition(status), nil
}

func (s *StripePaymentProvider) statusFromEvent(
	ctx context.Context,
	payment *domain.Payment,
	eventType string,
	raw json.RawMessage) (domain.Status, error) {

	switch eventType {
	case stripeEventPaymentIntentSucceeded,
		stripeEventPaymentIntentFailed,
		stripeEventPaymentIntentProcessing,
		stripeEventPaymentIntentCanceled,
		stripeEventPaymentIntentRequiresAction,
		stripeEventPaymentIntentCapturable:

		var intent stripe.PaymentIntent
		if err := json.Unmarshal(raw, &intent); err != nil {
			return "", fmt.Errorf("malformed payment intent: %w", err)
		}

		if !s.relatesTo(payment, intent.Metadata, intent.ID) {
			return payment.Status, nil
		}

		s.stampPaymentIntent(payment, intent.ID)
		return mapStripeStatus(string(intent.Status)), nil

	case stripeEventCheckoutCompleted, stripeEventCheckoutAsyncSucceeded, stripeEventCheckoutAsyncFailed, stripeEventCheckoutExpired:
		var checkoutSession stripe.CheckoutSession
		if err := json.Unmarshal(raw, &checkoutSession); err != nil {
			return "", fmt.Errorf("malformed checkout session: %w", err)
		}

		if !s.relatesTo(payment, checkoutSession.Metadata, checkoutSession.ID, intentID(checkoutSession.PaymentIntent)) {
			return payment.Status, nil
		}

		s.stampPaymentIntent(payment, intentID(checkoutSession.PaymentIntent))
		return s.checkoutSessionStatus(ctx, payment, eventType, &checkoutSession)

	case stripeEventDisputeCreated:
		var dispute stripe.Dispute
		if err := json.Unmarshal(raw, &dispute); err != nil {
			return "", fmt.Errorf("malformed dispute: %w", err)
		}

		related, err := s.relatesToIntent(ctx, payment, dispute.Metadata, intentID(dispute.PaymentIntent))
		if err != nil || !related {
			return payment.Status, err
		}

		return domain.StatusDisputed, nil

	case stripeEventRefundCreated:
		var created stripe.Refund
		if err := json.Unmarshal(raw, &created); err != nil {
			return "", fmt.Errorf("malformed refund: %w", err)
		}

		related, err := s.relatesToIntent(ctx, payment, created.Metadata, intentID(created.PaymentIntent))
		if err != nil || !related {
			return payment.Status, err
		}

		return refundedStatus(created.Amount, toMinorUnits(payment.Amount, payment.CurrencyCode)), nil

	case stripeEventChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(raw, &charge); err != nil {
			return "", fmt.Errorf("malformed charge: %w", err)
		}

		related, err := s.relatesToIntent(ctx, payment, charge.Metadata, intentID(charge.PaymentIntent))
		if err != nil || !related {
			return payment.Status, err
		}

		return refundedStatus(charge.AmountRefunded, toMinorUnits(payment.Amount, payment.CurrencyCode)), nil

	default:
		return payment.Status, nil
	}
}

type stripeEventPeek struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string            `json:"id"`
			Metadata          map[string]string `json:"metadata"`
			ClientReferenceID string            `json:"client_reference_id"`
			PaymentIntent     json.RawMessage   `json:"payment_intent"`
		} `json:"object"`
	} `json:"data"`
}

func (s *StripePaymentProvider) WebhookReference(webhook *domain.Webhook) (*domain.WebhookReference, error) {
	var peek stripeEventPeek
	err := json.Unmarshal(webhook.Payload, &peek)
	if err != nil || peek.Type == "" {
		if err == nil {
			err = errors.New("missing event type")
		}
		return nil, domain.NewGatewayError(domain.ProviderStripe, "getStatusFromWebhook", "malformed webhook payload", err)
	}

	object := peek.Data.Object

	ref := &domain.WebhookReference{
		EventType: peek.Type,
		PaymentID: object.Metadata[metadataPaymentID],
	}

	if ref.PaymentID == "" {
		ref.PaymentID = object.ClientReferenceID
	}

	ref.ProviderIDs = compact([]string{object.ID, rawIntentID(object.PaymentIntent)})

	return ref, nil
}

// resolvePaymentIntent returns the payment intent id for the payment. A
// checkout session id is swapped for the intent behind it. When the session
// has no intent yet the returned status describes the session instead.
func (s *StripePaymentProvider) resolvePaymentIntent(
	ctx context.Context,
	payment *domain.Payment,
	op string) (string, domain.Status, error) {

	if !strings.HasPrefix(payment.ProviderID, checkoutSessionPrefix) {
		return payment.ProviderID, "", nil
	}

	checkoutSession, err := s.stripe().GetCheckoutSession(ctx, payment.ProviderID)
	if err != nil {
		return "", "", s.wrap(op, err)
	}

	id := intentID(checkoutSession.PaymentIntent)
	if id == "" {
		if checkoutSession.Status == stripe.CheckoutSessionStatusExpired {
			return "", domain.StatusCancelled, nil
		}

		return "", domain.StatusPending, nil
	}

	payment.ProviderID = id
	return id, "", nil
}

func (s *StripePaymentProvider) relatesTo(payment *domain.Payment, metadata map[string]string, ids ...string) bool {
	if metadata[metadataPaymentID] == payment.ID {
		return true
	}

	for _, id := range ids {
		if id != "" && id == payment.ProviderID {
			return true
		}
	}

	return false
}

// relatesToIntent matches objects that only reference a payment intent, such
// as disputes and refunds. A payment still keyed by its checkout session is
// resolved to the intent behind the session first.
func (s *StripePaymentProvider) relatesToIntent(
	ctx context.Context,
	payment *domain.Payment,
	metadata map[string]string,
	intentID string) (bool, error) {

	if s.relatesTo(payment, metadata, intentID) {
		return true, nil
	}

	if intentID == "" || !strings.HasPrefix(payment.ProviderID, checkoutSessionPrefix) {
		return false, nil
	}

	resolved, _, err := s.resolvePaymentIntent(ctx, payment, "getStatusFromWebhook")
	if err != nil {
		return false, err
	}

	return resolved == intentID, nil
}

// checkoutSessionStatus maps a session event. A completed session that is not
// paid yet may hold an authorization, the intent decides in that case. A
// session event never moves an authorized or captured payment back to
// pending.
func (s *StripePaymentProvider) checkoutSessionStatus(
	ctx context.Context,
	payment *domain.Payment,
	eventType string,
	checkoutSession *stripe.CheckoutSession) (domain.Status, error) {

	status := mapCheckoutSessionEvent(eventType, checkoutSession.PaymentStatus)
	if status != domain.StatusPending {
		return status, nil
	}

	if intent := checkoutSession.PaymentIntent; intent != nil && intent.ID != "" {
		if intent.Status == "" {
			fetched, err := s.stripe().GetPaymentIntent(ctx, intent.ID)
			if err != nil {
				return "", s.wrap("getStatusFromWebhook", err)
			}
			intent = fetched
		}

		status = mapStripeStatus(string(intent.Status))
	}

	if status == domain.StatusPending &&
		(payment.Status == domain.StatusAuthorized || payment.Status == domain.StatusSucceeded) {
		return payment.Status, nil
	}

	return status, nil
}

// ResolveWebhookReference reads the payment id from the metadata of the
// payment intent a delivery points at.
func (s *StripePaymentProvider) ResolveWebhookReference(ctx context.Context, ref *domain.WebhookReference) error {
	if ref.PaymentID != "" {
		return nil
	}

	for _, id := range ref.ProviderIDs {
		if !strings.HasPrefix(id, paymentIntentPrefix) {
			continue
		}

		intent, err := s.stripe().GetPaymentIntent(ctx, id)
		if err != nil {
			return s.wrap("getStatusFromWebhook", err)
		}

		ref.PaymentID = intent.Metadata[metadataPaymentID]
		return nil
	}

	return nil
}

func (s *StripePaymentProvider) stampPaymentIntent(payment *domain.Payment, intentID string) {
	if intentID != "" && strings.HasPrefix(payment.ProviderID, checkoutSessionPrefix) {
		payment.ProviderID = intentID
	}
}

func (s *StripePaymentProvider) stripe() StripeAPI {
	if s.api != nil {
		return s.api
	}

	s.once.Do(func() {
		s.client = NewStripeClient(s.credentials["secret_key"], s.options.String("api_base"), s.httpClient)
	})

	return s.client
}

func (s *StripePaymentProvider) wrap(op string, err error) error {
	return domain.NewGatewayError(domain.ProviderStripe, op, stripeErrorMessage(err), err)
}

func stripeErrorMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}

	return err.Error()
}

// captureMethod places a hold only when every requested method type can be
// captured later.
func captureMethod(methodTypes []string) string {
	if len(methodTypes) == 0 {
		return captureMethodAutomatic
	}

	for _, t := range methodTypes {
		if !manualCaptureMethods[t] {
			return captureMethodAutomatic
		}
	}

	return captureMethodManual
}

// mapStripeStatus maps a payment intent status. Unknown values are failures.
func mapStripeStatus(status string) domain.Status {
	switch status {
	case "canceled":
		return domain.StatusFailed
	case "requires_action", "requires_payment_method", "requires_confirmation", "processing":
		return domain.StatusPending
	case "succeeded":
		return domain.StatusSucceeded
	case "requires_capture":
		return domain.StatusAuthorized
	default:
		return domain.StatusFailed
	}
}

func mapCheckoutSessionEvent(eventType string, paymentStatus stripe.CheckoutSessionPaymentStatus) domain.Status {
	switch eventType {
	case stripeEventCheckoutExpired:
		return domain.StatusCancelled
	case stripeEventCheckoutAsyncFailed:
		return domain.StatusFailed
	case stripeEventCheckoutAsyncSucceeded:
		return domain.StatusSucceeded
	}

	if paymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		return domain.StatusSucceeded
	}

	return domain.StatusPending
}

func refundedStatus(refunded, total int64) domain.Status {
	if refunded >= total {
		return domain.StatusRefunded
	}

	return domain.StatusPartiallyRefunded
}

func intentID(intent *stripe.PaymentIntent) string {
	if intent == nil {
		return ""
	}

	return intent.ID
}

// rawIntentID reads an expandable payment_intent field that is either an id
// string or an expanded object.
func rawIntentID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var id string
	if json.Unmarshal(raw, &id) == nil {
		return id
	}

	var intent struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(raw, &intent) == nil {
		return intent.ID
	}

	return ""
}
