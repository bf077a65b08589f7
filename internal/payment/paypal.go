package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
)

const (
	payPalIntentAuthorize = "AUTHORIZE"
	payPalIntentCapture   = "CAPTURE"

	payPalEventAuthorizationCreated = "PAYMENT.AUTHORIZATION.CREATED"
	payPalEventAuthorizationVoided  = "PAYMENT.AUTHORIZATION.VOIDED"
	payPalEventCaptureCompleted     = "PAYMENT.CAPTURE.COMPLETED"
	payPalEventCaptureDenied        = "PAYMENT.CAPTURE.DENIED"
	payPalEventCaptureRefunded      = "PAYMENT.CAPTURE.REFUNDED"
	payPalEventCaptureReversed      = "PAYMENT.CAPTURE.REVERSED"
	payPalEventDisputeCreated       = "CUSTOMER.DISPUTE.CREATED"
)

// payPalWebhookEvents is the allow-list of event types that can change the
// status of a payment. Everything else passes through untouched.
var payPalWebhookEvents = map[string]bool{
	payPalEventAuthorizationCreated: true,
	payPalEventAuthorizationVoided:  true,
	payPalEventCaptureCompleted:     true,
	payPalEventCaptureDenied:        true,
	payPalEventCaptureRefunded:      true,
	payPalEventCaptureReversed:      true,
	payPalEventDisputeCreated:       true,
}

// PayPalPaymentProvider talks to the PayPal Orders v2 API using the
// authorize/capture flow, or a single capture when the intent option is
// CAPTURE.
type PayPalPaymentProvider struct {
	settings
	httpClient *http.Client
	api        PayPalAPI

	mu         sync.Mutex
	client     *paypal.Client
	clientBase string
}

type payPalCapture struct {
	ID     string
	Status string
}

func NewPayPalPaymentProvider(
	credentials domain.Credentials,
	options domain.Options,
	httpClient *http.Client,
	logger *slog.Logger) *PayPalPaymentProvider {

	return &PayPalPaymentProvider{
		settings:   newSettings(credentials, options, logger),
		httpClient: httpClient,
	}
}

// WithAPI replaces the REST client, the sandbox flag is ignored afterwards.
func (p *PayPalPaymentProvider) WithAPI(api PayPalAPI) *PayPalPaymentProvider {
	p.api = api
	return p
}

func (p *PayPalPaymentProvider) Provider() domain.Provider {
	return domain.ProviderPayPal
}

func (p *PayPalPaymentProvider) Create(ctx context.Context, payment *domain.Payment) (string, error) {
	api, err := p.payPal()
	if err != nil {
		return "", p.wrap("create", err)
	}

	value := formatAmount(payment.Amount, payment.CurrencyCode)

	units := []paypal.PurchaseUnitRequest{
		{
			ReferenceID: payment.ID,
			CustomID:    payment.ID,
			Description: payment.Description,
			Amount: &paypal.PurchaseUnitAmount{
				Currency: payment.CurrencyCode,
				Value:    value,
				Breakdown: &paypal.PurchaseUnitAmountBreakdown{
					ItemTotal: &paypal.Money{Currency: payment.CurrencyCode, Value: value},
				},
			},
		},
	}

	order, err := api.CreateOrder(ctx, p.intent(), units, nil, p.applicationContext())
	if err != nil {
		return "", p.wrap("create", err)
	}

	for _, link := range order.Links {
		if link.Rel == "approve" {
			payment.ProviderID = order.ID
			return link.Href, nil
		}
	}

	return "", domain.NewGatewayError(domain.ProviderPayPal, "create", "no approve link found", nil)
}

// Execute finalizes an approved order. With the authorize intent this is two
// calls, authorize the order and capture the authorization. The payment is
// stamped with the capture id afterwards.
func (p *PayPalPaymentProvider) Execute(ctx context.Context, payment *domain.Payment) (domain.Status, error) {
	api, err := p.payPal()
	if err != nil {
		return "", p.wrap("execute", err)
	}

	var capture *payPalCapture

	if p.intent() == payPalIntentCapture {
		capture, err = p.captureOrder(ctx, api, payment.ProviderID)
	} else {
		capture, err = p.authorizeAndCapture(ctx, api, payment.ProviderID)
	}

	if err != nil {
		return "", err
	}

	payment.ProviderID = capture.ID
	payment.Status = payment.Status.Transition(mapPayPalStatus(capture.Status))

	p.logger.Debug("paypal capture finished",
		"payment_id", payment.ID,
		"capture_id", capture.ID,
		"capture_status", capture.Status)

	return payment.Status, nil
}

func (p *PayPalPaymentProvider) authorizeAndCapture(ctx context.Context, api PayPalAPI, orderID string) (*payPalCapture, error) {
	order, err := api.AuthorizeOrder(ctx, orderID, paypal.AuthorizeOrderRequest{})
	if err != nil {
		return nil, p.wrap("execute", err)
	}

	authorization := firstAuthorization(order.PurchaseUnits)
	if authorization == nil || authorization.ID == "" {
		return nil, domain.NewGatewayError(domain.ProviderPayPal, "execute", "authorization response has no authorization id", nil)
	}

	capture, err := api.CaptureAuthorization(ctx, authorization.ID, &paypal.PaymentCaptureRequest{FinalCapture: true})
	if err != nil {
		return nil, p.wrap("execute", err)
	}

	if capture.ID == "" {
		return nil, domain.NewGatewayError(domain.ProviderPayPal, "execute", "capture response has no capture id", nil)
	}

	return &payPalCapture{ID: capture.ID, Status: capture.Status}, nil
}

func (p *PayPalPaymentProvider) captureOrder(ctx context.Context, api PayPalAPI, orderID string) (*payPalCapture, error) {
	order, err := api.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, p.wrap("execute", err)
	}

	for _, unit := range order.PurchaseUnits {
		if unit.Payments != nil && len(unit.Payments.Captures) > 0 && unit.Payments.Captures[0].ID != "" {
			capture := unit.Payments.Captures[0]
			return &payPalCapture{ID: capture.ID, Status: capture.Status}, nil
		}
	}

	return nil, domain.NewGatewayError(domain.ProviderPayPal, "execute", "capture response has no capture id", nil)
}

// Refund refunds the capture the payment is stamped with. Only a refund that
// PayPal reports as COMPLETED counts as success.
func (p *PayPalPaymentProvider) Refund(ctx context.Context, payment *domain.Payment, amount *decimal.Decimal) error {
	api, err := p.payPal()
	if err != nil {
		return p.wrap("refund", err)
	}

	req := paypal.RefundCaptureRequest{
		Amount: &paypal.Money{
			Currency: payment.CurrencyCode,
			Value:    formatAmount(refundAmount(payment, amount), payment.CurrencyCode),
		},
	}

	refund, err := api.RefundCapture(ctx, payment.ProviderID, req)
	if err != nil {
		return p.wrap("refund", err)
	}

	if refund.Status != "COMPLETED" {
		return domain.NewGatewayError(
			domain.ProviderPayPal,
			"refund",
			fmt.Sprintf("error during refund: status %q", refund.Status),
			nil,
		)
	}

	payment.Status = refundStatus(payment, amount)
	return nil
}

// Cancel abandons an order that was never approved, or voids the
// authorization of an authorized one. Captured money has to be refunded.
func (p *PayPalPaymentProvider) Cancel(ctx context.Context, payment *domain.Payment) (domain.Status, error) {
	switch payment.Status {
	case domain.StatusOpen:
		// unapproved orders expire on their own
		payment.Status = domain.StatusCancelled
		return payment.Status, nil
	case domain.StatusAuthorized:
	default:
		return "", domain.NewGatewayError(
			domain.ProviderPayPal,
			"cancel",
			fmt.Sprintf("a payment in status %s cannot be cancelled", payment.Status),
			domain.ErrUnsupported,
		)
	}

	api, err := p.payPal()
	if err != nil {
		return "", p.wrap("cancel", err)
	}

	order, err := api.GetOrder(ctx, payment.ProviderID)
	if err != nil {
		return "", p.wrap("cancel", err)
	}

	authorization := firstAuthorization(order.PurchaseUnits)
	if authorization == nil || authorization.ID == "" {
		return "", domain.NewGatewayError(domain.ProviderPayPal, "cancel", "order has no authorization to void", nil)
	}

	_, err = api.VoidAuthorization(ctx, authorization.ID)
	if err != nil {
		return "", p.wrap("cancel", err)
	}

	payment.Status = domain.StatusCancelled
	return payment.Status, nil
}

type payPalWebhookEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	Resource     json.RawMessage `json:"resource"`
}

type payPalEventResource struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CustomID          string `json:"custom_id"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID         string `json:"order_id"`
			AuthorizationID string `json:"authorization_id"`
			CaptureID       string `json:"capture_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
	DisputedTransactions []struct {
		SellerTransactionID string `json:"seller_transaction_id"`
		Custom              string `json:"custom"`
	} `json:"disputed_transactions"`
}

func (r *payPalEventResource) ids() []string {
	ids := []string{
		r.ID,
		r.SupplementaryData.RelatedIDs.OrderID,
		r.SupplementaryData.RelatedIDs.AuthorizationID,
		r.SupplementaryData.RelatedIDs.CaptureID,
	}

	for _, tx := range r.DisputedTransactions {
		ids = append(ids, tx.SellerTransactionID)
	}

	return compact(ids)
}

func (r *payPalEventResource) paymentID() string {
	if r.CustomID != "" {
		return r.CustomID
	}

	for _, tx := range r.DisputedTransactions {
		if tx.Custom != "" {
			return tx.Custom
		}
	}

	return ""
}

// captureID picks the capture to re-read. Refund and reversal events carry a
// refund as their resource, the capture is among the related ids.
func (r *payPalEventResource) captureID(eventType string, payment *domain.Payment) string {
	if eventType == payPalEventCaptureRefunded || eventType == payPalEventCaptureReversed {
		if id := r.SupplementaryData.RelatedIDs.CaptureID; id != "" {
			return id
		}

		return payment.ProviderID
	}

	if r.ID != "" {
		return r.ID
	}

	return payment.ProviderID
}

// isCapture reports whether the resource of eventType is the capture itself
// rather than a refund of it.
func (r *payPalEventResource) isCapture(eventType string) bool {
	return eventType != payPalEventCaptureRefunded && eventType != payPalEventCaptureReversed
}

func (r *payPalEventResource) relatesTo(payment *domain.Payment) bool {
	if r.paymentID() == payment.ID {
		return true
	}

	for _, id := range r.ids() {
		if id == payment.ProviderID {
			return true
		}
	}

	return false
}

// StatusFromWebhook never trusts the status embedded in the delivery. For
// relevant events it re-reads the authorization or capture from PayPal. A
// capture event for a payment still keyed by its order id moves the payment
// onto the capture, which is what refunds operate on.
func (p *PayPalPaymentProvider) StatusFromWebhook(
	ctx context.Context,
	payment *domain.Payment,
	webhook *domain.Webhook) (domain.Status, error) {

	event, resource, err := parsePayPalEvent(webhook.Payload)
	if err != nil {
		return "", domain.NewGatewayError(domain.ProviderPayPal, "getStatusFromWebhook", err.Error(), err)
	}

	if !payPalWebhookEvents[event.EventType] {
		return payment.Status, nil
	}

	err = p.verifyWebhook(ctx, webhook)
	if err != nil {
		return "", err
	}

	if !resource.relatesTo(payment) {
		p.logger.Warn("paypal webhook does not belong to payment",
			"payment_id", payment.ID,
			"event_id", event.ID,
			"event_type", event.EventType)

		return payment.Status, nil
	}

	if event.EventType == payPalEventDisputeCreated {
		return payment.Status.Transition(domain.StatusDisputed), nil
	}

	api, err := p.payPal()
	if err != nil {
		return "", p.wrap("getStatusFromWebhook", err)
	}

	var status domain.Status

	switch event.EventType {
	case payPalEventAuthorizationCreated, payPalEventAuthorizationVoided:
		authorization, err := api.GetAuthorization(ctx, resource.ID)
		if err != nil {
			return "", p.wrap("getStatusFromWebhook", err)
		}
		status = mapPayPalAuthorizationStatus(authorization.Status)
	default:
		capture, err := api.CapturedDetail(ctx, resource.captureID(event.EventType, payment))
		if err != nil {
			return "", p.wrap("getStatusFromWebhook", err)
		}
		status = mapPayPalStatus(capture.Status)

		if capture.ID != "" && capture.ID != payment.ProviderID && resource.isCapture(event.EventType) {
			p.logger.Debug("paypal payment moved to capture",
				"payment_id", payment.ID,
				"order_id", payment.ProviderID,
				"capture_id", capture.ID)

			payment.ProviderID = capture.ID
		}
	}

	return payment.Status.Transition(status), nil
}

func (p *PayPalPaymentProvider) WebhookReference(webhook *domain.Webhook) (*domain.WebhookReference, error) {
	event, resource, err := parsePayPalEvent(webhook.Payload)
	if err != nil {
		return nil, domain.NewGatewayError(domain.ProviderPayPal, "getStatusFromWebhook", err.Error(), err)
	}

	return &domain.WebhookReference{
		EventType:   event.EventType,
		PaymentID:   resource.paymentID(),
		ProviderIDs: resource.ids(),
	}, nil
}

// verifyWebhook asks PayPal to check the transmission signature. Without a
// configured webhook_id there is nothing to verify against.
func (p *PayPalPaymentProvider) verifyWebhook(ctx context.Context, webhook *domain.Webhook) error {
	webhookID := p.credentials["webhook_id"]
	if webhookID == "" {
		return nil
	}

	api, err := p.payPal()
	if err != nil {
		return p.wrap("getStatusFromWebhook", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", bytes.NewReader(webhook.Payload))
	if err != nil {
		return p.wrap("getStatusFromWebhook", err)
	}
	req.Header = webhook.Header.Clone()

	resp, err := api.VerifyWebhookSignature(ctx, req, webhookID)
	if err != nil {
		return p.wrap("getStatusFromWebhook", err)
	}

	if resp.VerificationStatus != "SUCCESS" {
		return domain.NewGatewayError(
			domain.ProviderPayPal,
			"getStatusFromWebhook",
			fmt.Sprintf("webhook signature verification failed: %s", resp.VerificationStatus),
			domain.ErrWebhookVerification,
		)
	}

	return nil
}

func (p *PayPalPaymentProvider) intent() string {
	if strings.EqualFold(p.options.String("intent"), payPalIntentCapture) {
		return payPalIntentCapture
	}

	return payPalIntentAuthorize
}

// applicationContext fills the checkout page defaults. The
// application_context option overrides single keys.
func (p *PayPalPaymentProvider) applicationContext() *paypal.ApplicationContext {
	appCtx := &paypal.ApplicationContext{
		LandingPage:        "BILLING",
		ShippingPreference: paypal.ShippingPreferenceNoShipping,
		UserAction:         paypal.UserActionPayNow,
		ReturnURL:          p.successUrl,
		CancelURL:          p.cancelUrl,
	}

	for k, raw := range p.options.StringMap("application_context") {
		v, ok := raw.(string)
		if !ok {
			continue
		}

		switch k {
		case "brand_name":
			appCtx.BrandName = v
		case "locale":
			appCtx.Locale = v
		case "landing_page":
			appCtx.LandingPage = v
		case "shipping_preference":
			appCtx.ShippingPreference = paypal.ShippingPreference(v)
		case "user_action":
			appCtx.UserAction = paypal.UserAction(v)
		}
	}

	return appCtx
}

func (p *PayPalPaymentProvider) payPal() (PayPalAPI, error) {
	if p.api != nil {
		return p.api, nil
	}

	baseUrl := p.options.String("api_base")
	if baseUrl == "" {
		baseUrl = paypal.APIBaseLive
		if p.sandbox {
			baseUrl = paypal.APIBaseSandBox
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil || p.clientBase != baseUrl {
		client, err := NewPayPalClient(p.httpClient, baseUrl, p.credentials["client_id"], p.credentials["client_secret"])
		if err != nil {
			return nil, err
		}

		p.client = client
		p.clientBase = baseUrl
	}

	return p.client, nil
}

func (p *PayPalPaymentProvider) wrap(op string, err error) error {
	return domain.NewGatewayError(domain.ProviderPayPal, op, payPalErrorMessage(err), err)
}

// payPalErrorMessage prefers the first detail issue, then the message.
func payPalErrorMessage(err error) string {
	var apiErr *paypal.ErrorResponse
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	switch {
	case len(apiErr.Details) > 0 && apiErr.Details[0].Issue != "":
		return apiErr.Details[0].Issue
	case apiErr.Message != "":
		return apiErr.Message
	case apiErr.Name != "":
		return apiErr.Name
	case apiErr.Response != nil:
		return fmt.Sprintf("paypal responded with status %d", apiErr.Response.StatusCode)
	default:
		return "paypal request failed"
	}
}

func parsePayPalEvent(payload []byte) (*payPalWebhookEvent, *payPalEventResource, error) {
	var event payPalWebhookEvent
	err := json.Unmarshal(payload, &event)
	if err != nil {
		return nil, nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	if event.EventType == "" {
		return nil, nil, errors.New("malformed webhook payload: missing event_type")
	}

	var resource payPalEventResource
	if len(event.Resource) > 0 {
		err = json.Unmarshal(event.Resource, &resource)
		if err != nil {
			return nil, nil, fmt.Errorf("malformed webhook resource: %w", err)
		}
	}

	return &event, &resource, nil
}

func firstAuthorization(units []paypal.PurchaseUnit) *paypal.Authorization {
	for _, unit := range units {
		if unit.Payments != nil && len(unit.Payments.Autthorizations) > 0 {
			return &unit.Payments.Autthorizations[0]
		}
	}

	return nil
}

// mapPayPalStatus maps a capture status. Unknown values are treated as still
// in flight.
func mapPayPalStatus(status string) domain.Status {
	switch status {
	case "COMPLETED":
		return domain.StatusSucceeded
	case "PENDING":
		return domain.StatusPending
	case "REFUNDED":
		return domain.StatusRefunded
	case "PARTIALLY_REFUNDED":
		return domain.StatusPartiallyRefunded
	case "DECLINED", "FAILED", "VOIDED":
		return domain.StatusFailed
	case "AUTHORIZED":
		return domain.StatusAuthorized
	default:
		return domain.StatusPending
	}
}

func mapPayPalAuthorizationStatus(status string) domain.Status {
	switch status {
	case "CREATED":
		return domain.StatusAuthorized
	case "CAPTURED", "PARTIALLY_CAPTURED":
		return domain.StatusSucceeded
	case "VOIDED":
		return domain.StatusCancelled
	case "DENIED", "EXPIRED":
		return domain.StatusFailed
	default:
		return domain.StatusPending
	}
}

func compact(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}

	return out
}
