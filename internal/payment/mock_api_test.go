package payment

import (
	"context"
	"net/http"

	"github.com/plutov/paypal/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v82"
)

type MockPayPalAPI struct {
	mock.Mock
	PayPalAPI
}

func (m *MockPayPalAPI) CreateOrder(
	ctx context.Context,
	intent string,
	purchaseUnits []paypal.PurchaseUnitRequest,
	paymentSource *paypal.PaymentSource,
	appContext *paypal.ApplicationContext) (*paypal.Order, error) {

	args := m.Called(ctx, intent, purchaseUnits, paymentSource, appContext)
	order, _ := args.Get(0).(*paypal.Order)
	return order, args.Error(1)
}

func (m *MockPayPalAPI) GetOrder(ctx context.Context, orderID string) (*paypal.Order, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*paypal.Order)
	return order, args.Error(1)
}

func (m *MockPayPalAPI) AuthorizeOrder(
	ctx context.Context,
	orderID string,
	req paypal.AuthorizeOrderRequest) (*paypal.AuthorizeOrderResponse, error) {

	args := m.Called(ctx, orderID, req)
	order, _ := args.Get(0).(*paypal.AuthorizeOrderResponse)
	return order, args.Error(1)
}

func (m *MockPayPalAPI) CaptureOrder(
	ctx context.Context,
	orderID string,
	req paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error) {

	args := m.Called(ctx, orderID, req)
	order, _ := args.Get(0).(*paypal.CaptureOrderResponse)
	return order, args.Error(1)
}

func (m *MockPayPalAPI) GetAuthorization(ctx context.Context, authID string) (*paypal.Authorization, error) {
	args := m.Called(ctx, authID)
	authorization, _ := args.Get(0).(*paypal.Authorization)
	return authorization, args.Error(1)
}

func (m *MockPayPalAPI) CaptureAuthorization(
	ctx context.Context,
	authID string,
	req *paypal.PaymentCaptureRequest) (*paypal.PaymentCaptureResponse, error) {

	args := m.Called(ctx, authID, req)
	capture, _ := args.Get(0).(*paypal.PaymentCaptureResponse)
	return capture, args.Error(1)
}

func (m *MockPayPalAPI) VoidAuthorization(ctx context.Context, authID string) (*paypal.Authorization, error) {
	args := m.Called(ctx, authID)
	authorization, _ := args.Get(0).(*paypal.Authorization)
	return authorization, args.Error(1)
}

func (m *MockPayPalAPI) CapturedDetail(ctx context.Context, captureID string) (*paypal.CaptureDetailsResponse, error) {
	args := m.Called(ctx, captureID)
	capture, _ := args.Get(0).(*paypal.CaptureDetailsResponse)
	return capture, args.Error(1)
}

func (m *MockPayPalAPI) RefundCapture(
	ctx context.Context,
	captureID string,
	req paypal.RefundCaptureRequest) (*paypal.RefundResponse, error) {

	args := m.Called(ctx, captureID, req)
	refund, _ := args.Get(0).(*paypal.RefundResponse)
	return refund, args.Error(1)
}

func (m *MockPayPalAPI) VerifyWebhookSignature(
	ctx context.Context,
	httpReq *http.Request,
	webhookID string) (*paypal.VerifyWebhookResponse, error) {

	args := m.Called(ctx, httpReq, webhookID)
	resp, _ := args.Get(0).(*paypal.VerifyWebhookResponse)
	return resp, args.Error(1)
}

type MockStripeAPI struct {
	mock.Mock
	StripeAPI
}

func (m *MockStripeAPI) NewCheckoutSession(
	ctx context.Context,
	params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {

	args := m.Called(ctx, params)
	checkoutSession, _ := args.Get(0).(*stripe.CheckoutSession)
	return checkoutSession, args.Error(1)
}

func (m *MockStripeAPI) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	args := m.Called(ctx, id)
	checkoutSession, _ := args.Get(0).(*stripe.CheckoutSession)
	return checkoutSession, args.Error(1)
}

func (m *MockStripeAPI) ExpireCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	args := m.Called(ctx, id)
	checkoutSession, _ := args.Get(0).(*stripe.CheckoutSession)
	return checkoutSession, args.Error(1)
}

func (m *MockStripeAPI) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, id)
	intent, _ := args.Get(0).(*stripe.PaymentIntent)
	return intent, args.Error(1)
}

func (m *MockStripeAPI) CapturePaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, id)
	intent, _ := args.Get(0).(*stripe.PaymentIntent)
	return intent, args.Error(1)
}

func (m *MockStripeAPI) CancelPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, id)
	intent, _ := args.Get(0).(*stripe.PaymentIntent)
	return intent, args.Error(1)
}

func (m *MockStripeAPI) NewRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	args := m.Called(ctx, params)
	refund, _ := args.Get(0).(*stripe.Refund)
	return refund, args.Error(1)
}
