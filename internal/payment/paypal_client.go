package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/plutov/paypal/v4"
)

// PayPalAPI is the subset of the PayPal REST API the adapter needs.
// *paypal.Client satisfies it.
type PayPalAPI interface {
	CreateOrder(
		ctx context.Context,
		intent string,
		purchaseUnits []paypal.PurchaseUnitRequest,
		paymentSource *paypal.PaymentSource,
		appContext *paypal.ApplicationContext) (*paypal.Order, error)
	GetOrder(ctx context.Context, orderID string) (*paypal.Order, error)
	AuthorizeOrder(
		ctx context.Context,
		orderID string,
		req paypal.AuthorizeOrderRequest) (*paypal.AuthorizeOrderResponse, error)
	CaptureOrder(
		ctx context.Context,
		orderID string,
		req paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error)
	GetAuthorization(ctx context.Context, authID string) (*paypal.Authorization, error)
	CaptureAuthorization(
		ctx context.Context,
		authID string,
		req *paypal.PaymentCaptureRequest) (*paypal.PaymentCaptureResponse, error)
	VoidAuthorization(ctx context.Context, authID string) (*paypal.Authorization, error)
	CapturedDetail(ctx context.Context, captureID string) (*paypal.CaptureDetailsResponse, error)
	RefundCapture(
		ctx context.Context,
		captureID string,
		req paypal.RefundCaptureRequest) (*paypal.RefundResponse, error)
	VerifyWebhookSignature(
		ctx context.Context,
		httpReq *http.Request,
		webhookID string) (*paypal.VerifyWebhookResponse, error)
}

var _ PayPalAPI = (*paypal.Client)(nil)

// NewPayPalClient builds an SDK client that sends through httpClient. The SDK
// fetches and refreshes the OAuth2 access token itself.
func NewPayPalClient(httpClient *http.Client, baseUrl, clientId, clientSecret string) (*paypal.Client, error) {
	client, err := paypal.NewClient(clientId, clientSecret, strings.TrimRight(baseUrl, "/"))
	if err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	wrapped := *httpClient
	wrapped.Transport = &payPalErrorTransport{base: transport}

	client.SetHTTPClient(&wrapped)
	client.SetReturnRepresentation()

	return client, nil
}

// payPalErrorTransport rewrites failed responses into the REST error shape
// the SDK decodes into *paypal.ErrorResponse. The identity endpoint answers
// with error/error_description, and proxies sometimes answer with plain text.
// An empty 204 becomes an empty object so the SDK has something to decode.
type payPalErrorTransport struct {
	base http.RoundTripper
}

func (t *payPalErrorTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.base.RoundTrip(req)
	if err != nil {
		return res, err
	}

	if res.StatusCode == http.StatusNoContent {
		res.Body.Close()
		res.Body = io.NopCloser(strings.NewReader("{}"))
		res.ContentLength = 2
		return res, nil
	}

	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return res, nil
	}

	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, err
	}

	body = normalizePayPalError(body)

	res.Body = io.NopCloser(bytes.NewReader(body))
	res.ContentLength = int64(len(body))
	res.Header.Del("Content-Length")

	return res, nil
}

func normalizePayPalError(body []byte) []byte {
	if len(bytes.TrimSpace(body)) == 0 {
		return []byte("{}")
	}

	var identity struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}

	if json.Unmarshal(body, &identity) == nil {
		if identity.ErrorDescription == "" {
			return body
		}

		out, _ := json.Marshal(map[string]string{
			"name":    identity.Error,
			"message": identity.ErrorDescription,
		})
		return out
	}

	out, _ := json.Marshal(map[string]string{"message": strings.TrimSpace(string(body))})
	return out
}
