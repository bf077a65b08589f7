package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/metinatakli/payment-gateway/api"
	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/metinatakli/payment-gateway/internal/gateway"
	"github.com/metinatakli/payment-gateway/internal/mailer"
	"github.com/metinatakli/payment-gateway/internal/mocks"
	"github.com/metinatakli/payment-gateway/internal/validator"
	"github.com/shopspring/decimal"
)

const (
	testSuccessURL = "https://shop.test/success"
	testCancelURL  = "https://shop.test/cancel"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestApplication(opts ...func(*Application)) *Application {
	app := &Application{
		config:      Config{Env: "test"},
		validator:   validator.NewValidator(),
		logger:      discardLogger,
		mailer:      mailer.NewMockMailer(),
		paymentRepo: &mocks.MockPaymentRepo{},
		locker:      &mocks.MockPaymentLocker{},
		publisher:   &mocks.MockEventPublisher{},
		gateways:    map[domain.Provider]*gateway.Gateway{},
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// newTestGateway wraps a mock adapter the way NewGateways wraps real ones.
func newTestGateway(provider *mocks.MockPaymentProvider) *gateway.Gateway {
	gw := gateway.NewWithProvider(provider, discardLogger)
	gw.SetSuccessURL(testSuccessURL)
	gw.SetCancelURL(testCancelURL)

	return gw
}

func newTestPayment(provider domain.Provider, status domain.Status) *domain.Payment {
	payment := domain.NewPayment("pay-1", decimal.RequireFromString("25.00"))
	payment.Provider = provider
	payment.ProviderID = "prov-1"
	payment.Description = "Order #1"
	payment.Status = status
	payment.Version = 1
	payment.Customer = domain.Customer{Name: "Jane", Email: "jane@example.com"}

	return payment
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	var reader io.Reader

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

// withURLParams attaches chi route parameters to a request that does not go
// through the router.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}

	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	switch tt.wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp api.ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		if len(validationResp.ValidationErrors) == 0 {
			if tt.wantErrMessage != "" && validationResp.Message != tt.wantErrMessage {
				t.Errorf("Error message = %v, want %v", validationResp.Message, tt.wantErrMessage)
			}
			return
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", tt.wantErrMessage)
		}

	default:
		var errorResp api.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if tt.wantErrMessage != "" && errorResp.Message != tt.wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, tt.wantErrMessage)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
