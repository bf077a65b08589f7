package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/metinatakli/payment-gateway/api"
	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/metinatakli/payment-gateway/internal/gateway"
)

const maxRequestBytes = 1_048_576

var errEmptyBody = errors.New("body must not be empty")

type contextKey string

const loggerContextKey = contextKey("logger")

func (app *Application) contextSetLogger(r *http.Request, logger *slog.Logger) *http.Request {
	ctx := context.WithValue(r.Context(), loggerContextKey, logger)
	return r.WithContext(ctx)
}

func (app *Application) contextGetLogger(r *http.Request) *slog.Logger {
	logger, ok := r.Context().Value(loggerContextKey).(*slog.Logger)
	if !ok {
		return app.logger
	}

	return logger
}

func (app *Application) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}

	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)

	return nil
}

func (app *Application) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errEmptyBody
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytesError.Limit)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// readOptionalJSON is readJSON for endpoints whose body may be left out.
func (app *Application) readOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.ContentLength == 0 {
		return nil
	}

	err := app.readJSON(w, r, dst)
	if errors.Is(err, errEmptyBody) {
		return nil
	}

	return err
}

// readQueryInt returns nil when key is not in the query string.
func readQueryInt(qs url.Values, key string) (*int, error) {
	s := qs.Get(key)
	if s == "" {
		return nil, nil
	}

	i, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("query parameter %q must be an integer", key)
	}

	return &i, nil
}

func readQueryString(qs url.Values, key string) *string {
	s := qs.Get(key)
	if s == "" {
		return nil
	}

	return &s
}

var errProviderNotEnabled = errors.New("payment provider is not enabled")

func (app *Application) gatewayFor(provider domain.Provider) (*gateway.Gateway, error) {
	gw, ok := app.gateways[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errProviderNotEnabled, provider)
	}

	return gw, nil
}

func (app *Application) providerNames() []string {
	names := make([]string, 0, len(app.gateways))
	for provider := range app.gateways {
		names = append(names, provider.String())
	}

	slices.Sort(names)

	return names
}

func toPaymentResponse(payment *domain.Payment) api.PaymentResponse {
	resp := api.PaymentResponse{
		Id:           payment.ID,
		Provider:     payment.Provider.String(),
		ProviderId:   payment.ProviderID,
		Amount:       payment.Amount.StringFixed(2),
		CurrencyCode: payment.CurrencyCode,
		Description:  payment.Description,
		Metadata:     payment.Metadata,
		Status:       payment.Status.String(),
		Version:      payment.Version,
		CreatedAt:    payment.CreatedAt,
		UpdatedAt:    payment.UpdatedAt,
	}

	if resp.Metadata == nil {
		resp.Metadata = map[string]string{}
	}

	if payment.Customer != (domain.Customer{}) {
		resp.Customer = &api.Customer{
			Name:  payment.Customer.Name,
			Email: payment.Customer.Email,
		}
	}

	return resp
}
