package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/metinatakli/payment-gateway/api"
	"github.com/metinatakli/payment-gateway/internal/domain"
	appvalidator "github.com/metinatakli/payment-gateway/internal/validator"
)

const (
	ErrInternalServer   = "The server encountered a problem and could not process your request"
	ErrNotFound         = "The requested resource not found"
	ErrMethodNotAllowed = "The method is not supported for this resource"
	ErrEditConflict     = "Unable to update the record due to an edit conflict, please try again"
	ErrUnauthorized     = "You must be authenticated to access this resource"
	ErrFailedValidation = "One or more fields are invalid"
)

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := api.ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	app.errorResponse(w, r, http.StatusInternalServerError, ErrInternalServer)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, ErrNotFound)
}

func (app *Application) notFoundResponseWithErr(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusNotFound, err.Error())
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) unauthorizedAccessResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.errorResponse(w, r, http.StatusUnauthorized, ErrUnauthorized)
}

func (app *Application) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusConflict, ErrEditConflict)
}

func (app *Application) editConflictResponseWithErr(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusConflict, err.Error())
}

func (app *Application) unprocessableEntityResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
}

func (app *Application) badGatewayResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.contextGetLogger(r).Warn("payment provider failed", "error", err)
	app.errorResponse(w, r, http.StatusBadGateway, err.Error())
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		app.badRequestResponse(w, r, err)
		return
	}

	resp := api.ValidationErrorResponse{
		Message:          ErrFailedValidation,
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
		ValidationErrors: make([]api.ValidationError, 0, len(validationErrs)),
	}

	for _, fieldErr := range validationErrs {
		resp.ValidationErrors = append(resp.ValidationErrors, api.ValidationError{
			Field: fieldErr.Field(),
			Issue: appvalidator.ValidationMessage(fieldErr),
		})
	}

	err = app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// paymentErrorResponse maps the errors of a payment operation to a response.
func (app *Application) paymentErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrEditConflict):
		app.editConflictResponse(w, r)
	case errors.Is(err, domain.ErrPaymentLocked), errors.Is(err, domain.ErrPaymentAlreadyExists):
		app.editConflictResponseWithErr(w, r, err)
	case errors.Is(err, domain.ErrInvalidOptions), errors.Is(err, errProviderNotEnabled):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, domain.ErrWebhookVerification):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, domain.ErrUnsupported):
		app.unprocessableEntityResponse(w, r, err)
	case errors.Is(err, domain.ErrGateway):
		app.badGatewayResponse(w, r, err)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
