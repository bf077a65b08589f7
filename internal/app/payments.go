package app

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/metinatakli/payment-gateway/api"
	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/metinatakli/payment-gateway/internal/gateway"
	"github.com/shopspring/decimal"
)

func (app *Application) CreatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	var input api.CreatePaymentRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	provider, err := domain.ParseProvider(input.Provider)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	gw, err := app.gatewayFor(provider)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	id := input.Id
	if id == "" {
		id = uuid.NewString()
	}

	payment := domain.NewPayment(id, input.Amount)
	payment.Provider = provider
	payment.Description = input.Description

	if input.CurrencyCode != "" {
		payment.CurrencyCode = input.CurrencyCode
	}

	for k, v := range input.Metadata {
		payment.Metadata[k] = v
	}

	if input.Customer != nil {
		payment.Customer = domain.Customer{
			Name:  input.Customer.Name,
			Email: input.Customer.Email,
		}
	}

	unlock, err := app.locker.Lock(r.Context(), payment.ID)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}
	defer app.releaseLock(r, unlock)

	err = app.paymentRepo.Create(r.Context(), payment)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	redirectUrl, err := gw.Create(r.Context(), payment)
	if err != nil {
		logger.Warn("failed to create payment at provider", "payment_id", payment.ID, "error", err)
		app.paymentErrorResponse(w, r, err)
		return
	}

	err = app.paymentRepo.Update(r.Context(), payment)
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	logger.Info("payment created", "payment_id", payment.ID, "provider", provider.String(), "provider_id", payment.ProviderID)

	resp := api.CreatePaymentResponse{
		Payment:     toPaymentResponse(payment),
		RedirectUrl: redirectUrl,
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	payment, err := app.paymentRepo.GetById(r.Context(), chi.URLParam(r, "paymentId"))
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toPaymentResponse(payment), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	var params api.ListPaymentsParams
	var err error

	params.Page, err = readQueryInt(qs, "page")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	params.PageSize, err = readQueryInt(qs, "page_size")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	params.Sort = readQueryString(qs, "sort")
	params.Provider = readQueryString(qs, "provider")
	params.Status = readQueryString(qs, "status")

	err = app.validator.Struct(params)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	payments, metadata, err := app.paymentRepo.GetAll(r.Context(), toPaymentFilters(params))
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.PaymentListResponse{
		Payments: make([]api.PaymentResponse, 0, len(payments)),
		Metadata: toApiMetadata(metadata),
	}

	for _, payment := range payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(payment))
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toPaymentFilters(params api.ListPaymentsParams) domain.PaymentFilters {
	filters := domain.PaymentFilters{Pagination: domain.NewPagination()}

	if params.Page != nil {
		filters.Page = *params.Page
	}
	if params.PageSize != nil {
		filters.PageSize = *params.PageSize
	}
	if params.Sort != nil {
		filters.Sort = *params.Sort
	}
	if params.Provider != nil {
		filters.Provider = domain.Provider(*params.Provider)
	}
	if params.Status != nil {
		filters.Status = domain.Status(*params.Status)
	}

	filters.Pagination = filters.Pagination.Normalize()

	return filters
}

func toApiMetadata(metadata *domain.PageMetadata) api.PageMetadata {
	if metadata == nil {
		return api.PageMetadata{}
	}

	return api.PageMetadata{
		CurrentPage:  metadata.CurrentPage,
		FirstPage:    metadata.FirstPage,
		LastPage:     metadata.LastPage,
		PageSize:     metadata.PageSize,
		TotalRecords: metadata.TotalRecords,
	}
}

func (app *Application) ExecutePaymentHandler(w http.ResponseWriter, r *http.Request) {
	payment, err := app.updatePayment(r, chi.URLParam(r, "paymentId"), nil,
		func(ctx context.Context, gw *gateway.Gateway, payment *domain.Payment) error {
			_, err := gw.Execute(ctx, payment)
			return err
		})
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toPaymentResponse(payment), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) RefundPaymentHandler(w http.ResponseWriter, r *http.Request) {
	var input api.RefundRequest

	err := app.readOptionalJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	payment, err := app.updatePayment(r, chi.URLParam(r, "paymentId"), input.Amount,
		func(ctx context.Context, gw *gateway.Gateway, payment *domain.Payment) error {
			return gw.Refund(ctx, payment, input.Amount)
		})
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toPaymentResponse(payment), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelPaymentHandler(w http.ResponseWriter, r *http.Request) {
	payment, err := app.updatePayment(r, chi.URLParam(r, "paymentId"), nil,
		func(ctx context.Context, gw *gateway.Gateway, payment *domain.Payment) error {
			_, err := gw.Cancel(ctx, payment)
			return err
		})
	if err != nil {
		app.paymentErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toPaymentResponse(payment), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

type paymentOperation func(ctx context.Context, gw *gateway.Gateway, payment *domain.Payment) error

// updatePayment runs op against the stored payment while holding its lock,
// persists the outcome and announces a status change. refunded is passed on
// to the announcement.
func (app *Application) updatePayment(
	r *http.Request,
	id string,
	refunded *decimal.Decimal,
	op paymentOperation) (*domain.Payment, error) {

	ctx := r.Context()

	unlock, err := app.locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer app.releaseLock(r, unlock)

	payment, err := app.paymentRepo.GetById(ctx, id)
	if err != nil {
		return nil, err
	}

	gw, err := app.gatewayFor(payment.Provider)
	if err != nil {
		return nil, err
	}

	previousStatus := payment.Status
	previousProviderID := payment.ProviderID

	err = op(ctx, gw, payment)
	if err != nil {
		return nil, err
	}

	if payment.Status == previousStatus && payment.ProviderID == previousProviderID {
		return payment, nil
	}

	err = app.paymentRepo.Update(ctx, payment)
	if err != nil {
		return nil, err
	}

	if payment.Status != previousStatus {
		app.statusChanged(r, payment, previousStatus, refunded)
	}

	return payment, nil
}

func (app *Application) releaseLock(r *http.Request, unlock domain.UnlockFunc) {
	err := unlock(context.WithoutCancel(r.Context()))
	if err != nil {
		app.contextGetLogger(r).Error("failed to release payment lock", "error", err)
	}
}
