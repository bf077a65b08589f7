// Package api holds the request and response bodies of the payment service.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
	Providers  []string   `json:"providers"`
}

type Customer struct {
	Name  string `json:"name" validate:"max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

type CreatePaymentRequest struct {
	Id           string            `json:"id" validate:"omitempty,max=64,payment_id"`
	Provider     string            `json:"provider" validate:"required,oneof=offline paypal stripe"`
	Amount       decimal.Decimal   `json:"amount" validate:"required,amount"`
	CurrencyCode string            `json:"currencyCode" validate:"omitempty,iso4217"`
	Description  string            `json:"description" validate:"required,max=255"`
	Metadata     map[string]string `json:"metadata" validate:"omitempty,max=20,dive,keys,min=1,max=40,endkeys,max=500"`
	Customer     *Customer         `json:"customer"`
}

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"omitempty,amount"`
}

type PaymentResponse struct {
	Id           string            `json:"id"`
	Provider     string            `json:"provider"`
	ProviderId   string            `json:"providerId,omitempty"`
	Amount       string            `json:"amount"`
	CurrencyCode string            `json:"currencyCode"`
	Description  string            `json:"description"`
	Metadata     map[string]string `json:"metadata"`
	Status       string            `json:"status"`
	Customer     *Customer         `json:"customer,omitempty"`
	Version      int               `json:"version"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type CreatePaymentResponse struct {
	Payment     PaymentResponse `json:"payment"`
	RedirectUrl string          `json:"redirectUrl"`
}

type WebhookResponse struct {
	Status  string `json:"status,omitempty"`
	Ignored bool   `json:"ignored,omitempty"`
}

type ListPaymentsParams struct {
	Page     *int    `json:"page" validate:"omitempty,min=1,max=10000"`
	PageSize *int    `json:"page_size" validate:"omitempty,min=1,max=100"`
	Sort     *string `json:"sort" validate:"omitempty,oneof=created_at -created_at updated_at -updated_at amount -amount"`
	Provider *string `json:"provider" validate:"omitempty,oneof=offline paypal stripe"`
	Status   *string `json:"status" validate:"omitempty,oneof=open pending authorized succeeded failed cancelled partially_refunded refunded disputed"`
}

type PageMetadata struct {
	CurrentPage  int `json:"currentPage"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
}

type PaymentListResponse struct {
	Payments []PaymentResponse `json:"payments"`
	Metadata PageMetadata      `json:"metadata"`
}
