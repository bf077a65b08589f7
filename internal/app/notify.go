package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/metinatakli/payment-gateway/internal/domain"
	"github.com/shopspring/decimal"
)

const receiptTemplate = "payment_receipt.tmpl"

var receiptStatusText = map[domain.Status]string{
	domain.StatusSucceeded:         "complete",
	domain.StatusRefunded:          "refunded",
	domain.StatusPartiallyRefunded: "partially refunded",
}

// statusChanged publishes the change and mails the payer a receipt for the
// statuses they care about. Both run off the request path. The payment is
// already persisted, so failures are only logged. refunded is the amount a
// refund request asked for, nil when unknown or not a refund.
func (app *Application) statusChanged(
	r *http.Request,
	payment *domain.Payment,
	previous domain.Status,
	refunded *decimal.Decimal) {

	event := domain.NewStatusChangedEvent(payment, previous)
	event.RefundedAmount = refundedAmount(payment, refunded)

	data := receiptData(payment, event.RefundedAmount)
	recipient := payment.Customer.Email

	app.background(r.Context(), func(ctx context.Context) {
		// new logger for this goroutine, inheriting context from the request
		gLogger := app.contextGetLogger(r.WithContext(ctx))

		err := app.publisher.Publish(ctx, event)
		if err != nil {
			gLogger.Error("failed to publish status change", "payment_id", event.PaymentID, "error", err)
		}

		if data == nil {
			return
		}

		err = app.mailer.Send(recipient, receiptTemplate, data)
		if err != nil {
			gLogger.Error("failed to send payment receipt", "payment_id", event.PaymentID, "error", err)
		} else {
			gLogger.Info("payment receipt sent", "payment_id", event.PaymentID)
		}
	})
}

// refundedAmount is the requested amount for a refund, or the whole amount
// once the payment is fully refunded.
func refundedAmount(payment *domain.Payment, refunded *decimal.Decimal) string {
	if payment.Status != domain.StatusRefunded && payment.Status != domain.StatusPartiallyRefunded {
		return ""
	}

	switch {
	case refunded != nil:
		return refunded.StringFixed(2)
	case payment.Status == domain.StatusRefunded:
		return payment.Amount.StringFixed(2)
	default:
		return ""
	}
}

// receiptData returns nil when the payer gets no receipt for the status.
func receiptData(payment *domain.Payment, refunded string) map[string]any {
	statusText, ok := receiptStatusText[payment.Status]
	if !ok || payment.Customer.Email == "" {
		return nil
	}

	data := map[string]any{
		"paymentId":    payment.ID,
		"customerName": payment.Customer.Name,
		"description":  payment.Description,
		"amount":       payment.Amount.StringFixed(2),
		"currencyCode": payment.CurrencyCode,
		"statusText":   statusText,
	}

	if refunded != "" {
		data["refundedAmount"] = refunded
	}

	return data
}

// background runs fn in a goroutine that outlives the request. serve waits
// for these before it returns.
func (app *Application) background(ctx context.Context, fn func(ctx context.Context)) {
	app.wg.Add(1)

	go func() {
		defer app.wg.Done()

		defer func() {
			if err := recover(); err != nil {
				app.logger.Error("panic in background task", "panic", fmt.Sprintf("%v", err))
			}
		}()

		fn(context.WithoutCancel(ctx))
	}()
}
