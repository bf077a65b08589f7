package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.requestLogger)
	r.Use(app.recoverPanic)

	r.Get("/healthcheck", app.GetHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhooks/{provider}", app.WebhookHandler)

	r.Group(func(r chi.Router) {
		r.Use(app.requireAPIKey)

		r.Get("/payments", app.ListPaymentsHandler)
		r.Post("/payments", app.CreatePaymentHandler)
		r.Get("/payments/{paymentId}", app.GetPaymentHandler)
		r.Post("/payments/{paymentId}/execute", app.ExecutePaymentHandler)
		r.Post("/payments/{paymentId}/refund", app.RefundPaymentHandler)
		r.Post("/payments/{paymentId}/cancel", app.CancelPaymentHandler)
	})

	return r
}
