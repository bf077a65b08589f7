package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"
)

func (app *Application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")

				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// requestLogger stores a logger carrying the request id in the request context
// and logs every completed request.
func (app *Application) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := app.logger.With(
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, app.contextSetLogger(r, logger))

		logger.InfoContext(r.Context(), "request completed", "status", ww.Status(), "bytes", ww.BytesWritten())
	})
}

// requireAPIKey checks the bearer token against the configured bcrypt hash.
// Without a configured hash every request is let through.
func (app *Application) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.APIKeyHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Authorization")

		key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || key == "" {
			app.unauthorizedAccessResponse(w, r)
			return
		}

		err := bcrypt.CompareHashAndPassword([]byte(app.config.APIKeyHash), []byte(key))
		if err != nil {
			app.contextGetLogger(r).Warn("request with invalid api key")
			app.unauthorizedAccessResponse(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
