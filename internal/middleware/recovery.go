package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"outfit-db-api/pkg/apierror"
	"outfit-db-api/pkg/response"
)

// NewRecovery returns a middleware that turns panics into a generic 500.
// The panic value and stack go to the log only.
func NewRecovery(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.Named("recovery")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", GetRequestID(r.Context())),
					zap.ByteString("stack", debug.Stack()),
				)

				response.Error(w, apierror.InternalError(""))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
