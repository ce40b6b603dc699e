package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
)

// headerRequestID correlates the log lines a settlement callback or order
// mutation produces. Inbound ids are kept and echoed back to the caller.
const headerRequestID = "X-Request-Id"

// RequestID tags the request context and the response with a correlation id.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := requestID(r)
			w.Header().Set(headerRequestID, id)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestID(r *http.Request) string {
	if id := r.Header.Get(headerRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}
