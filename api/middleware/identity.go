package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/minhtran-dev/cakemarket-backend/api/responses"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
)

// Identity headers are set by the authenticating edge proxy. This service
// trusts them as-is.
const (
	userIDHeader = "X-User-Id"
	roleHeader   = "X-User-Role"
)

// Known actor roles.
const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleShipper  = "shipper"
	RoleStaff    = "staff"
)

// Identity requires a well-formed user id header and stashes the caller's
// identity in the request context.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := r.Header.Get(userIDHeader)
			if rawID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
				return
			}
			if _, err := uuid.Parse(rawID); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed identity"))
				return
			}

			ctx := WithUserID(r.Context(), rawID)
			ctx = WithRole(ctx, r.Header.Get(roleHeader))
			if logg != nil {
				ctx = logg.WithUserID(ctx, rawID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole guards a route group behind one actor role.
func RequireRole(role string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != role {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeForbidden, "%s role required", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserUUID resolves the authenticated caller's id from the request.
func UserUUID(r *http.Request) (uuid.UUID, error) {
	raw := UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed identity")
	}
	return id, nil
}
