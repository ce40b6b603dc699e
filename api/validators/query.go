package validators

import (
	"net/http"
	"strconv"

	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
)

// Pagination reads limit/offset query params with sane defaults.
func Pagination(r *http.Request) (limit, offset int) {
	limit = intQuery(r, "limit", 50)
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset = intQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// IntQuery parses a required integer query parameter.
func IntQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "query parameter %q is required", name)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "query parameter %q must be an integer", name)
	}
	return value, nil
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
