package controllers

import (
	"net/http"

	"github.com/minhtran-dev/cakemarket-backend/api/responses"
	"github.com/minhtran-dev/cakemarket-backend/api/validators"
	"github.com/minhtran-dev/cakemarket-backend/internal/shipping"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
)

// ShippingProvinces serves the rate provider's province directory.
func ShippingProvinces(svc shipping.Directory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listing, err := svc.Provinces(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading provinces"))
			return
		}
		responses.WriteSuccess(w, listing)
	}
}

// ShippingDistricts serves the district directory for one province.
func ShippingDistricts(svc shipping.Directory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provinceID, err := validators.IntQuery(r, "provinceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.Districts(r.Context(), provinceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading districts"))
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
