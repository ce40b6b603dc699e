package controllers

import (
	"net/http"

	"github.com/minhtran-dev/cakemarket-backend/api/responses"
	"github.com/minhtran-dev/cakemarket-backend/internal/gateway"
	"github.com/minhtran-dev/cakemarket-backend/internal/settlement"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
)

// PaymentNotification handles the gateway's server-to-server IPN call. The
// gateway expects a bare {RspCode, Message} body with HTTP 200 regardless of
// outcome.
func PaymentNotification(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := gateway.ParseCallback(r.URL.Query())
		result := svc.ProcessNotification(r.Context(), params)
		responses.WriteRaw(w, http.StatusOK, result)
	}
}

type paymentReturnResponse struct {
	Success      bool     `json:"success"`
	ResponseCode string   `json:"response_code"`
	TxnRef       string   `json:"txn_ref"`
	Amount       string   `json:"amount"`
	OrderIDs     []string `json:"order_ids"`
	Message      string   `json:"message"`
}

// PaymentReturn handles the customer's browser redirect back from the
// gateway and reports the payment outcome.
func PaymentReturn(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := gateway.ParseCallback(r.URL.Query())
		result, err := svc.ProcessReturn(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := paymentReturnResponse{
			Success:      result.Success,
			ResponseCode: result.ResponseCode,
			TxnRef:       result.TxnRef,
			Amount:       result.Amount.StringFixed(2),
			Message:      result.Message,
		}
		for _, id := range result.OrderIDs {
			resp.OrderIDs = append(resp.OrderIDs, id.String())
		}
		responses.WriteSuccess(w, resp)
	}
}
