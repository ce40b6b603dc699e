package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/minhtran-dev/cakemarket-backend/api/responses"
	"github.com/minhtran-dev/cakemarket-backend/api/validators"
	"github.com/minhtran-dev/cakemarket-backend/internal/escrow"
	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
)

type escrowTransactionResponse struct {
	TransactionID   uuid.UUID  `json:"transaction_id"`
	Amount          string     `json:"amount"`
	TransactionType string     `json:"transaction_type"`
	BalanceAfter    string     `json:"balance_after"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
	RelatedUserID   *uuid.UUID `json:"related_user_id,omitempty"`
	Description     string     `json:"description,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func newEscrowTransactionResponse(entry *models.SystemWalletTransaction) escrowTransactionResponse {
	return escrowTransactionResponse{
		TransactionID:   entry.ID,
		Amount:          entry.Amount.StringFixed(2),
		TransactionType: entry.TransactionType.String(),
		BalanceAfter:    entry.BalanceAfter.StringFixed(2),
		OrderID:         entry.OrderID,
		RelatedUserID:   entry.RelatedUserID,
		Description:     entry.Description,
		CreatedAt:       entry.CreatedAt,
	}
}

// EscrowBalance reports the pooled escrow balance for staff oversight.
func EscrowBalance(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		balance, err := svc.GetBalance(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, walletBalanceResponse{Balance: balance.StringFixed(2)})
	}
}

// EscrowTransactions lists the escrow ledger, newest first.
func EscrowTransactions(svc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := validators.Pagination(r)
		entries, err := svc.ListTransactions(r.Context(), limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]escrowTransactionResponse, 0, len(entries))
		for i := range entries {
			resp = append(resp, newEscrowTransactionResponse(&entries[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}
