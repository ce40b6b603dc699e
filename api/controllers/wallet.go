package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtran-dev/cakemarket-backend/api/middleware"
	"github.com/minhtran-dev/cakemarket-backend/api/responses"
	"github.com/minhtran-dev/cakemarket-backend/api/validators"
	"github.com/minhtran-dev/cakemarket-backend/internal/wallet"
	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
)

type walletBalanceResponse struct {
	Balance string `json:"balance"`
}

type walletTransactionResponse struct {
	TransactionID   uuid.UUID  `json:"transaction_id"`
	Amount          string     `json:"amount"`
	TransactionType string     `json:"transaction_type"`
	Description     string     `json:"description,omitempty"`
	BalanceAfter    string     `json:"balance_after"`
	ReferenceID     *uuid.UUID `json:"reference_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func newWalletTransactionResponse(entry *models.WalletTransaction) walletTransactionResponse {
	return walletTransactionResponse{
		TransactionID:   entry.ID,
		Amount:          entry.Amount.StringFixed(2),
		TransactionType: entry.TransactionType.String(),
		Description:     entry.Description,
		BalanceAfter:    entry.BalanceAfter.StringFixed(2),
		ReferenceID:     entry.ReferenceID,
		CreatedAt:       entry.CreatedAt,
	}
}

// WalletBalance returns the caller's current balance.
func WalletBalance(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.UserUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.GetBalance(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, walletBalanceResponse{Balance: balance.StringFixed(2)})
	}
}

type depositRequest struct {
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// WalletDeposit tops up the caller's wallet.
func WalletDeposit(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.UserUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload depositRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := decimal.NewFromString(payload.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal number"))
			return
		}

		entry, err := svc.Deposit(r.Context(), userID, amount, payload.Description)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWalletTransactionResponse(entry))
	}
}

// WalletTransactions lists the caller's ledger entries, newest first.
func WalletTransactions(svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := middleware.UserUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, offset := validators.Pagination(r)
		entries, err := svc.ListTransactions(r.Context(), userID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]walletTransactionResponse, 0, len(entries))
		for i := range entries {
			resp = append(resp, newWalletTransactionResponse(&entries[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}
