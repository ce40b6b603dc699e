package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/minhtran-dev/cakemarket-backend/api/middleware"
	"github.com/minhtran-dev/cakemarket-backend/api/responses"
	"github.com/minhtran-dev/cakemarket-backend/api/validators"
	"github.com/minhtran-dev/cakemarket-backend/internal/refunds"
	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
)

type refundResponse struct {
	RequestID    uuid.UUID  `json:"request_id"`
	OrderID      uuid.UUID  `json:"order_id"`
	CustomerID   uuid.UUID  `json:"customer_id"`
	Reason       string     `json:"reason"`
	Description  string     `json:"description,omitempty"`
	EvidenceURLs *string    `json:"evidence_urls,omitempty"`
	Status       string     `json:"status"`
	StaffNote    *string    `json:"staff_note,omitempty"`
	ResolvedBy   *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func newRefundResponse(request *models.RefundRequest) refundResponse {
	return refundResponse{
		RequestID:    request.ID,
		OrderID:      request.OrderID,
		CustomerID:   request.CustomerID,
		Reason:       request.Reason,
		Description:  request.Description,
		EvidenceURLs: request.EvidenceURLs,
		Status:       request.Status.String(),
		StaffNote:    request.StaffNote,
		ResolvedBy:   request.ResolvedBy,
		ResolvedAt:   request.ResolvedAt,
		CreatedAt:    request.CreatedAt,
	}
}

type requestRefundBody struct {
	OrderID      uuid.UUID `json:"order_id" validate:"required,uuid4"`
	Reason       string    `json:"reason" validate:"required,max=200"`
	Description  string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	EvidenceURLs *string   `json:"evidence_urls,omitempty" validate:"omitempty,max=2000"`
}

// RequestRefund opens a refund claim on one of the caller's delivered orders.
func RequestRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := middleware.UserUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload requestRefundBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.RequestRefund(r.Context(), refunds.RequestRefundInput{
			CustomerID:   customerID,
			OrderID:      payload.OrderID,
			Reason:       payload.Reason,
			Description:  payload.Description,
			EvidenceURLs: payload.EvidenceURLs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newRefundResponse(request))
	}
}

// ListPendingRefunds returns unresolved claims for staff review.
func ListPendingRefunds(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := validators.Pagination(r)
		pending, err := svc.GetPendingRefunds(r.Context(), limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := make([]refundResponse, 0, len(pending))
		for i := range pending {
			resp = append(resp, newRefundResponse(&pending[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// GetRefund returns one refund request.
func GetRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := refundIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.GetRefund(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRefundResponse(request))
	}
}

type resolveRefundBody struct {
	Approve   bool    `json:"approve"`
	StaffNote *string `json:"staff_note,omitempty" validate:"omitempty,max=2000"`
}

// ResolveRefund records a staff verdict on a pending claim.
func ResolveRefund(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := middleware.UserUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := refundIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resolveRefundBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.ResolveRefund(r.Context(), refunds.ResolveRefundInput{
			StaffID:   staffID,
			RequestID: requestID,
			Approve:   payload.Approve,
			StaffNote: payload.StaffNote,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRefundResponse(request))
	}
}

func refundIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "refundId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "refund id must be a valid uuid")
	}
	return id, nil
}
