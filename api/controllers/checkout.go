package controllers

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/minhtran-dev/cakemarket-backend/api/middleware"
	"github.com/minhtran-dev/cakemarket-backend/api/responses"
	"github.com/minhtran-dev/cakemarket-backend/api/validators"
	checkoutsvc "github.com/minhtran-dev/cakemarket-backend/internal/checkout"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
)

// Checkout submits the caller's cart, or a selection of it, as one or more
// orders.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := middleware.UserUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateOrder(r.Context(), checkoutsvc.CreateOrderInput{
			UserID:        userID,
			CartItemIDs:   payload.CartItemIDs,
			AddressID:     payload.AddressID,
			PaymentMethod: enums.PaymentMethod(payload.PaymentMethod),
			Note:          payload.Note,
			ClientIP:      clientIP(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(result))
	}
}

type checkoutRequest struct {
	CartItemIDs   []uuid.UUID `json:"cart_item_ids,omitempty" validate:"omitempty,dive,uuid4"`
	AddressID     *uuid.UUID  `json:"address_id,omitempty" validate:"omitempty,uuid4"`
	PaymentMethod string      `json:"payment_method" validate:"required,oneof=Wallet Gateway"`
	Note          *string     `json:"note,omitempty" validate:"omitempty,max=500"`
}

type checkoutResponse struct {
	Orders           []checkoutOrderResponse `json:"orders"`
	GrandTotal       string                  `json:"grand_total"`
	PaymentMethod    string                  `json:"payment_method"`
	CheckoutGroupID  *string                 `json:"checkout_group_id,omitempty"`
	PaymentURL       string                  `json:"payment_url,omitempty"`
	RemainingBalance *string                 `json:"remaining_balance,omitempty"`
}

type checkoutOrderResponse struct {
	OrderID          uuid.UUID `json:"order_id"`
	ShopID           uuid.UUID `json:"shop_id"`
	ShopName         string    `json:"shop_name"`
	ItemsAmount      string    `json:"items_amount"`
	ShippingFee      string    `json:"shipping_fee"`
	TotalAmount      string    `json:"total_amount"`
	ShippingProvider string    `json:"shipping_provider"`
}

func newCheckoutResponse(result *checkoutsvc.CreateOrderResult) checkoutResponse {
	resp := checkoutResponse{
		Orders:          make([]checkoutOrderResponse, 0, len(result.Orders)),
		GrandTotal:      result.GrandTotal.StringFixed(2),
		PaymentMethod:   result.PaymentMethod.String(),
		CheckoutGroupID: result.CheckoutGroupID,
		PaymentURL:      result.PaymentURL,
	}
	if result.RemainingBalance != nil {
		remaining := result.RemainingBalance.StringFixed(2)
		resp.RemainingBalance = &remaining
	}
	for _, order := range result.Orders {
		resp.Orders = append(resp.Orders, checkoutOrderResponse{
			OrderID:          order.OrderID,
			ShopID:           order.ShopID,
			ShopName:         order.ShopName,
			ItemsAmount:      order.ItemsAmount.StringFixed(2),
			ShippingFee:      order.ShippingFee.StringFixed(2),
			TotalAmount:      order.TotalAmount.StringFixed(2),
			ShippingProvider: order.ShippingProvider.String(),
		})
	}
	return resp
}

// clientIP prefers the edge proxy's forwarded address.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
