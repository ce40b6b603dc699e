package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minhtran-dev/cakemarket-backend/api/controllers"
	"github.com/minhtran-dev/cakemarket-backend/api/middleware"
	checkoutsvc "github.com/minhtran-dev/cakemarket-backend/internal/checkout"
	"github.com/minhtran-dev/cakemarket-backend/internal/escrow"
	"github.com/minhtran-dev/cakemarket-backend/internal/orders"
	"github.com/minhtran-dev/cakemarket-backend/internal/refunds"
	"github.com/minhtran-dev/cakemarket-backend/internal/settlement"
	"github.com/minhtran-dev/cakemarket-backend/internal/shipping"
	"github.com/minhtran-dev/cakemarket-backend/internal/wallet"
	"github.com/minhtran-dev/cakemarket-backend/pkg/config"
	"github.com/minhtran-dev/cakemarket-backend/pkg/db"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
	"github.com/minhtran-dev/cakemarket-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Cfg  *config.Config
	Logg *logger.Logger

	DB    db.Pinger
	Redis redis.Pinger

	Checkout   checkoutsvc.Service
	Orders     orders.Service
	Wallet     wallet.Service
	Escrow     escrow.Service
	Refunds    refunds.Service
	Settlement settlement.Service
	Shipping   shipping.Directory
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	logg := d.Logg

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Cfg))
		r.Get("/ready", controllers.HealthReady(d.Cfg, logg, d.DB, d.Redis))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Gateway callbacks authenticate by signature, not identity headers.
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Get("/notify", controllers.PaymentNotification(d.Settlement, logg))
		r.Get("/return", controllers.PaymentReturn(d.Settlement, logg))
	})

	r.Route("/api/v1/shipping", func(r chi.Router) {
		r.Get("/provinces", controllers.ShippingProvinces(d.Shipping, logg))
		r.Get("/districts", controllers.ShippingDistricts(d.Shipping, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleCustomer, logg))

			r.Post("/checkout", controllers.Checkout(d.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListMyOrders(d.Orders, logg))
				r.Get("/{orderId}", controllers.GetOrder(d.Orders, logg))
				r.Post("/{orderId}/cancel", controllers.CancelOrder(d.Orders, logg))
				r.Post("/{orderId}/confirm-received", controllers.ConfirmReceived(d.Orders, logg))
			})

			r.Route("/wallet", func(r chi.Router) {
				r.Get("/balance", controllers.WalletBalance(d.Wallet, logg))
				r.Post("/deposit", controllers.WalletDeposit(d.Wallet, logg))
				r.Get("/transactions", controllers.WalletTransactions(d.Wallet, logg))
			})

			r.Post("/refunds", controllers.RequestRefund(d.Refunds, logg))
		})

		r.Route("/shop/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleSeller, logg))
			r.Get("/", controllers.ListShopOrders(d.Orders, logg))
			r.Get("/{orderId}", controllers.GetShopOrder(d.Orders, logg))
			r.Patch("/{orderId}/status", controllers.UpdateOrderStatus(d.Orders, logg))
		})

		r.Route("/shipper/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleShipper, logg))
			r.Get("/available", controllers.ListAvailablePickups(d.Orders, logg))
			r.Get("/", controllers.ListShipperOrders(d.Orders, logg))
			r.Post("/{orderId}/pickup", controllers.PickupOrder(d.Orders, logg))
			r.Post("/{orderId}/deliver", controllers.DeliverOrder(d.Orders, logg))
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleStaff, logg))
			r.Route("/refunds", func(r chi.Router) {
				r.Get("/", controllers.ListPendingRefunds(d.Refunds, logg))
				r.Get("/{refundId}", controllers.GetRefund(d.Refunds, logg))
				r.Post("/{refundId}/resolve", controllers.ResolveRefund(d.Refunds, logg))
			})
			r.Route("/escrow", func(r chi.Router) {
				r.Get("/balance", controllers.EscrowBalance(d.Escrow, logg))
				r.Get("/transactions", controllers.EscrowTransactions(d.Escrow, logg))
			})
		})
	})

	return r
}
