package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type escrowMover interface {
	ReleaseToShop(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, shopOwnerID uuid.UUID) error
	RefundToCustomer(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, customerID uuid.UUID) error
}

// Service owns the order status state machine and the side effects each
// transition triggers. Every mutating operation is one unit of work: status,
// stock, and escrow move together or not at all.
type Service interface {
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListMyOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ConfirmReceived(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)

	ListShopOrders(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error)
	GetShopOrder(ctx context.Context, ownerID, orderID uuid.UUID) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, ownerID, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error)

	ListAvailablePickups(ctx context.Context) ([]models.Order, error)
	ListShipperOrders(ctx context.Context, shipperID uuid.UUID) ([]models.Order, error)
	PickupOrder(ctx context.Context, shipperID, orderID uuid.UUID) (*models.Order, error)
	DeliverOrder(ctx context.Context, shipperID, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	tx     txRunner
	repo   Repository
	escrow escrowMover
	logg   *logger.Logger
}

// NewService wires the order state machine service.
func NewService(tx txRunner, repo Repository, escrow escrowMover, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if escrow == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	return &service{tx: tx, repo: repo, escrow: escrow, logg: logg}, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListMyOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return orders, nil
}

// CancelOrder is the customer-side cancellation: Pending only, restores stock,
// and refunds from escrow when the order was already paid.
func (s *service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict,
				"order in status %q cannot be cancelled, only %q can", order.Status, enums.OrderStatusPending)
		}

		// Claim the transition before any side effect runs; a racing
		// cancellation loses the conditional update and reverses nothing.
		ok, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer pending")
		}
		if err := s.reverseOrder(ctx, tx, repo, order); err != nil {
			return err
		}

		result, err = s.loadOrder(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmReceived moves Delivered to Completed. This is the only point where
// a shop gets paid: a Paid order's total leaves escrow for the owner's wallet.
func (s *service) ConfirmReceived(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict,
				"order in status %q cannot be confirmed received, must be %q", order.Status, enums.OrderStatusDelivered)
		}

		// Claim Delivered -> Completed first so the payout runs at most once,
		// even against a concurrent confirm or refund request.
		ok, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusDelivered, enums.OrderStatusCompleted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer delivered")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			shop, err := repo.FindShopByID(ctx, order.ShopID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shop for payout")
			}
			if err := s.escrow.ReleaseToShop(ctx, tx, order.TotalAmount, order.ID, shop.OwnerID); err != nil {
				return err
			}
		}

		result, err = s.loadOrder(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListShopOrders(ctx context.Context, ownerID uuid.UUID) ([]models.Order, error) {
	shop, err := s.shopForOwner(ctx, s.repo, ownerID)
	if err != nil {
		return nil, err
	}
	orders, err := s.repo.ListByShop(ctx, shop.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing shop orders")
	}
	return orders, nil
}

func (s *service) GetShopOrder(ctx context.Context, ownerID, orderID uuid.UUID) (*models.Order, error) {
	shop, err := s.shopForOwner(ctx, s.repo, ownerID)
	if err != nil {
		return nil, err
	}
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.ShopID != shop.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// UpdateOrderStatus is the shop-side entry point. Only the transitions in the
// shop table are legal; a Cancelled target carries the same stock/refund
// reversal as a customer cancellation.
func (s *service) UpdateOrderStatus(ctx context.Context, ownerID, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if !target.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", target)
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shop, err := s.shopForOwner(ctx, repo, ownerID)
		if err != nil {
			return err
		}
		order, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.ShopID != shop.ID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !ShopTransitionAllowed(order.Status, target) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict,
				"cannot move order from %q to %q", order.Status, target)
		}

		ok, err := repo.UpdateStatus(ctx, order.ID, order.Status, target)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order status")
		}
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict,
				"order moved out of %q concurrently", order.Status)
		}
		if target == enums.OrderStatusCancelled {
			if err := s.reverseOrder(ctx, tx, repo, order); err != nil {
				return err
			}
		}

		result, err = s.loadOrder(ctx, repo, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ListAvailablePickups(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repo.ListReadyForPickup(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing available pickups")
	}
	return orders, nil
}

func (s *service) ListShipperOrders(ctx context.Context, shipperID uuid.UUID) ([]models.Order, error) {
	if shipperID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipper id required")
	}
	orders, err := s.repo.ListByShipper(ctx, shipperID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing shipper orders")
	}
	return orders, nil
}

// PickupOrder claims a ReadyForPickup order for the shipper. The claim is one
// conditional update, so two shippers racing for the same order cannot both
// win.
func (s *service) PickupOrder(ctx context.Context, shipperID, orderID uuid.UUID) (*models.Order, error) {
	if shipperID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipper id required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.AssignShipper(ctx, orderID, shipperID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assigning shipper")
		}
		if !ok {
			order, loadErr := s.loadOrder(ctx, repo, orderID)
			if loadErr != nil {
				return loadErr
			}
			if order.ShipperID != nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order already picked up by another shipper")
			}
			return pkgerrors.Newf(pkgerrors.CodeStateConflict,
				"order in status %q is not ready for pickup", order.Status)
		}

		result, err = s.loadOrder(ctx, repo, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeliverOrder marks a Shipping order Delivered; only the assigned shipper
// may do it.
func (s *service) DeliverOrder(ctx context.Context, shipperID, orderID uuid.UUID) (*models.Order, error) {
	if shipperID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipper id required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.MarkDelivered(ctx, orderID, shipperID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking delivered")
		}
		if !ok {
			order, loadErr := s.loadOrder(ctx, repo, orderID)
			if loadErr != nil {
				return loadErr
			}
			if order.ShipperID == nil || *order.ShipperID != shipperID {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not assigned to this shipper")
			}
			return pkgerrors.Newf(pkgerrors.CodeStateConflict,
				"order in status %q cannot be delivered, must be %q", order.Status, enums.OrderStatusShipping)
		}

		result, err = s.loadOrder(ctx, repo, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// reverseOrder undoes a not-yet-fulfilled order: every item's stock goes back
// and, when the customer already paid, escrow refunds the full total.
func (s *service) reverseOrder(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error {
	for _, item := range order.Items {
		if err := repo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restoring stock")
		}
	}

	if order.PaymentStatus != enums.PaymentStatusPaid {
		return nil
	}
	// The Paid -> Refunded flip arbitrates who moves the money; losing it
	// means another transaction already refunded this order.
	ok, err := repo.SetOrderPaymentStatus(ctx, order.ID, enums.PaymentStatusPaid, enums.PaymentStatusRefunded)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payment status")
	}
	if !ok {
		return nil
	}
	if err := s.escrow.RefundToCustomer(ctx, tx, order.TotalAmount, order.ID, order.UserID); err != nil {
		return err
	}
	if err := repo.SetPaymentOutcome(ctx, order.ID, enums.PaymentStatusRefunded, nil, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating payment record")
	}
	return nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) shopForOwner(ctx context.Context, repo Repository, ownerID uuid.UUID) (*models.Shop, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	shop, err := repo.FindShopByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found for this account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shop")
	}
	return shop, nil
}
