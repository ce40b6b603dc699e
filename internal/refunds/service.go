package refunds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/internal/orders"
	"github.com/minhtran-dev/cakemarket-backend/pkg/db"
	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
	"github.com/minhtran-dev/cakemarket-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type escrowMover interface {
	ReleaseToShop(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, shopOwnerID uuid.UUID) error
	RefundToCustomer(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, customerID uuid.UUID) error
}

// RequestRefundInput is a customer's refund claim against a delivered order.
type RequestRefundInput struct {
	CustomerID   uuid.UUID
	OrderID      uuid.UUID
	Reason       string
	Description  string
	EvidenceURLs *string
}

// ResolveRefundInput is a staff member's terminal verdict on a pending claim.
type ResolveRefundInput struct {
	StaffID   uuid.UUID
	RequestID uuid.UUID
	Approve   bool
	StaffNote *string
}

// Service owns the refund workflow. A claim freezes the order in
// RefundRequested; resolution either returns the money to the customer or
// releases it to the shop, never both.
type Service interface {
	RequestRefund(ctx context.Context, input RequestRefundInput) (*models.RefundRequest, error)
	ResolveRefund(ctx context.Context, input ResolveRefundInput) (*models.RefundRequest, error)
	GetRefund(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error)
	GetPendingRefunds(ctx context.Context, limit, offset int) ([]models.RefundRequest, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	orders  orders.Repository
	escrow  escrowMover
	metrics *metrics.SettlementMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the refunds service.
func NewService(
	tx txRunner,
	repo Repository,
	ordersRepo orders.Repository,
	escrowSvc escrowMover,
	mtr *metrics.SettlementMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("refunds repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if escrowSvc == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		orders:  ordersRepo,
		escrow:  escrowSvc,
		metrics: mtr,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// RequestRefund opens a claim on a delivered, paid order the customer owns.
// At most one claim per order, ever.
func (s *service) RequestRefund(ctx context.Context, input RequestRefundInput) (*models.RefundRequest, error) {
	if input.CustomerID == uuid.Nil || input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id and order id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund reason required")
	}

	var request *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		order, err := ordersRepo.FindByID(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
		}
		if order.UserID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status != enums.OrderStatusDelivered {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "only delivered orders can be refunded, order is %q", order.Status)
		}
		if order.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be refunded")
		}

		if _, err := repo.FindByOrder(ctx, order.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "a refund request already exists for this order")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking existing refund request")
		}

		request = &models.RefundRequest{
			OrderID:      order.ID,
			CustomerID:   input.CustomerID,
			Reason:       input.Reason,
			Description:  input.Description,
			EvidenceURLs: input.EvidenceURLs,
			Status:       enums.RefundStatusPending,
		}
		if _, err := repo.Create(ctx, request); err != nil {
			// Concurrent claims race past the existence check; the unique
			// constraint on order_id is the arbiter.
			if db.IsUniqueViolation(err, "uq_refund_requests_order_id") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a refund request already exists for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating refund request")
		}
		ok, err := ordersRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusDelivered, enums.OrderStatusRefundRequested)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "freezing order for refund review")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer delivered")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

// ResolveRefund settles a pending claim terminally. Approval sends the order
// total from escrow back to the customer and marks the order Returned;
// rejection completes the order and pays the shop out of escrow.
func (s *service) ResolveRefund(ctx context.Context, input ResolveRefundInput) (*models.RefundRequest, error) {
	if input.StaffID == uuid.Nil || input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id and request id required")
	}

	var request *models.RefundRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		var err error
		request, err = repo.FindByID(ctx, input.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading refund request")
		}
		if request.Status != enums.RefundStatusPending {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "refund request already resolved as %q", request.Status)
		}

		order, err := ordersRepo.FindByID(ctx, request.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading refunded order")
		}

		if input.Approve {
			err = s.approve(ctx, tx, ordersRepo, order)
		} else {
			err = s.reject(ctx, tx, ordersRepo, order)
		}
		if err != nil {
			return err
		}

		resolvedAt := s.now()
		request.Status = enums.RefundStatusApproved
		if !input.Approve {
			request.Status = enums.RefundStatusRejected
		}
		request.StaffNote = input.StaffNote
		request.ResolvedBy = &input.StaffID
		request.ResolvedAt = &resolvedAt
		if err := repo.Update(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording refund resolution")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "rejected"
	if input.Approve {
		outcome = "approved"
	}
	s.metrics.IncRefundResolution(outcome)
	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("refund request %s %s", request.ID, outcome))
	}
	return request, nil
}

// approve returns the money and the goods: escrow pays the customer back and
// the order's stock goes back on the shelf.
func (s *service) approve(ctx context.Context, tx *gorm.DB, ordersRepo orders.Repository, order *models.Order) error {
	// The Paid -> Refunded flip decides which resolution moves the money; a
	// racing resolution that loses it must not touch escrow.
	ok, err := ordersRepo.SetOrderPaymentStatus(ctx, order.ID, enums.PaymentStatusPaid, enums.PaymentStatusRefunded)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking order refunded")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment was settled concurrently")
	}
	if err := s.escrow.RefundToCustomer(ctx, tx, order.TotalAmount, order.ID, order.UserID); err != nil {
		return err
	}
	if err := ordersRepo.SetPaymentOutcome(ctx, order.ID, enums.PaymentStatusRefunded, nil, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payment outcome")
	}
	ok, err = ordersRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusRefundRequested, enums.OrderStatusReturned)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking order returned")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order left refund review concurrently")
	}
	for _, item := range order.Items {
		if err := ordersRepo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restoring stock")
		}
	}
	return nil
}

// reject closes the claim in the shop's favor. The customer keeps the goods,
// so stock stays where it is.
func (s *service) reject(ctx context.Context, tx *gorm.DB, ordersRepo orders.Repository, order *models.Order) error {
	shop, err := ordersRepo.FindShopByID(ctx, order.ShopID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shop for payout")
	}
	ok, err := ordersRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusRefundRequested, enums.OrderStatusCompleted)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "completing order")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order left refund review concurrently")
	}
	if err := s.escrow.ReleaseToShop(ctx, tx, order.TotalAmount, order.ID, shop.OwnerID); err != nil {
		return err
	}
	return nil
}

func (s *service) GetRefund(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund request id required")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "refund request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading refund request")
	}
	return request, nil
}

func (s *service) GetPendingRefunds(ctx context.Context, limit, offset int) ([]models.RefundRequest, error) {
	requests, err := s.repo.ListByStatus(ctx, enums.RefundStatusPending, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing pending refund requests")
	}
	return requests, nil
}
