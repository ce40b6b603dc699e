package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/internal/orders"
	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
	"github.com/minhtran-dev/cakemarket-backend/pkg/metrics"
)

// Gateway IPN response codes.
const (
	RspCodeSuccess          = "00"
	RspCodeOrderNotFound    = "01"
	RspCodeAlreadyConfirmed = "02"
	RspCodeInvalidSignature = "97"
	RspCodeInternalError    = "99"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type callbackVerifier interface {
	ValidateSignature(params map[string]string) bool
	ResponseCode(params map[string]string) string
	TxnRef(params map[string]string) string
}

type escrowHolder interface {
	Hold(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, customerID uuid.UUID) error
}

// NotificationResult is the machine-facing answer to a gateway IPN call. The
// gateway retries until it receives RspCode 00 or a terminal rejection.
type NotificationResult struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// ReturnResult is the human-facing answer when the customer lands back on
// the site after paying.
type ReturnResult struct {
	Success      bool
	ResponseCode string
	TxnRef       string
	Amount       decimal.Decimal
	OrderIDs     []uuid.UUID
	Message      string
}

// Service reconciles gateway payment callbacks against the order set created
// at checkout. Both entry points settle; the payment-status check inside the
// transaction makes duplicate deliveries harmless.
type Service interface {
	ProcessNotification(ctx context.Context, params map[string]string) NotificationResult
	ProcessReturn(ctx context.Context, params map[string]string) (*ReturnResult, error)
}

type service struct {
	tx      txRunner
	repo    orders.Repository
	verify  callbackVerifier
	escrow  escrowHolder
	metrics *metrics.SettlementMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the settlement service.
func NewService(
	tx txRunner,
	repo orders.Repository,
	verify callbackVerifier,
	escrowSvc escrowHolder,
	mtr *metrics.SettlementMetrics,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if verify == nil {
		return nil, fmt.Errorf("callback verifier required")
	}
	if escrowSvc == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		verify:  verify,
		escrow:  escrowSvc,
		metrics: mtr,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// ProcessNotification handles the gateway's server-to-server IPN call. It
// never returns an error: every outcome maps to an RspCode the gateway
// understands.
func (s *service) ProcessNotification(ctx context.Context, params map[string]string) NotificationResult {
	result := s.processNotification(ctx, params)
	s.metrics.IncNotification(result.RspCode)
	return result
}

func (s *service) processNotification(ctx context.Context, params map[string]string) NotificationResult {
	if !s.verify.ValidateSignature(params) {
		return NotificationResult{RspCode: RspCodeInvalidSignature, Message: "Invalid signature"}
	}

	txnRef := s.verify.TxnRef(params)
	group, err := s.repo.ListByCheckoutGroup(ctx, txnRef)
	if err != nil {
		return s.internalError(ctx, err, txnRef)
	}
	if len(group) == 0 {
		return NotificationResult{RspCode: RspCodeOrderNotFound, Message: "Order not found"}
	}
	if countUnpaid(group) == 0 {
		return NotificationResult{RspCode: RspCodeAlreadyConfirmed, Message: "Order already confirmed"}
	}

	success := s.verify.ResponseCode(params) == RspCodeSuccess
	if _, err := s.settleGroup(ctx, txnRef, gatewayRef(params), success); err != nil {
		return s.internalError(ctx, err, txnRef)
	}
	return NotificationResult{RspCode: RspCodeSuccess, Message: "Confirm success"}
}

// ProcessReturn handles the browser redirect back from the gateway. It runs
// the same settlement as the IPN path, so whichever callback arrives first
// settles and the other finds nothing left to do.
func (s *service) ProcessReturn(ctx context.Context, params map[string]string) (*ReturnResult, error) {
	if !s.verify.ValidateSignature(params) {
		return nil, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "callback signature is invalid")
	}

	txnRef := s.verify.TxnRef(params)
	group, err := s.repo.ListByCheckoutGroup(ctx, txnRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading checkout group")
	}
	if len(group) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no orders for this payment reference")
	}

	responseCode := s.verify.ResponseCode(params)
	success := responseCode == RspCodeSuccess
	settled, err := s.settleGroup(ctx, txnRef, gatewayRef(params), success)
	if err != nil {
		return nil, err
	}

	result := &ReturnResult{
		Success:      success,
		ResponseCode: responseCode,
		TxnRef:       txnRef,
		Amount:       callbackAmount(params),
	}
	for _, order := range group {
		result.OrderIDs = append(result.OrderIDs, order.ID)
	}
	switch {
	case settled == 0:
		result.Message = "Payment already recorded"
	case success:
		result.Message = "Payment successful"
	default:
		result.Message = "Payment failed or was cancelled"
	}
	return result, nil
}

// settleGroup applies the gateway verdict to every still-unpaid order in the
// checkout group, all inside one transaction. The Pending -> settled payment
// flip is a conditional update, so a racing duplicate callback loses the flip
// and moves no money.
func (s *service) settleGroup(ctx context.Context, txnRef, gatewayRef string, success bool) (int, error) {
	settled := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		group, err := repo.ListByCheckoutGroup(ctx, txnRef)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading checkout group")
		}
		for i := range group {
			order := &group[i]
			if order.PaymentStatus != enums.PaymentStatusPending {
				continue
			}

			target := enums.PaymentStatusPaid
			if !success {
				target = enums.PaymentStatusFailed
			}
			ok, err := repo.SetOrderPaymentStatus(ctx, order.ID, enums.PaymentStatusPending, target)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settling payment status")
			}
			if !ok {
				// Another callback claimed this order between our read and
				// the update.
				continue
			}

			if success {
				err = s.settlePaid(ctx, tx, repo, order, gatewayRef)
			} else {
				err = s.settleFailed(ctx, repo, order, gatewayRef)
			}
			if err != nil {
				return err
			}
			settled++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return settled, nil
}

// settlePaid records the gateway outcome and holds the funds in escrow. The
// caller has already won the Pending -> Paid flip.
func (s *service) settlePaid(ctx context.Context, tx *gorm.DB, repo orders.Repository, order *models.Order, gatewayRef string) error {
	completedAt := s.now()
	if err := repo.SetPaymentOutcome(ctx, order.ID, enums.PaymentStatusPaid, &gatewayRef, &completedAt); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payment outcome")
	}
	return s.escrow.Hold(ctx, tx, order.TotalAmount, order.ID, order.UserID)
}

// settleFailed cancels the order and puts its reserved stock back. Restock
// only happens when this transaction wins the Pending -> Cancelled flip; an
// order the customer already cancelled had its stock restored there.
func (s *service) settleFailed(ctx context.Context, repo orders.Repository, order *models.Order, gatewayRef string) error {
	if err := repo.SetPaymentOutcome(ctx, order.ID, enums.PaymentStatusFailed, &gatewayRef, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payment outcome")
	}
	cancelled, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancelling order")
	}
	if !cancelled {
		return nil
	}
	for _, item := range order.Items {
		if err := repo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restoring stock")
		}
	}
	return nil
}

func (s *service) internalError(ctx context.Context, err error, txnRef string) NotificationResult {
	if s.logg != nil {
		s.logg.Error(ctx, fmt.Sprintf("settling checkout %s", txnRef), err)
	}
	return NotificationResult{RspCode: RspCodeInternalError, Message: "Unknown error"}
}

func countUnpaid(group []models.Order) int {
	unpaid := 0
	for _, order := range group {
		if order.PaymentStatus == enums.PaymentStatusPending {
			unpaid++
		}
	}
	return unpaid
}

// gatewayRef prefers the gateway's own transaction number; callbacks without
// one fall back to our reference.
func gatewayRef(params map[string]string) string {
	if ref := params["vnp_TransactionNo"]; ref != "" {
		return ref
	}
	return params["vnp_TxnRef"]
}

// callbackAmount converts the gateway's x100 integer amount back to currency.
func callbackAmount(params map[string]string) decimal.Decimal {
	raw := params["vnp_Amount"]
	if raw == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount.Div(decimal.NewFromInt(100))
}
