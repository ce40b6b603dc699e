package refunds

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
)

type fixture struct {
	svc        Service
	repo       *fakeRepo
	ordersRepo *fakeOrdersRepo
	escrow     *fakeEscrow
	customerID uuid.UUID
	staffID    uuid.UUID
	shop       *models.Shop
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       newFakeRepo(),
		ordersRepo: newFakeOrdersRepo(),
		escrow:     &fakeEscrow{},
		customerID: uuid.New(),
		staffID:    uuid.New(),
	}
	f.shop = f.ordersRepo.addShop()
	svc, err := NewService(stubTxRunner{}, f.repo, f.ordersRepo, f.escrow, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) deliveredOrder() *models.Order {
	return f.ordersRepo.addOrder(f.customerID, f.shop.ID, enums.OrderStatusDelivered, enums.PaymentStatusPaid, 530000)
}

func (f *fixture) pendingRequest(t *testing.T, order *models.Order) *models.RefundRequest {
	t.Helper()
	request, err := f.svc.RequestRefund(context.Background(), RequestRefundInput{
		CustomerID: f.customerID,
		OrderID:    order.ID,
		Reason:     "Damaged on arrival",
	})
	if err != nil {
		t.Fatalf("RequestRefund: %v", err)
	}
	return request
}

func TestRequestRefundFreezesOrder(t *testing.T) {
	f := newFixture(t)
	order := f.deliveredOrder()

	request := f.pendingRequest(t, order)

	if request.Status != enums.RefundStatusPending {
		t.Errorf("request status = %q, want Pending", request.Status)
	}
	if order.Status != enums.OrderStatusRefundRequested {
		t.Errorf("order status = %q, want RefundRequested", order.Status)
	}
}

func TestRequestRefundRequiresDeliveredOrder(t *testing.T) {
	f := newFixture(t)
	order := f.ordersRepo.addOrder(f.customerID, f.shop.ID, enums.OrderStatusShipping, enums.PaymentStatusPaid, 530000)

	_, err := f.svc.RequestRefund(context.Background(), RequestRefundInput{
		CustomerID: f.customerID,
		OrderID:    order.ID,
		Reason:     "Damaged on arrival",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRequestRefundRequiresPaidOrder(t *testing.T) {
	f := newFixture(t)
	order := f.ordersRepo.addOrder(f.customerID, f.shop.ID, enums.OrderStatusDelivered, enums.PaymentStatusPending, 530000)

	_, err := f.svc.RequestRefund(context.Background(), RequestRefundInput{
		CustomerID: f.customerID,
		OrderID:    order.ID,
		Reason:     "Damaged on arrival",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRequestRefundRejectsForeignOrder(t *testing.T) {
	f := newFixture(t)
	order := f.ordersRepo.addOrder(uuid.New(), f.shop.ID, enums.OrderStatusDelivered, enums.PaymentStatusPaid, 530000)

	_, err := f.svc.RequestRefund(context.Background(), RequestRefundInput{
		CustomerID: f.customerID,
		OrderID:    order.ID,
		Reason:     "Damaged on arrival",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSecondRequestForSameOrderRejected(t *testing.T) {
	f := newFixture(t)
	order := f.deliveredOrder()
	f.pendingRequest(t, order)

	// Put the order back to Delivered to isolate the one-per-order guard.
	order.Status = enums.OrderStatusDelivered

	_, err := f.svc.RequestRefund(context.Background(), RequestRefundInput{
		CustomerID: f.customerID,
		OrderID:    order.ID,
		Reason:     "Still damaged",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestApproveRefundReturnsMoneyAndStock(t *testing.T) {
	f := newFixture(t)
	order := f.deliveredOrder()
	request := f.pendingRequest(t, order)

	note := "Photos confirm the damage"
	resolved, err := f.svc.ResolveRefund(context.Background(), ResolveRefundInput{
		StaffID:   f.staffID,
		RequestID: request.ID,
		Approve:   true,
		StaffNote: &note,
	})
	if err != nil {
		t.Fatalf("ResolveRefund: %v", err)
	}

	if resolved.Status != enums.RefundStatusApproved {
		t.Errorf("request status = %q, want Approved", resolved.Status)
	}
	if resolved.ResolvedBy == nil || *resolved.ResolvedBy != f.staffID {
		t.Errorf("resolution must record the staff member")
	}
	if resolved.ResolvedAt == nil {
		t.Errorf("resolution must record the time")
	}
	if order.Status != enums.OrderStatusReturned {
		t.Errorf("order status = %q, want Returned", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusRefunded {
		t.Errorf("payment status = %q, want Refunded", order.PaymentStatus)
	}

	if len(f.escrow.calls) != 1 {
		t.Fatalf("expected one escrow movement, got %d", len(f.escrow.calls))
	}
	call := f.escrow.calls[0]
	if call.kind != "refund" || call.beneficiaryID != f.customerID {
		t.Errorf("escrow must refund the customer, got %+v", call)
	}
	if !call.amount.Equal(decimal.NewFromInt(530000)) {
		t.Errorf("refund amount = %s, want the full order total", call.amount)
	}

	productID := order.Items[0].ProductID
	if f.ordersRepo.stock[productID] != 3 {
		t.Errorf("restored stock = %d, want 3", f.ordersRepo.stock[productID])
	}
}

func TestRejectRefundPaysShopAndKeepsStock(t *testing.T) {
	f := newFixture(t)
	order := f.deliveredOrder()
	request := f.pendingRequest(t, order)

	resolved, err := f.svc.ResolveRefund(context.Background(), ResolveRefundInput{
		StaffID:   f.staffID,
		RequestID: request.ID,
		Approve:   false,
	})
	if err != nil {
		t.Fatalf("ResolveRefund: %v", err)
	}

	if resolved.Status != enums.RefundStatusRejected {
		t.Errorf("request status = %q, want Rejected", resolved.Status)
	}
	if order.Status != enums.OrderStatusCompleted {
		t.Errorf("order status = %q, want Completed", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusPaid {
		t.Errorf("payment status = %q, want Paid untouched", order.PaymentStatus)
	}

	if len(f.escrow.calls) != 1 {
		t.Fatalf("expected one escrow movement, got %d", len(f.escrow.calls))
	}
	call := f.escrow.calls[0]
	if call.kind != "release" || call.beneficiaryID != f.shop.OwnerID {
		t.Errorf("escrow must pay the shop owner, got %+v", call)
	}

	productID := order.Items[0].ProductID
	if f.ordersRepo.stock[productID] != 0 {
		t.Errorf("rejected refund must not restock, got %d", f.ordersRepo.stock[productID])
	}
}

func TestResolveIsTerminal(t *testing.T) {
	f := newFixture(t)
	order := f.deliveredOrder()
	request := f.pendingRequest(t, order)

	if _, err := f.svc.ResolveRefund(context.Background(), ResolveRefundInput{
		StaffID:   f.staffID,
		RequestID: request.ID,
		Approve:   true,
	}); err != nil {
		t.Fatalf("first resolve: %v", err)
	}

	_, err := f.svc.ResolveRefund(context.Background(), ResolveRefundInput{
		StaffID:   f.staffID,
		RequestID: request.ID,
		Approve:   false,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(f.escrow.calls) != 1 {
		t.Errorf("second resolution must not move escrow again")
	}
}

func TestApproveRacingSettlementMovesNoMoney(t *testing.T) {
	f := newFixture(t)
	order := f.deliveredOrder()
	request := f.pendingRequest(t, order)

	// Another transaction already flipped the payment; the approval must
	// lose the conditional update and leave escrow alone.
	order.PaymentStatus = enums.PaymentStatusRefunded

	_, err := f.svc.ResolveRefund(context.Background(), ResolveRefundInput{
		StaffID:   f.staffID,
		RequestID: request.ID,
		Approve:   true,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(f.escrow.calls) != 0 {
		t.Errorf("losing approval must not move escrow, got %+v", f.escrow.calls)
	}
	if f.ordersRepo.stock[order.Items[0].ProductID] != 0 {
		t.Errorf("losing approval must not restock")
	}
	if request.Status != enums.RefundStatusPending {
		t.Errorf("request status = %q, want Pending untouched", request.Status)
	}
}

func TestRejectRacingOrderMoveMovesNoMoney(t *testing.T) {
	f := newFixture(t)
	order := f.deliveredOrder()
	request := f.pendingRequest(t, order)

	order.Status = enums.OrderStatusReturned

	_, err := f.svc.ResolveRefund(context.Background(), ResolveRefundInput{
		StaffID:   f.staffID,
		RequestID: request.ID,
		Approve:   false,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(f.escrow.calls) != 0 {
		t.Errorf("losing rejection must not pay the shop, got %+v", f.escrow.calls)
	}
}

func TestGetPendingRefunds(t *testing.T) {
	f := newFixture(t)
	order := f.deliveredOrder()
	f.pendingRequest(t, order)

	pending, err := f.svc.GetPendingRefunds(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("GetPendingRefunds: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(pending))
	}
}
