package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/internal/orders"
	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type paymentOutcome struct {
	status         enums.PaymentStatus
	transactionRef *string
	completedAt    *time.Time
}

// fakeOrdersRepo holds orders keyed by checkout group and mirrors the stock
// counters the failure path restores into. With stalePaymentReads set, list
// results report every payment as still Pending while the stored rows keep
// their real state, mimicking a snapshot read racing another settlement.
type fakeOrdersRepo struct {
	orders            map[uuid.UUID]*models.Order
	stock             map[uuid.UUID]int
	outcomes          map[uuid.UUID]paymentOutcome
	stalePaymentReads bool
}

func newFakeOrdersRepo() *fakeOrdersRepo {
	return &fakeOrdersRepo{
		orders:   make(map[uuid.UUID]*models.Order),
		stock:    make(map[uuid.UUID]int),
		outcomes: make(map[uuid.UUID]paymentOutcome),
	}
}

func (f *fakeOrdersRepo) addOrder(groupID string, total int64, paymentStatus enums.PaymentStatus) *models.Order {
	productID := uuid.New()
	f.stock[productID] = 0
	order := &models.Order{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		ShopID:          uuid.New(),
		TotalAmount:     decimal.NewFromInt(total),
		Status:          enums.OrderStatusPending,
		PaymentMethod:   enums.PaymentMethodGateway,
		PaymentStatus:   paymentStatus,
		CheckoutGroupID: &groupID,
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: productID, Quantity: 2},
		},
	}
	f.orders[order.ID] = order
	return order
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeOrdersRepo) ListByCheckoutGroup(ctx context.Context, groupID string) ([]models.Order, error) {
	var group []models.Order
	for _, order := range f.orders {
		if order.CheckoutGroupID != nil && *order.CheckoutGroupID == groupID {
			clone := *order
			if f.stalePaymentReads {
				clone.PaymentStatus = enums.PaymentStatusPending
			}
			group = append(group, clone)
		}
	}
	return group, nil
}

func (f *fakeOrdersRepo) SetOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentStatus) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok || order.PaymentStatus != from {
		return false, nil
	}
	order.PaymentStatus = to
	return true, nil
}

func (f *fakeOrdersRepo) SetPaymentOutcome(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, transactionRef *string, completedAt *time.Time) error {
	f.outcomes[orderID] = paymentOutcome{status: status, transactionRef: transactionRef, completedAt: completedAt}
	return nil
}

func (f *fakeOrdersRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

func (f *fakeOrdersRepo) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	f.stock[productID] += qty
	return nil
}

func (f *fakeOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (f *fakeOrdersRepo) CreateItems(ctx context.Context, items []models.OrderItem) error { return nil }

func (f *fakeOrdersRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	return payment, nil
}

func (f *fakeOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrdersRepo) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrdersRepo) ListReadyForPickup(ctx context.Context) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrdersRepo) ListByShipper(ctx context.Context, shipperID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrdersRepo) AssignShipper(ctx context.Context, orderID, shipperID uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeOrdersRepo) MarkDelivered(ctx context.Context, orderID, shipperID uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeOrdersRepo) FindShopByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrdersRepo) FindShopByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error) {
	return nil, gorm.ErrRecordNotFound
}

// fakeVerifier mimics the gateway client: signature verdict is fixed, the
// reference and response code come straight from the params.
type fakeVerifier struct {
	valid bool
}

func (f *fakeVerifier) ValidateSignature(params map[string]string) bool { return f.valid }

func (f *fakeVerifier) ResponseCode(params map[string]string) string {
	return params["vnp_ResponseCode"]
}

func (f *fakeVerifier) TxnRef(params map[string]string) string {
	return params["vnp_TxnRef"]
}

type heldFunds struct {
	amount  decimal.Decimal
	orderID uuid.UUID
	userID  uuid.UUID
}

type fakeEscrow struct {
	holds []heldFunds
}

func (f *fakeEscrow) Hold(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, customerID uuid.UUID) error {
	f.holds = append(f.holds, heldFunds{amount: amount, orderID: orderID, userID: customerID})
	return nil
}
