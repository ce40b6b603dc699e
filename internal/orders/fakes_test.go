package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type escrowCall struct {
	kind          string
	amount        decimal.Decimal
	orderID       uuid.UUID
	beneficiaryID uuid.UUID
}

type fakeEscrow struct {
	calls []escrowCall
	err   error
}

func (f *fakeEscrow) ReleaseToShop(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, shopOwnerID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, escrowCall{kind: "release", amount: amount, orderID: orderID, beneficiaryID: shopOwnerID})
	return nil
}

func (f *fakeEscrow) RefundToCustomer(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, customerID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, escrowCall{kind: "refund", amount: amount, orderID: orderID, beneficiaryID: customerID})
	return nil
}

type fakeRepo struct {
	orders   map[uuid.UUID]*models.Order
	payments map[uuid.UUID]*models.Payment
	stock    map[uuid.UUID]int
	shops    map[uuid.UUID]*models.Shop

	// onFind fires once after the next FindByID clones its row, letting a
	// test mutate the stored order between a read and the conditional
	// update that follows it.
	onFind func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:   make(map[uuid.UUID]*models.Order),
		payments: make(map[uuid.UUID]*models.Payment),
		stock:    make(map[uuid.UUID]int),
		shops:    make(map[uuid.UUID]*models.Shop),
	}
}

func (f *fakeRepo) addShop(shop *models.Shop) {
	f.shops[shop.ID] = shop
}

func (f *fakeRepo) addOrder(order *models.Order) {
	f.orders[order.ID] = order
	f.payments[order.ID] = &models.Payment{
		ID:      uuid.New(),
		OrderID: order.ID,
		UserID:  order.UserID,
		Amount:  order.TotalAmount,
		Method:  order.PaymentMethod,
		Status:  order.PaymentStatus,
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	for i := range items {
		order := f.orders[items[i].OrderID]
		order.Items = append(order.Items, items[i])
	}
	return nil
}

func (f *fakeRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	payment.ID = uuid.New()
	f.payments[payment.OrderID] = payment
	return payment, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	clone.Payment = f.payments[id]
	if f.onFind != nil {
		hook := f.onFind
		f.onFind = nil
		hook()
	}
	return &clone, nil
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return f.filter(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (f *fakeRepo) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Order, error) {
	return f.filter(func(o *models.Order) bool { return o.ShopID == shopID }), nil
}

func (f *fakeRepo) ListByCheckoutGroup(ctx context.Context, groupID string) ([]models.Order, error) {
	return f.filter(func(o *models.Order) bool {
		return o.CheckoutGroupID != nil && *o.CheckoutGroupID == groupID
	}), nil
}

func (f *fakeRepo) ListReadyForPickup(ctx context.Context) ([]models.Order, error) {
	return f.filter(func(o *models.Order) bool {
		return o.Status == enums.OrderStatusReadyForPickup && o.ShipperID == nil
	}), nil
}

func (f *fakeRepo) ListByShipper(ctx context.Context, shipperID uuid.UUID) ([]models.Order, error) {
	return f.filter(func(o *models.Order) bool {
		return o.ShipperID != nil && *o.ShipperID == shipperID
	}), nil
}

func (f *fakeRepo) filter(keep func(*models.Order) bool) []models.Order {
	var out []models.Order
	for _, order := range f.orders {
		if keep(order) {
			out = append(out, *order)
		}
	}
	return out
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

func (f *fakeRepo) SetOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentStatus) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok || order.PaymentStatus != from {
		return false, nil
	}
	order.PaymentStatus = to
	return true, nil
}

func (f *fakeRepo) SetPaymentOutcome(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, transactionRef *string, completedAt *time.Time) error {
	payment := f.payments[orderID]
	payment.Status = status
	if transactionRef != nil {
		payment.TransactionRef = transactionRef
	}
	if completedAt != nil {
		payment.CompletedAt = completedAt
	}
	return nil
}

func (f *fakeRepo) AssignShipper(ctx context.Context, orderID, shipperID uuid.UUID) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok || order.Status != enums.OrderStatusReadyForPickup || order.ShipperID != nil {
		return false, nil
	}
	id := shipperID
	order.ShipperID = &id
	order.Status = enums.OrderStatusShipping
	return true, nil
}

func (f *fakeRepo) MarkDelivered(ctx context.Context, orderID, shipperID uuid.UUID) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok || order.Status != enums.OrderStatusShipping || order.ShipperID == nil || *order.ShipperID != shipperID {
		return false, nil
	}
	order.Status = enums.OrderStatusDelivered
	return true, nil
}

func (f *fakeRepo) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	f.stock[productID] += qty
	return nil
}

func (f *fakeRepo) FindShopByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	shop, ok := f.shops[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return shop, nil
}

func (f *fakeRepo) FindShopByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error) {
	for _, shop := range f.shops {
		if shop.OwnerID == ownerID {
			return shop, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
