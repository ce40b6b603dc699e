package refunds

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

type fakeRepo struct {
	requests map[uuid.UUID]*models.RefundRequest
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{requests: make(map[uuid.UUID]*models.RefundRequest)}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, request *models.RefundRequest) (*models.RefundRequest, error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	f.requests[request.ID] = request
	return request, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.RefundRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return request, nil
}

func (f *fakeRepo) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.RefundRequest, error) {
	for _, request := range f.requests {
		if request.OrderID == orderID {
			return request, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListByStatus(ctx context.Context, status enums.RefundStatus, limit, offset int) ([]models.RefundRequest, error) {
	var requests []models.RefundRequest
	for _, request := range f.requests {
		if request.Status == status {
			requests = append(requests, *request)
		}
	}
	return requests, nil
}

func (f *fakeRepo) Update(ctx context.Context, request *models.RefundRequest) error {
	f.requests[request.ID] = request
	return nil
}

type fakeOrdersRepo struct {
	orders map[uuid.UUID]*models.Order
	shops  map[uuid.UUID]*models.Shop
	stock  map[uuid.UUID]int
}

func newFakeOrdersRepo() *fakeOrdersRepo {
	return &fakeOrdersRepo{
		orders: make(map[uuid.UUID]*models.Order),
		shops:  make(map[uuid.UUID]*models.Shop),
		stock:  make(map[uuid.UUID]int),
	}
}

func (f *fakeOrdersRepo) addShop() *models.Shop {
	shop := &models.Shop{ID: uuid.New(), OwnerID: uuid.New(), ShopName: "Sweet Layers"}
	f.shops[shop.ID] = shop
	return shop
}

func (f *fakeOrdersRepo) addOrder(userID, shopID uuid.UUID, status enums.OrderStatus, paymentStatus enums.PaymentStatus, total int64) *models.Order {
	productID := uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		ShopID:        shopID,
		TotalAmount:   decimal.NewFromInt(total),
		Status:        status,
		PaymentMethod: enums.PaymentMethodWallet,
		PaymentStatus: paymentStatus,
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: productID, Quantity: 3},
		},
	}
	f.orders[order.ID] = order
	return order
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (f *fakeOrdersRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
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
	return nil
}

func (f *fakeOrdersRepo) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	f.stock[productID] += qty
	return nil
}

func (f *fakeOrdersRepo) FindShopByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	shop, ok := f.shops[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return shop, nil
}

func (f *fakeOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (f *fakeOrdersRepo) CreateItems(ctx context.Context, items []models.OrderItem) error { return nil }

func (f *fakeOrdersRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	return payment, nil
}

func (f *fakeOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrdersRepo) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeOrdersRepo) ListByCheckoutGroup(ctx context.Context, groupID string) ([]models.Order, error) {
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

func (f *fakeOrdersRepo) FindShopByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error) {
	return nil, gorm.ErrRecordNotFound
}

type escrowCall struct {
	kind          string
	amount        decimal.Decimal
	orderID       uuid.UUID
	beneficiaryID uuid.UUID
}

type fakeEscrow struct {
	calls []escrowCall
}

func (f *fakeEscrow) ReleaseToShop(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, shopOwnerID uuid.UUID) error {
	f.calls = append(f.calls, escrowCall{kind: "release", amount: amount, orderID: orderID, beneficiaryID: shopOwnerID})
	return nil
}

func (f *fakeEscrow) RefundToCustomer(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, customerID uuid.UUID) error {
	f.calls = append(f.calls, escrowCall{kind: "refund", amount: amount, orderID: orderID, beneficiaryID: customerID})
	return nil
}
