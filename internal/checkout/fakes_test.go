package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/internal/gateway"
	"github.com/minhtran-dev/cakemarket-backend/internal/orders"
	"github.com/minhtran-dev/cakemarket-backend/internal/shipping"
	"github.com/minhtran-dev/cakemarket-backend/internal/wallet"
	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
	pkgerrors "github.com/minhtran-dev/cakemarket-backend/pkg/errors"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeRepo struct {
	cartItems []models.CartItem
	products  map[uuid.UUID]*models.Product
	addresses map[uuid.UUID]*models.Address
	shops     map[uuid.UUID]*models.Shop
	deleted   []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products:  make(map[uuid.UUID]*models.Product),
		addresses: make(map[uuid.UUID]*models.Address),
		shops:     make(map[uuid.UUID]*models.Shop),
	}
}

func (f *fakeRepo) addShop(name string) *models.Shop {
	shop := &models.Shop{ID: uuid.New(), OwnerID: uuid.New(), ShopName: name, IsActive: true}
	f.shops[shop.ID] = shop
	return shop
}

func (f *fakeRepo) addProduct(shopID uuid.UUID, name string, price int64, stock int) *models.Product {
	product := &models.Product{
		ID:       uuid.New(),
		ShopID:   shopID,
		Name:     name,
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		IsActive: true,
	}
	f.products[product.ID] = product
	return product
}

func (f *fakeRepo) addCartItem(userID uuid.UUID, product *models.Product, qty int) *models.CartItem {
	item := models.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: product.ID,
		Quantity:  qty,
		Product:   product,
	}
	f.cartItems = append(f.cartItems, item)
	return &f.cartItems[len(f.cartItems)-1]
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) ListCartItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	for _, item := range f.cartItems {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeRepo) ListCartItemsByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]models.CartItem, error) {
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var items []models.CartItem
	for _, item := range f.cartItems {
		if item.UserID == userID && wanted[item.ID] {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeRepo) DeleteCartItems(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	remove := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	kept := f.cartItems[:0]
	for _, item := range f.cartItems {
		if item.UserID == userID && remove[item.ID] {
			f.deleted = append(f.deleted, item.ID)
			continue
		}
		kept = append(kept, item)
	}
	f.cartItems = kept
	return nil
}

func (f *fakeRepo) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	product, ok := f.products[productID]
	if !ok || product.Stock < qty {
		return false, nil
	}
	product.Stock -= qty
	return true, nil
}

func (f *fakeRepo) FindAddress(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	address, ok := f.addresses[id]
	if !ok || address.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return address, nil
}

func (f *fakeRepo) FindShop(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	shop, ok := f.shops[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return shop, nil
}

// fakeOrdersRepo records creations; the listing and mutation methods the
// checkout flow never touches return empty results.
type fakeOrdersRepo struct {
	orders   []*models.Order
	items    []models.OrderItem
	payments []*models.Payment
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return f }

func (f *fakeOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	f.orders = append(f.orders, order)
	return order, nil
}

func (f *fakeOrdersRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeOrdersRepo) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	f.payments = append(f.payments, payment)
	return payment, nil
}

func (f *fakeOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	for _, order := range f.orders {
		if order.ID == id {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
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

func (f *fakeOrdersRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	return true, nil
}

func (f *fakeOrdersRepo) SetOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentStatus) (bool, error) {
	return true, nil
}

func (f *fakeOrdersRepo) SetPaymentOutcome(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, transactionRef *string, completedAt *time.Time) error {
	return nil
}

func (f *fakeOrdersRepo) AssignShipper(ctx context.Context, orderID, shipperID uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeOrdersRepo) MarkDelivered(ctx context.Context, orderID, shipperID uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeOrdersRepo) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return nil
}

func (f *fakeOrdersRepo) FindShopByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeOrdersRepo) FindShopByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeWallet struct {
	balance decimal.Decimal
	debits  []wallet.EntryInput
}

func (f *fakeWallet) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeWallet) DebitTx(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error) {
	if f.balance.LessThan(input.Amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance does not cover the amount")
	}
	f.balance = f.balance.Sub(input.Amount)
	f.debits = append(f.debits, input)
	return &models.WalletTransaction{
		WalletOwnerID: input.OwnerID,
		Amount:        input.Amount.Neg(),
		BalanceAfter:  f.balance,
	}, nil
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

type quoteCall struct {
	route      shipping.Route
	weightGram int
	value      decimal.Decimal
}

type fakeQuoter struct {
	fee   decimal.Decimal
	calls []quoteCall
}

func (f *fakeQuoter) QuoteFee(ctx context.Context, route shipping.Route, weightGram int, value decimal.Decimal) shipping.Quote {
	f.calls = append(f.calls, quoteCall{route: route, weightGram: weightGram, value: value})
	return shipping.Quote{Fee: f.fee, Provider: enums.ShippingProviderFixed}
}

type fakeGateway struct {
	requests []gateway.RedirectRequest
}

func (f *fakeGateway) BuildRedirectURL(req gateway.RedirectRequest) string {
	f.requests = append(f.requests, req)
	return "https://pay.example.com/redirect?vnp_TxnRef=" + req.TxnRef
}
