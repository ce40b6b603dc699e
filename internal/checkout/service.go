package checkout

import (
	"context"
	"errors"
	"fmt"
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
	"github.com/minhtran-dev/cakemarket-backend/pkg/logger"
	"github.com/minhtran-dev/cakemarket-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type walletDebiter interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	DebitTx(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error)
}

type escrowHolder interface {
	Hold(ctx context.Context, tx *gorm.DB, amount decimal.Decimal, orderID, customerID uuid.UUID) error
}

type redirectBuilder interface {
	BuildRedirectURL(req gateway.RedirectRequest) string
}

// CreateOrderInput is one checkout request. An empty CartItemIDs means the
// whole cart; a nil AddressID quotes shipping with the fixed fallback fee.
type CreateOrderInput struct {
	UserID        uuid.UUID
	CartItemIDs   []uuid.UUID
	AddressID     *uuid.UUID
	PaymentMethod enums.PaymentMethod
	Note          *string
	ClientIP      string
}

// OrderSummary is the per-shop slice of a checkout result.
type OrderSummary struct {
	OrderID          uuid.UUID
	ShopID           uuid.UUID
	ShopName         string
	ItemsAmount      decimal.Decimal
	ShippingFee      decimal.Decimal
	TotalAmount      decimal.Decimal
	ShippingProvider enums.ShippingProvider
}

// CreateOrderResult reports what a checkout produced. Wallet checkouts carry
// the remaining balance; gateway checkouts carry the redirect URL and the
// shared checkout group id the callback will reference.
type CreateOrderResult struct {
	Orders           []OrderSummary
	GrandTotal       decimal.Decimal
	PaymentMethod    enums.PaymentMethod
	CheckoutGroupID  *string
	PaymentURL       string
	RemainingBalance *decimal.Decimal
}

// Service is the order factory: it splits a cart checkout into one order per
// shop and settles or defers payment depending on the method.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
}

type service struct {
	tx             txRunner
	repo           Repository
	orders         orders.Repository
	wallets        walletDebiter
	escrow         escrowHolder
	quoter         shipping.Quoter
	gateway        redirectBuilder
	metrics        *metrics.SettlementMetrics
	logg           *logger.Logger
	itemWeightGram int
	now            func() time.Time
}

// NewService wires the checkout service. itemWeightGram is the per-unit
// weight fed into shipping quotes.
func NewService(
	tx txRunner,
	repo Repository,
	ordersRepo orders.Repository,
	wallets walletDebiter,
	escrowSvc escrowHolder,
	quoter shipping.Quoter,
	redirects redirectBuilder,
	mtr *metrics.SettlementMetrics,
	logg *logger.Logger,
	itemWeightGram int,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if wallets == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if escrowSvc == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	if quoter == nil {
		return nil, fmt.Errorf("shipping quoter required")
	}
	if redirects == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if itemWeightGram <= 0 {
		itemWeightGram = 500
	}
	return &service{
		tx:             tx,
		repo:           repo,
		orders:         ordersRepo,
		wallets:        wallets,
		escrow:         escrowSvc,
		quoter:         quoter,
		gateway:        redirects,
		metrics:        mtr,
		logg:           logg,
		itemWeightGram: itemWeightGram,
		now:            time.Now,
	}, nil
}

type shopGroup struct {
	shop     *models.Shop
	items    []models.CartItem
	subtotal decimal.Decimal
	quantity int
}

// CreateOrder runs the whole checkout in a single transaction: validation,
// per-shop splitting, shipping quotes, order and payment creation, stock
// decrements, and for wallet checkouts the debit plus per-order escrow hold.
// Any failure rolls the entire checkout back; no partial order set survives.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	started := s.now()

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported payment method %q", input.PaymentMethod)
	}

	var result *CreateOrderResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		result, txErr = s.createOrders(ctx, tx, input)
		return txErr
	})
	if err != nil {
		s.metrics.IncCheckoutOrders(input.PaymentMethod.String(), "failed", 1)
		return nil, err
	}

	if input.PaymentMethod == enums.PaymentMethodGateway {
		result.PaymentURL = s.gateway.BuildRedirectURL(gateway.RedirectRequest{
			TxnRef:    *result.CheckoutGroupID,
			Amount:    result.GrandTotal,
			OrderInfo: fmt.Sprintf("Payment for checkout %s", *result.CheckoutGroupID),
			IPAddress: input.ClientIP,
		})
	}

	s.metrics.ObserveCheckout(input.PaymentMethod.String(), s.now().Sub(started))
	s.metrics.IncCheckoutOrders(input.PaymentMethod.String(), "created", len(result.Orders))
	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("checkout created %d order(s) totalling %s", len(result.Orders), result.GrandTotal))
	}
	return result, nil
}

func (s *service) createOrders(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (*CreateOrderResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for checkout")
	}
	repo := s.repo.WithTx(tx)
	ordersRepo := s.orders.WithTx(tx)

	items, err := s.loadCartItems(ctx, repo, input)
	if err != nil {
		return nil, err
	}

	subtotal, err := validateItems(items)
	if err != nil {
		return nil, err
	}

	// Early balance check against the item subtotal alone. Shipping fees are
	// not known yet; the conditional debit after fee calculation is the
	// authoritative check.
	if input.PaymentMethod == enums.PaymentMethodWallet {
		balance, balErr := s.wallets.GetBalance(ctx, input.UserID)
		if balErr != nil {
			return nil, balErr
		}
		if balance.LessThan(subtotal) {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance does not cover the cart")
		}
	}

	address, err := s.resolveAddress(ctx, repo, input)
	if err != nil {
		return nil, err
	}

	groups, err := s.groupByShop(ctx, repo, items)
	if err != nil {
		return nil, err
	}

	var checkoutGroupID *string
	if input.PaymentMethod == enums.PaymentMethodGateway {
		groupID := uuid.NewString()
		checkoutGroupID = &groupID
	}

	result := &CreateOrderResult{
		PaymentMethod:   input.PaymentMethod,
		CheckoutGroupID: checkoutGroupID,
		GrandTotal:      decimal.Zero,
	}

	createdIDs := make([]uuid.UUID, 0, len(groups))
	purchasedCartIDs := make([]uuid.UUID, 0, len(items))
	for _, group := range groups {
		summary, orderErr := s.createShopOrder(ctx, repo, ordersRepo, input, group, address, checkoutGroupID)
		if orderErr != nil {
			return nil, orderErr
		}
		result.Orders = append(result.Orders, *summary)
		result.GrandTotal = result.GrandTotal.Add(summary.TotalAmount)
		createdIDs = append(createdIDs, summary.OrderID)
		for _, item := range group.items {
			purchasedCartIDs = append(purchasedCartIDs, item.ID)
		}
	}

	if input.PaymentMethod == enums.PaymentMethodWallet {
		entry, debitErr := s.wallets.DebitTx(ctx, tx, wallet.EntryInput{
			OwnerID:         input.UserID,
			WalletType:      enums.WalletTypeUser,
			Amount:          result.GrandTotal,
			TransactionType: enums.WalletTransactionTypePurchase,
			Description:     fmt.Sprintf("Payment for %d order(s)", len(result.Orders)),
		})
		if debitErr != nil {
			return nil, debitErr
		}
		remaining := entry.BalanceAfter
		result.RemainingBalance = &remaining

		for i, orderID := range createdIDs {
			if holdErr := s.escrow.Hold(ctx, tx, result.Orders[i].TotalAmount, orderID, input.UserID); holdErr != nil {
				return nil, holdErr
			}
		}
	}

	if err := repo.DeleteCartItems(ctx, input.UserID, purchasedCartIDs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing purchased cart items")
	}
	return result, nil
}

func (s *service) loadCartItems(ctx context.Context, repo Repository, input CreateOrderInput) ([]models.CartItem, error) {
	if len(input.CartItemIDs) > 0 {
		items, err := repo.ListCartItemsByIDs(ctx, input.UserID, input.CartItemIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading selected cart items")
		}
		if len(items) != len(input.CartItemIDs) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "some selected cart items are not in the cart")
		}
		return items, nil
	}

	items, err := repo.ListCartItems(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	return items, nil
}

func validateItems(items []models.CartItem) (decimal.Decimal, error) {
	subtotal := decimal.Zero
	for _, item := range items {
		if item.Product == nil {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeDependency, "cart item is missing its product")
		}
		if item.Quantity <= 0 {
			return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid quantity for %q", item.Product.Name)
		}
		if !item.Product.IsActive {
			return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "product %q is no longer available", item.Product.Name)
		}
		if item.Product.Stock < item.Quantity {
			return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
				"insufficient stock for %q: requested %d, available %d",
				item.Product.Name, item.Quantity, item.Product.Stock)
		}
		subtotal = subtotal.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal, nil
}

func (s *service) resolveAddress(ctx context.Context, repo Repository, input CreateOrderInput) (*models.Address, error) {
	if input.AddressID == nil {
		return nil, nil
	}
	address, err := repo.FindAddress(ctx, *input.AddressID, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shipping address")
	}
	return address, nil
}

// groupByShop partitions cart items by the owning shop, preserving the cart's
// enumeration order.
func (s *service) groupByShop(ctx context.Context, repo Repository, items []models.CartItem) ([]*shopGroup, error) {
	var groups []*shopGroup
	index := make(map[uuid.UUID]*shopGroup)
	for _, item := range items {
		group, ok := index[item.Product.ShopID]
		if !ok {
			shop, err := repo.FindShop(ctx, item.Product.ShopID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "shop for product %q not found", item.Product.Name)
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading shop")
			}
			group = &shopGroup{shop: shop, subtotal: decimal.Zero}
			index[item.Product.ShopID] = group
			groups = append(groups, group)
		}
		group.items = append(group.items, item)
		group.subtotal = group.subtotal.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		group.quantity += item.Quantity
	}
	return groups, nil
}

func (s *service) createShopOrder(
	ctx context.Context,
	repo Repository,
	ordersRepo orders.Repository,
	input CreateOrderInput,
	group *shopGroup,
	address *models.Address,
	checkoutGroupID *string,
) (*OrderSummary, error) {
	quote := s.quoter.QuoteFee(ctx, s.routeFor(group.shop, address), s.itemWeightGram*group.quantity, group.subtotal)
	total := group.subtotal.Add(quote.Fee)

	paymentStatus := enums.PaymentStatusPending
	if input.PaymentMethod == enums.PaymentMethodWallet {
		paymentStatus = enums.PaymentStatusPaid
	}

	provider := quote.Provider
	order := &models.Order{
		UserID:           input.UserID,
		ShopID:           group.shop.ID,
		ItemsAmount:      group.subtotal,
		ShippingFee:      quote.Fee,
		TotalAmount:      total,
		ShippingProvider: &provider,
		Status:           enums.OrderStatusPending,
		PaymentMethod:    input.PaymentMethod,
		PaymentStatus:    paymentStatus,
		CheckoutGroupID:  checkoutGroupID,
		Note:             input.Note,
	}
	if address != nil {
		addressID := address.ID
		order.ShippingAddressID = &addressID
	}

	if _, err := ordersRepo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
	}

	orderItems := make([]models.OrderItem, 0, len(group.items))
	for _, item := range group.items {
		orderItems = append(orderItems, models.OrderItem{
			OrderID:         order.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.Product.Price,
		})

		ok, err := repo.DecrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrementing stock")
		}
		if !ok {
			return nil, pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
				"insufficient stock for %q", item.Product.Name)
		}
	}
	if err := ordersRepo.CreateItems(ctx, orderItems); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order items")
	}

	payment := &models.Payment{
		OrderID: order.ID,
		UserID:  input.UserID,
		Amount:  total,
		Method:  input.PaymentMethod,
		Status:  paymentStatus,
	}
	if paymentStatus == enums.PaymentStatusPaid {
		completedAt := s.now()
		payment.CompletedAt = &completedAt
	}
	if _, err := ordersRepo.CreatePayment(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment record")
	}

	return &OrderSummary{
		OrderID:          order.ID,
		ShopID:           group.shop.ID,
		ShopName:         group.shop.ShopName,
		ItemsAmount:      group.subtotal,
		ShippingFee:      quote.Fee,
		TotalAmount:      total,
		ShippingProvider: quote.Provider,
	}, nil
}

func (s *service) routeFor(shop *models.Shop, address *models.Address) shipping.Route {
	route := shipping.Route{
		SenderProvinceID: shop.ProvinceID,
		SenderDistrictID: shop.DistrictID,
	}
	if address != nil {
		route.ReceiverProvinceID = address.ProvinceID
		route.ReceiverDistrictID = address.DistrictID
	}
	return route
}
