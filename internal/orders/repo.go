package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minhtran-dev/cakemarket-backend/pkg/db/models"
	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
)

// Repository manages order rows, their payment mirrors, and the stock
// restoration used by cancellation paths.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Order, error)
	ListByCheckoutGroup(ctx context.Context, groupID string) ([]models.Order, error)
	ListReadyForPickup(ctx context.Context) ([]models.Order, error)
	ListByShipper(ctx context.Context, shipperID uuid.UUID) ([]models.Order, error)
	// UpdateStatus flips the order status in one conditional update, gated on
	// the expected prior status. Returns false when another transaction moved
	// the order first.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
	// SetOrderPaymentStatus is the same conditional flip for payment status.
	SetOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentStatus) (bool, error)
	SetPaymentOutcome(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, transactionRef *string, completedAt *time.Time) error
	// AssignShipper claims a ready, unassigned order for the shipper in one
	// conditional update. Returns false when another shipper won the race or
	// the order is not claimable.
	AssignShipper(ctx context.Context, orderID, shipperID uuid.UUID) (bool, error)
	MarkDelivered(ctx context.Context, orderID, shipperID uuid.UUID) (bool, error)
	RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error
	FindShopByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	FindShopByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("Items", "Payment").Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Product").Create(&items).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Payment").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	return r.list(ctx, "user_id = ?", userID)
}

func (r *repository) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.Order, error) {
	return r.list(ctx, "shop_id = ?", shopID)
}

func (r *repository) ListByCheckoutGroup(ctx context.Context, groupID string) ([]models.Order, error) {
	return r.list(ctx, "checkout_group_id = ?", groupID)
}

func (r *repository) ListReadyForPickup(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, "status = ? AND shipper_id IS NULL", enums.OrderStatusReadyForPickup)
}

func (r *repository) ListByShipper(ctx context.Context, shipperID uuid.UUID) ([]models.Order, error) {
	return r.list(ctx, "shipper_id = ?", shipperID)
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payment").
		Where(query, args...).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET status = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`, to, orderID, from)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SetOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, from, to enums.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET payment_status = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND payment_status = ?
	`, to, orderID, from)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SetPaymentOutcome(ctx context.Context, orderID uuid.UUID, status enums.PaymentStatus, transactionRef *string, completedAt *time.Time) error {
	updates := map[string]any{"status": status}
	if transactionRef != nil {
		updates["transaction_ref"] = *transactionRef
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) AssignShipper(ctx context.Context, orderID, shipperID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET shipper_id = ?,
			status = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ? AND shipper_id IS NULL
	`, shipperID, enums.OrderStatusShipping, orderID, enums.OrderStatusReadyForPickup)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkDelivered(ctx context.Context, orderID, shipperID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET status = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ? AND shipper_id = ?
	`, enums.OrderStatusDelivered, orderID, enums.OrderStatusShipping, shipperID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID).Error
}

func (r *repository) FindShopByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindShopByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}
