package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
)

// Order is one customer's purchase from one shop. Multi-shop checkouts paid
// through the gateway produce several orders sharing a CheckoutGroupID so a
// single gateway callback can settle all of them.
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID               `gorm:"column:user_id;type:uuid;not null"`
	ShopID            uuid.UUID               `gorm:"column:shop_id;type:uuid;not null"`
	ShipperID         *uuid.UUID              `gorm:"column:shipper_id;type:uuid"`
	ShippingAddressID *uuid.UUID              `gorm:"column:shipping_address_id;type:uuid"`
	ItemsAmount       decimal.Decimal         `gorm:"column:items_amount;type:numeric(18,2);not null"`
	ShippingFee       decimal.Decimal         `gorm:"column:shipping_fee;type:numeric(18,2);not null;default:0"`
	TotalAmount       decimal.Decimal         `gorm:"column:total_amount;type:numeric(18,2);not null"`
	ShippingProvider  *enums.ShippingProvider `gorm:"column:shipping_provider"`
	Status            enums.OrderStatus       `gorm:"column:status;not null;default:'Pending'"`
	PaymentMethod     enums.PaymentMethod     `gorm:"column:payment_method;not null"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;not null;default:'Pending'"`
	CheckoutGroupID   *string                 `gorm:"column:checkout_group_id;index"`
	Note              *string                 `gorm:"column:note"`
	Items             []OrderItem             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment           *Payment                `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
