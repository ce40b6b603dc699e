package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
)

// Payment mirrors an order's payment state and carries the external
// transaction reference once the gateway settles.
type Payment struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(18,2);not null"`
	Method         enums.PaymentMethod `gorm:"column:method;not null"`
	Status         enums.PaymentStatus `gorm:"column:status;not null;default:'Pending'"`
	TransactionRef *string             `gorm:"column:transaction_ref"`
	CompletedAt    *time.Time          `gorm:"column:completed_at"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}
