package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
)

// RefundRequest is a customer's claim against a delivered order. Exactly one
// per order; staff resolves it once, terminally.
type RefundRequest struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	CustomerID   uuid.UUID          `gorm:"column:customer_id;type:uuid;not null"`
	Reason       string             `gorm:"column:reason;not null"`
	Description  string             `gorm:"column:description;not null;default:''"`
	EvidenceURLs *string            `gorm:"column:evidence_urls"`
	Status       enums.RefundStatus `gorm:"column:status;not null;default:'Pending'"`
	StaffNote    *string            `gorm:"column:staff_note"`
	ResolvedBy   *uuid.UUID         `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt   *time.Time         `gorm:"column:resolved_at"`
	Order        *Order             `gorm:"foreignKey:OrderID"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}
