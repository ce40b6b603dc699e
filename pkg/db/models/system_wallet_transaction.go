package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
)

// SystemWalletTransaction is an immutable escrow ledger entry, keyed by the
// pooled wallet type rather than an owner. Same replay invariant as
// WalletTransaction.
type SystemWalletTransaction struct {
	ID              uuid.UUID                         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletType      enums.SystemWalletType            `gorm:"column:wallet_type;not null;index"`
	Amount          decimal.Decimal                   `gorm:"column:amount;type:numeric(18,2);not null"`
	TransactionType enums.SystemWalletTransactionType `gorm:"column:transaction_type;not null"`
	BalanceAfter    decimal.Decimal                   `gorm:"column:balance_after;type:numeric(18,2);not null"`
	OrderID         *uuid.UUID                        `gorm:"column:order_id;type:uuid;index"`
	RelatedUserID   *uuid.UUID                        `gorm:"column:related_user_id;type:uuid"`
	Description     string                            `gorm:"column:description;not null;default:''"`
	CreatedAt       time.Time                         `gorm:"column:created_at;autoCreateTime"`
}
