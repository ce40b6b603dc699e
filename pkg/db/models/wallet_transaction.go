package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
)

// WalletTransaction is an immutable ledger entry for a party's wallet.
// Replaying all entries for an owner in creation order must reproduce the
// account's current balance; BalanceAfter is the running sum through this row.
type WalletTransaction struct {
	ID              uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletOwnerID   uuid.UUID                   `gorm:"column:wallet_owner_id;type:uuid;not null;index"`
	WalletType      enums.WalletType            `gorm:"column:wallet_type;not null"`
	Amount          decimal.Decimal             `gorm:"column:amount;type:numeric(18,2);not null"`
	TransactionType enums.WalletTransactionType `gorm:"column:transaction_type;not null"`
	Description     string                      `gorm:"column:description;not null;default:''"`
	BalanceAfter    decimal.Decimal             `gorm:"column:balance_after;type:numeric(18,2);not null"`
	ReferenceID     *uuid.UUID                  `gorm:"column:reference_id;type:uuid"`
	CreatedAt       time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
