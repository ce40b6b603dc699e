package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/minhtran-dev/cakemarket-backend/pkg/enums"
)

// SystemWallet is a pooled system-owned balance, one row per wallet type.
// The "Escrow" wallet holds customer payments until orders resolve.
type SystemWallet struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WalletType  enums.SystemWalletType `gorm:"column:wallet_type;not null;uniqueIndex"`
	Balance     decimal.Decimal        `gorm:"column:balance;type:numeric(18,2);not null;default:0"`
	Description string                 `gorm:"column:description;not null;default:''"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
