package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a platform identity. WalletBalance is mutated only through the
// wallet ledger so the transaction log always replays to the stored balance.
type Account struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username      string          `gorm:"column:username;not null;uniqueIndex"`
	FullName      string          `gorm:"column:full_name;not null;default:''"`
	Email         string          `gorm:"column:email;not null;default:''"`
	Phone         string          `gorm:"column:phone;not null;default:''"`
	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(18,2);not null;default:0"`
	Role          string          `gorm:"column:role;not null;default:'Customer'"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
