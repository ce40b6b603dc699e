package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop is a seller storefront owned by an Account. Sale proceeds land on the
// owner's account wallet, not on the shop row.
type Shop struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID    uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	ShopName   string    `gorm:"column:shop_name;not null"`
	Address    string    `gorm:"column:address;not null;default:''"`
	ProvinceID *int      `gorm:"column:province_id"`
	DistrictID *int      `gorm:"column:district_id"`
	Phone      string    `gorm:"column:phone;not null;default:''"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
