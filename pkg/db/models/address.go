package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a customer shipping destination. Province/district ids feed the
// external rate-quote API; the textual fields are display-only.
type Address struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	ReceiverName string    `gorm:"column:receiver_name;not null"`
	Phone        string    `gorm:"column:phone;not null"`
	Street       string    `gorm:"column:street;not null"`
	Ward         string    `gorm:"column:ward;not null;default:''"`
	District     string    `gorm:"column:district;not null;default:''"`
	City         string    `gorm:"column:city;not null;default:''"`
	ProvinceID   *int      `gorm:"column:province_id"`
	DistrictID   *int      `gorm:"column:district_id"`
	IsDefault    bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
