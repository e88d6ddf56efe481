package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/enums"
)

// Offer is a promotional campaign whose Code doubles as a fallback coupon
// when no coupon row or treasure code matches.
type Offer struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Title          string             `gorm:"column:title;not null"`
	Code           string             `gorm:"column:code;uniqueIndex;not null"`
	DiscountType   enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue  decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MaxDiscount    *decimal.Decimal   `gorm:"column:max_discount;type:numeric(12,2)"`
	MinOrderAmount decimal.Decimal    `gorm:"column:min_order_amount;type:numeric(12,2);not null;default:0"`
	StartsAt       *time.Time         `gorm:"column:starts_at"`
	EndsAt         *time.Time         `gorm:"column:ends_at"`
	IsActive       bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
