package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TreasureConfig is the hidden sitewide discount code. At most one row is ever
// consulted, the most recently updated one.
type TreasureConfig struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Code               string          `gorm:"column:code;not null"`
	DiscountPercentage decimal.Decimal `gorm:"column:discount_percentage;type:numeric(5,2);not null"`
	MaxDiscount        decimal.Decimal `gorm:"column:max_discount;type:numeric(12,2);not null"`
	MinOrderAmount     decimal.Decimal `gorm:"column:min_order_amount;type:numeric(12,2);not null;default:0"`
	IsActive           bool            `gorm:"column:is_active;not null;default:false"`
	StartsAt           *time.Time      `gorm:"column:starts_at"`
	EndsAt             *time.Time      `gorm:"column:ends_at"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *TreasureConfig) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
