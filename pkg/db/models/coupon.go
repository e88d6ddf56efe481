package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/enums"
)

// Coupon is an explicitly created discount code. Codes are stored uppercase
// and matched case-insensitively by uppercasing the input.
type Coupon struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code           string             `gorm:"column:code;uniqueIndex;not null"`
	Description    *string            `gorm:"column:description"`
	DiscountType   enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	DiscountValue  decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MaxDiscount    *decimal.Decimal   `gorm:"column:max_discount;type:numeric(12,2)"`
	MinOrderAmount decimal.Decimal    `gorm:"column:min_order_amount;type:numeric(12,2);not null;default:0"`
	UsageLimit     *int               `gorm:"column:usage_limit"`
	PerUserLimit   *int               `gorm:"column:per_user_limit"`
	UsedCount      int                `gorm:"column:used_count;not null;default:0"`
	StartsAt       *time.Time         `gorm:"column:starts_at"`
	ExpiresAt      *time.Time         `gorm:"column:expires_at"`
	IsActive       bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Coupon) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
