package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CouponRedemption records one use of a code by one user. Per-user limits are
// enforced by counting these rows inside the checkout transaction.
type CouponRedemption struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Code      string     `gorm:"column:code;not null;index:idx_coupon_redemptions_code_user"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:idx_coupon_redemptions_code_user"`
	OrderID   *uuid.UUID `gorm:"column:order_id;type:uuid"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (r *CouponRedemption) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
