package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/enums"
	"github.com/peakkart/peakkart-backend/pkg/types"
)

// Order is the customer-facing aggregate. Money fields are snapshots taken at
// checkout and never recomputed from the catalog afterwards.
//
// RoutedToTenant is the claim flag for tenant assignment: it flips to true
// exactly once, under a conditional update, so two admins racing to assign the
// same order cannot both win.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber    string              `gorm:"column:order_number;uniqueIndex;not null"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	TenantID       *uuid.UUID          `gorm:"column:tenant_id;type:uuid;index"`
	RoutedToTenant bool                `gorm:"column:routed_to_tenant;not null;default:false"`
	Type           enums.OrderType     `gorm:"column:type;type:text;not null;default:'standard'"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus  enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentRef     *string             `gorm:"column:payment_ref"`

	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	TaxAmount      decimal.Decimal `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	ShippingFee    decimal.Decimal `gorm:"column:shipping_fee;type:numeric(12,2);not null;default:0"`
	GiftWrapFee    decimal.Decimal `gorm:"column:gift_wrap_fee;type:numeric(12,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`

	CouponCode       *string          `gorm:"column:coupon_code"`
	CommissionAmount *decimal.Decimal `gorm:"column:commission_amount;type:numeric(12,2)"`

	ShippingAddress types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json;not null"`
	BookingDate     *time.Time    `gorm:"column:booking_date"`
	CancelReason    *string       `gorm:"column:cancel_reason"`

	Items         []OrderItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory []OrderStatusEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
