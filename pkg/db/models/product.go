package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/enums"
	"github.com/peakkart/peakkart-backend/pkg/types"
)

// Product is a catalog entry. Exactly one of the flat Stock counter or the
// Variants list is authoritative, selected by HasVariants.
type Product struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      *uuid.UUID           `gorm:"column:tenant_id;type:uuid"`
	Name          string               `gorm:"column:name;not null"`
	Description   *string              `gorm:"column:description"`
	Price         decimal.Decimal      `gorm:"column:price;type:numeric(12,2);not null"`
	DiscountPrice *decimal.Decimal     `gorm:"column:discount_price;type:numeric(12,2)"`
	HasVariants   bool                 `gorm:"column:has_variants;not null;default:false"`
	Stock         int                  `gorm:"column:stock;not null;default:0"`
	Type          enums.OrderType      `gorm:"column:type;type:text;not null;default:'standard'"`
	BookingConfig *types.BookingConfig `gorm:"column:booking_config;type:jsonb;serializer:json"`
	Tags          []string             `gorm:"column:tags;type:jsonb;serializer:json"`
	ImageURL      *string              `gorm:"column:image_url"`
	IsActive      bool                 `gorm:"column:is_active;not null;default:true"`
	Variants      []ProductVariant     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsBooking reports whether orders for this product bypass the inventory
// ledger.
func (p *Product) IsBooking() bool {
	return p.Type.IsBooking()
}
