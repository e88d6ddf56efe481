package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/enums"
)

// Tenant is a marketplace seller profile. Only approved tenants may own
// products or receive order routing.
type Tenant struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID          `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	BusinessName   string             `gorm:"column:business_name;not null"`
	BusinessEmail  string             `gorm:"column:business_email;not null"`
	BusinessPhone  *string            `gorm:"column:business_phone"`
	Description    *string            `gorm:"column:description"`
	CommissionRate decimal.Decimal    `gorm:"column:commission_rate;type:numeric(5,2);not null;default:0"`
	Status         enums.TenantStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	StatusReason   *string            `gorm:"column:status_reason"`
	ApprovedAt     *time.Time         `gorm:"column:approved_at"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Tenant) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
