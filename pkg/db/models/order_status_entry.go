package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatusEntry is one row of an order's audit trail. Status is stored as
// plain text rather than the enum type because the trail also records the
// pseudo status "assigned", which is never a live order state.
type OrderStatusEntry struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	Status    string     `gorm:"column:status;not null"`
	Note      *string    `gorm:"column:note"`
	ActorID   *uuid.UUID `gorm:"column:actor_id;type:uuid"`
	ActorRole *string    `gorm:"column:actor_role"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (e *OrderStatusEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
