package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/enums"
)

// Notification is a queued outbound message. The worker marks SentAt after a
// successful delivery attempt.
type Notification struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index"`
	Channel   enums.NotificationChannel `gorm:"column:channel;type:text;not null"`
	Event     string                    `gorm:"column:event;not null"`
	Subject   string                    `gorm:"column:subject;not null"`
	Body      string                    `gorm:"column:body;not null"`
	Payload   map[string]any            `gorm:"column:payload;type:jsonb;serializer:json"`
	SentAt    *time.Time                `gorm:"column:sent_at"`
	ReadAt    *time.Time                `gorm:"column:read_at"`
	Error     *string                   `gorm:"column:error"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
