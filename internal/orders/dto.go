package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/peakkart/peakkart-backend/pkg/enums"
	"github.com/peakkart/peakkart-backend/pkg/types"
)

// ItemInput is one requested order line.
type ItemInput struct {
	ProductID   uuid.UUID
	Size        *string
	Quantity    int
	GiftWrap    bool
	CustomPhoto *string
}

// CreateInput captures a standard checkout request.
type CreateInput struct {
	UserID          uuid.UUID
	Items           []ItemInput
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.Address
	CouponCode      *string
}

// BookingInput captures an appointment-style order request.
type BookingInput struct {
	UserID          uuid.UUID
	ProductID       uuid.UUID
	Quantity        int
	BookingDate     time.Time
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.Address
}

// UpdateStatusInput drives a guarded lifecycle transition.
type UpdateStatusInput struct {
	OrderID       uuid.UUID
	NewStatus     enums.OrderStatus
	Note          *string
	ActorID       uuid.UUID
	ActorRole     enums.Role
	ActorTenantID *uuid.UUID
}

// CancelInput identifies the order and the actor requesting cancellation.
type CancelInput struct {
	OrderID   uuid.UUID
	Reason    string
	ActorID   uuid.UUID
	ActorRole enums.Role
}

// OrderEvent is the notification payload emitted after lifecycle changes.
type OrderEvent struct {
	Event       string          `json:"event"`
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	TenantID    *uuid.UUID      `json:"tenant_id,omitempty"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
}
