package enums

import "fmt"

// OrderType distinguishes stock-backed orders from appointment-style bookings.
type OrderType string

const (
	OrderTypeStandard OrderType = "standard"
	OrderTypeBooking  OrderType = "booking"
)

func (t OrderType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known OrderType.
func (t OrderType) IsValid() bool {
	return t == OrderTypeStandard || t == OrderTypeBooking
}

// IsBooking reports whether the order skips inventory reservation/release.
func (t OrderType) IsBooking() bool {
	return t == OrderTypeBooking
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	switch OrderType(value) {
	case OrderTypeStandard:
		return OrderTypeStandard, nil
	case OrderTypeBooking:
		return OrderTypeBooking, nil
	default:
		return "", fmt.Errorf("invalid order type %q", value)
	}
}
