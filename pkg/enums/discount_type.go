package enums

import "fmt"

// DiscountType selects how a coupon/offer value is applied to a cart total.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
	// DiscountTypeNone marks offers that carry no redeemable coupon.
	DiscountTypeNone DiscountType = "none"
)

func (t DiscountType) String() string {
	return string(t)
}

// ParseDiscountType converts raw input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	switch DiscountType(value) {
	case DiscountTypePercentage:
		return DiscountTypePercentage, nil
	case DiscountTypeFixed:
		return DiscountTypeFixed, nil
	case DiscountTypeNone:
		return DiscountTypeNone, nil
	default:
		return "", fmt.Errorf("invalid discount type %q", value)
	}
}
