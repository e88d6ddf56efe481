package commission

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

// Breakdown is the result of splitting an order total between the platform
// and the fulfilling tenant.
type Breakdown struct {
	PlatformShare decimal.Decimal
	TenantShare   decimal.Decimal
}

// Split divides total by ratePercent. The platform share is rounded half-up
// to 2 places and the tenant share is the exact remainder, so the two always
// sum back to the total.
func Split(total, ratePercent decimal.Decimal) (Breakdown, error) {
	if total.IsNegative() {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "total must not be negative")
	}
	if ratePercent.IsNegative() || ratePercent.GreaterThan(oneHundred) {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 100")
	}

	platform := total.Mul(ratePercent).Div(oneHundred).Round(2)
	tenant := total.Sub(platform)

	return Breakdown{
		PlatformShare: platform,
		TenantShare:   tenant,
	}, nil
}
