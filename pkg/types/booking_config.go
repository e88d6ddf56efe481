package types

import "github.com/shopspring/decimal"

// BookingConfig configures appointment-style products. Their nominal stock is
// a placeholder, so orders for them skip inventory reservation entirely.
type BookingConfig struct {
	LeadDays             int             `json:"lead_days"`
	MinQty               int             `json:"min_qty"`
	MaxQty               int             `json:"max_qty"`
	AllowedCities        []string        `json:"allowed_cities,omitempty"`
	CommissionPercentage decimal.Decimal `json:"commission_percentage"`
}
