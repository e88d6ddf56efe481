package types

import (
	"strings"

	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
)

// Address is the shipping address snapshot stored on an order. It is copied
// verbatim at checkout so later profile edits never rewrite order history.
type Address struct {
	FullName   string `json:"full_name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Validate rejects addresses missing the fields delivery depends on.
func (a Address) Validate() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"full_name", a.FullName},
		{"phone", a.Phone},
		{"line1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
	} {
		if strings.TrimSpace(field.value) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "shipping address "+field.name+" required")
		}
	}
	return nil
}
