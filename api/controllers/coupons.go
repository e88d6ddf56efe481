package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/peakkart/peakkart-backend/api/responses"
	"github.com/peakkart/peakkart-backend/api/validators"
	"github.com/peakkart/peakkart-backend/internal/coupons"
	"github.com/peakkart/peakkart-backend/pkg/logger"
)

type validateCouponRequest struct {
	Code      string          `json:"code" validate:"required,min=1,max=64"`
	CartTotal decimal.Decimal `json:"cart_total" validate:"required"`
}

type useCouponRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

// ValidateCoupon prices a code against the caller's cart without consuming it.
func ValidateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req validateCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		validation, err := svc.Validate(r.Context(), req.Code, userID, req.CartTotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, validation)
	}
}

// UseCoupon consumes one usage slot outside of checkout. Checkout itself
// marks usage inside its transaction instead of calling this.
func UseCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req useCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkUsed(r.Context(), req.Code, userID, nil); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "used"})
	}
}
